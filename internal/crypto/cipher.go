// Пакет crypto — шифрование записей вокализаций в покое.
// AES-256-GCM, свежий случайный nonce на каждый объект.
// Nonce хранится префиксом перед шифротекстом: [nonce | ciphertext+tag].
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrDecrypt — нарушение целостности или аутентичности шифротекста.
// Отдельный sentinel: такие случаи логируются как инцидент целостности данных.
var ErrDecrypt = errors.New("ошибка расшифровки: целостность данных нарушена")

const keySize = 32 // AES-256

// hkdfInfo связывает выведенный ключ с его назначением.
// Смена строки инвалидирует все ранее зашифрованные объекты.
const hkdfInfo = "vocal-module/recording-data-key/v1"

// Cipher шифрует и расшифровывает блобы записей.
// Потокобезопасен: AEAD stateless, состояние только для чтения.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher выводит ключ данных из мастер-секрета через HKDF-SHA256
// и инициализирует AES-256-GCM. Вызывается один раз при старте.
func NewCipher(masterKey []byte) (*Cipher, error) {
	if len(masterKey) < keySize {
		return nil, fmt.Errorf("мастер-секрет короче %d байт", keySize)
	}

	key := make([]byte, keySize)
	kdf := hkdf.New(sha256.New, masterKey, nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("деривация ключа данных: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("инициализация AES: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("инициализация GCM: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt шифрует plaintext со свежим случайным nonce.
// Возвращает [nonce | ciphertext+tag].
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("генерация nonce: %w", err)
	}
	// Seal дописывает шифротекст после nonce — один буфер на выходе.
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt расшифровывает блоб формата [nonce | ciphertext+tag].
// Любое повреждение (короткий блоб, подмена байт, чужой ключ)
// возвращает ErrDecrypt без деталей.
func (c *Cipher) Decrypt(blob []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(blob) < ns+c.aead.Overhead() {
		return nil, ErrDecrypt
	}
	nonce, ciphertext := blob[:ns], blob[ns:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
