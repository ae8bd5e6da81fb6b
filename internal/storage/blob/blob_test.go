package blob

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: неожиданная ошибка: %v", err)
	}
	return s
}

func TestPutGet_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := "audio/canis_lupus/11111111-1111-1111-1111-111111111111_howl.wav"
	data := []byte{0x01, 0x02, 0x03, 0xFF}

	if err := s.Put(ctx, key, data); err != nil {
		t.Fatalf("Put: неожиданная ошибка: %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: неожиданная ошибка: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get вернул %v, ожидалось %v", got, data)
	}
}

func TestPut_DuplicateKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := "audio/panthera_leo/roar.mp3"
	if err := s.Put(ctx, key, []byte("a")); err != nil {
		t.Fatalf("Put: неожиданная ошибка: %v", err)
	}
	if err := s.Put(ctx, key, []byte("b")); err == nil {
		t.Error("ожидалась ошибка при перезаписи существующего ключа")
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "audio/missing.wav")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидался ErrNotFound, получено %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := "audio/gorilla_gorilla/call.flac"
	if err := s.Put(ctx, key, []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: неожиданная ошибка: %v", err)
	}
	if s.Exists(ctx, key) {
		t.Error("объект существует после Delete")
	}

	// Повторное удаление — не ошибка
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("Delete отсутствующего ключа вернул ошибку: %v", err)
	}
}

func TestExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if s.Exists(ctx, "audio/none.wav") {
		t.Error("Exists вернул true для отсутствующего ключа")
	}
	if err := s.Put(ctx, "audio/some.wav", []byte("y")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !s.Exists(ctx, "audio/some.wav") {
		t.Error("Exists вернул false для существующего ключа")
	}
}

func TestResolve_RejectsTraversal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "/etc/passwd", "audio/../../escape"} {
		if err := s.Put(ctx, key, []byte("z")); err == nil {
			t.Errorf("ожидалась ошибка для ключа %q", key)
		}
	}
}

func TestPut_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Put(ctx, "audio/late.wav", []byte("w")); err == nil {
		t.Error("ожидалась ошибка для отменённого контекста")
	}
}
