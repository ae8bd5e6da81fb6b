// Пакет species — допустимые виды животных и форматы аудио.
// Оба списка — закрытые перечисления: значения вне списка отклоняются
// на этапе валидации загрузки.
package species

// MaxUploadSize — максимальный размер загружаемого файла (50 MiB).
const MaxUploadSize int64 = 50 << 20

// Supported — виды, для которых модель анализа обучена.
// Загрузка других видов отклоняется валидацией; воркер дополнительно
// гейтит анализ на случай записей, попавших в реестр в обход загрузки.
var Supported = []string{
	"canis_lupus",
	"panthera_leo",
	"delphinus_delphis",
	"gorilla_gorilla",
	"elephas_maximus",
}

// Formats — поддерживаемые форматы аудио.
var Formats = []string{"wav", "mp3", "flac"}

var supportedSet = toSet(Supported)
var formatSet = toSet(Formats)

// IsSupported проверяет, входит ли вид в список поддерживаемых.
func IsSupported(s string) bool {
	return supportedSet[s]
}

// IsValidFormat проверяет, поддерживается ли формат аудио.
func IsValidFormat(f string) bool {
	return formatSet[f]
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
