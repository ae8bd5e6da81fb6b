// Пакет service — бизнес-логика Vocal Module: приём записей,
// идемпотентный запуск анализа и чтение результатов.
package service

import "errors"

// Ошибки бизнес-логики. Handlers отображают их в HTTP-статусы.
var (
	// ErrValidation — входные данные нарушают ограничение.
	// Сообщение всегда называет нарушенное ограничение.
	ErrValidation = errors.New("ошибка валидации")
	// ErrTooLarge — размер файла превышает лимит.
	ErrTooLarge = errors.New("файл превышает максимальный размер")
	// ErrOwnership — субъект не является владельцем записи.
	// Роль субъекта значения не имеет.
	ErrOwnership = errors.New("доступ запрещён: запись принадлежит другому субъекту")
	// ErrDispatch — задание создано, но постановка в очередь провалилась.
	ErrDispatch = errors.New("сбой постановки задания в очередь")
)
