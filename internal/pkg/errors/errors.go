package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например, событие сессии вне допустимого состояния).
	ErrConflict = errors.New("resource state conflict")
)

// Ошибки квотирования и определения личности запрашивающего
var (
	// ErrQuotaExceeded используется, когда дневной или месячный лимит генераций исчерпан.
	ErrQuotaExceeded = errors.New("generation quota exceeded")

	// ErrIPUnresolvable используется, когда невозможно определить IP клиента для лимитирования.
	// Такой запрос отклоняется жёстко, а не пропускается молча.
	ErrIPUnresolvable = errors.New("client IP unresolvable")
)

// Ошибки взаимодействия с генератором викторин
var (
	// ErrUpstream используется при транспортных ошибках или не-2xx ответах генератора.
	ErrUpstream = errors.New("upstream generator error")

	// ErrUpstreamParse используется, когда в ответе генератора не найден разбираемый JSON-объект.
	ErrUpstreamParse = errors.New("upstream response parse error")

	// ErrInvalidUpstreamFormat используется, когда JSON разобран, но не соответствует формату викторины.
	ErrInvalidUpstreamFormat = errors.New("invalid upstream quiz format")
)

// Ошибки извлечения текста из документов
var (
	// ErrUnsupportedType используется для файлов неподдерживаемого типа.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrNoExtractableText используется, когда из документа не удалось извлечь текст.
	ErrNoExtractableText = errors.New("no extractable text")
)
