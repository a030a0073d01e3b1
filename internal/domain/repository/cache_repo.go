package repository

import (
	"time"
)

// CacheRepository определяет методы для работы с кешем.
// Основной потребитель — блокировка генерации: одна одновременная
// генерация на личность.
type CacheRepository interface {
	Delete(key string) error
	// SetNX устанавливает значение, только если ключ не существует.
	// Возвращает true, если ключ был установлен этим вызовом.
	SetNX(key string, value interface{}, expiration time.Duration) (bool, error)
}
