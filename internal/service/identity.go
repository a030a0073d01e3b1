package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
)

// UserIdentity возвращает идентичность квоты для аутентифицированного
// пользователя. ID уже псевдонимен, хеширование не требуется.
func UserIdentity(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// IPIdentity возвращает идентичность квоты для анонимного запроса:
// односторонний хеш нормализованного клиентского IP
func IPIdentity(r *http.Request) (string, error) {
	ip := clientIP(r)
	if ip == "" {
		return "", fmt.Errorf("client address missing: %w", apperrors.ErrIPUnresolvable)
	}
	sum := sha256.Sum256([]byte(ip))
	return "ip:" + hex.EncodeToString(sum[:]), nil
}

// clientIP извлекает клиентский IP: X-Forwarded-For (первый элемент),
// затем X-Real-IP, затем адрес транспортного уровня
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if normalized := normalizeIP(first); normalized != "" {
			return normalized
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		if normalized := normalizeIP(realIP); normalized != "" {
			return normalized
		}
	}
	return normalizeIP(r.RemoteAddr)
}

// normalizeIP убирает IPv6-скобки, завершающий порт и префикс
// IPv6-mapped IPv4 адресов
func normalizeIP(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}

	// "[::1]:8080" или "[::1]"
	if strings.HasPrefix(addr, "[") {
		end := strings.Index(addr, "]")
		if end == -1 {
			return ""
		}
		addr = addr[1:end]
	} else if colons := strings.Count(addr, ":"); colons == 1 {
		// "1.2.3.4:8080" — единственное двоеточие отделяет порт
		addr = addr[:strings.Index(addr, ":")]
	}

	addr = strings.TrimPrefix(addr, "::ffff:")
	return addr
}
