package service

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

const (
	// DefaultCodeLength длина автоматически сгенерированного кода
	DefaultCodeLength = 6
	charset           = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)

var charsetSize = big.NewInt(int64(len(charset)))

// GenerateCode returns n characters drawn uniformly from the 62-character
// alphanumeric alphabet. Uniqueness is not guaranteed; storage enforces it.
func GenerateCode(n int) (string, error) {
	if n <= 0 {
		n = DefaultCodeLength
	}

	result := make([]byte, n)
	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, charsetSize)
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}
	return string(result), nil
}

// ValidateCode проверяет формат кода: 6-8 латинских букв или цифр
func ValidateCode(code string) error {
	if !codePattern.MatchString(code) {
		return ErrInvalidCodeFormat
	}
	return nil
}

// ValidateTargetURL проверяет, что URL начинается с http:// или https://.
// Реестр не проверяет URL сам, это обязанность вызывающего слоя.
func ValidateTargetURL(url string) error {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return nil
	}
	return ErrInvalidURLFormat
}
