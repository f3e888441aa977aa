package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/smallbiznis/woyofal/internal/customer/domain"
)

var senegalMobilePrefixes = []string{"70", "75", "76", "77", "78"}

func validateName(value string) (string, error) {
	value = strings.TrimSpace(value)
	n := utf8.RuneCountInString(value)
	if n < 2 || n > 100 {
		return "", domain.ErrInvalidName
	}
	return value, nil
}

func normalizeEmail(value string) (*string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if len(value) > 150 {
		return nil, domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return nil, domain.ErrInvalidEmail
	}
	_, host, _ := strings.Cut(value, "@")
	if len(host) < 3 || !strings.Contains(host, ".") {
		return nil, domain.ErrInvalidEmail
	}
	return &value, nil
}

// normalizePhone keeps the 9 national digits of a Senegalese mobile number,
// dropping separators and the 221 country code.
func normalizePhone(value string) (*string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, value)
	if digits == "" {
		return nil, nil
	}
	if len(digits) == 12 && strings.HasPrefix(digits, "221") {
		digits = digits[3:]
	}
	if len(digits) != 9 {
		return nil, domain.ErrInvalidPhone
	}
	for _, prefix := range senegalMobilePrefixes {
		if strings.HasPrefix(digits, prefix) {
			return &digits, nil
		}
	}
	return nil, domain.ErrInvalidPhone
}
