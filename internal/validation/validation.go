package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"studycards/internal/models"
)

const (
	MinPasswordLength = 8
	// bcrypt only reads the first 72 bytes
	MaxPasswordBytes = 72
	MaxTopicLength   = 200
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Error is a field level validation failure
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldError(field, message string) error {
	return &Error{Field: field, Message: message}
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fieldError("email", "e-posta gerekli")
	}
	if !emailRegex.MatchString(email) {
		return fieldError("email", "geçersiz e-posta adresi")
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return fieldError("password", "şifre gerekli")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fieldError("password", fmt.Sprintf("şifre en az %d karakter olmalı", MinPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		return fieldError("password", "şifre çok uzun")
	}
	return nil
}

// ValidateName allows an empty name; a given name needs two letters
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if utf8.RuneCountInString(name) < 2 {
		return fieldError("name", "isim en az 2 karakter olmalı")
	}
	return nil
}

func ValidateGrade(grade int) error {
	if !models.IsValidGrade(grade) {
		return fieldError("grade", fmt.Sprintf("sınıf %d ile %d arasında olmalı", models.MinGrade, models.MaxGrade))
	}
	return nil
}

func ValidateSubject(subject string) error {
	if !models.IsValidSubject(subject) {
		return fieldError("subject", "geçersiz ders")
	}
	return nil
}

func ValidateTopic(topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return fieldError("topic", "konu gerekli")
	}
	if utf8.RuneCountInString(topic) > MaxTopicLength {
		return fieldError("topic", fmt.Sprintf("konu en fazla %d karakter olabilir", MaxTopicLength))
	}
	return nil
}
