package http

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mmuslimabdulj/chirp/internal/domain"
)

var (
	usernameRegex    = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	emailRegex       = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	controlCharRegex = regexp.MustCompile(`[\x00-\x1F\x7F]`)
)

func validateUsername(name string) error {
	if !usernameRegex.MatchString(name) {
		return errors.New("Username must be 3-20 letters, digits or underscores")
	}
	return nil
}

func validateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return errors.New("Invalid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return errors.New("Password must be at least 8 characters")
	}
	return nil
}

// validateContent cleans post content and enforces the length limit.
func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)

	// Strip control characters, keep newlines
	content = controlCharRegex.ReplaceAllStringFunc(content, func(s string) string {
		if s == "\n" {
			return s
		}
		return ""
	})

	if content == "" {
		return "", errors.New("Content must not be empty")
	}
	if utf8.RuneCountInString(content) > domain.MaxPostLength {
		return "", errors.New("Content exceeds maximum length")
	}
	return content, nil
}
