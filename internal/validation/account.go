// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"femcircle/internal/models"
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex    = regexp.MustCompile(`^[0-9+\-() ]+$`)
)

// ValidatePassword checks the password length bounds.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}
	if n > 100 {
		return fmt.Errorf("password must not exceed 100 characters")
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password must not be blank")
	}
	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters long")
	}
	if len(username) > 50 {
		return fmt.Errorf("username must not exceed 50 characters")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
	}
	if username[0] == '_' || username[0] == '-' || username[len(username)-1] == '_' || username[len(username)-1] == '-' {
		return fmt.Errorf("username cannot start or end with underscore or hyphen")
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateFullName requires a non-blank name of at most 100 characters.
func ValidateFullName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("full name is required")
	}
	if utf8.RuneCountInString(name) > 100 {
		return fmt.Errorf("full name must not exceed 100 characters")
	}
	return nil
}

// ValidatePhone allows digits, spaces and + - ( ).
func ValidatePhone(phone string) error {
	if len(phone) > 20 {
		return fmt.Errorf("phone must not exceed 20 characters")
	}
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("phone may only contain digits, spaces and + - ( )")
	}
	return nil
}

// ValidateRegistration trims the form in place and reports the first problem.
func ValidateRegistration(in *models.RegistrationInput) error {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = trimOptional(in.Phone)
	in.City = trimOptional(in.City)

	if err := ValidateFullName(in.FullName); err != nil {
		return err
	}
	if err := ValidateUsername(in.Username); err != nil {
		return err
	}
	if err := ValidateEmail(in.Email); err != nil {
		return err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return err
	}
	if in.Password != in.ConfirmPassword {
		return fmt.Errorf("password confirmation does not match")
	}
	if !in.AcceptTerms {
		return fmt.Errorf("terms must be accepted")
	}
	if in.Phone != nil {
		if err := ValidatePhone(*in.Phone); err != nil {
			return err
		}
	}
	if in.City != nil && utf8.RuneCountInString(*in.City) > 80 {
		return fmt.Errorf("city must not exceed 80 characters")
	}
	return nil
}

// trimOptional trims s and turns blank values into nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
