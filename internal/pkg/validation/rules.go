package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	EmailPattern = `^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`

	PasswordMinLength = 8

	NameMinLength = 1
	NameMaxLength = 200
)

var emailRegex = regexp.MustCompile(EmailPattern)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Record validates a typed row read from the store against its
// `validate` tags. Rows missing required fields are rejected.
func Record(v interface{}) error {
	if err := engine().Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("malformed %T row: %s", v, strings.Join(fields, ", "))
		}
		return fmt.Errorf("malformed %T row: %w", v, err)
	}
	return nil
}

// Email reports whether email looks like a deliverable address.
// The caller is expected to lowercase it first.
func Email(email string) bool {
	return emailRegex.MatchString(email)
}

// Password checks the minimum length and that at least one letter and one
// digit are present.
func Password(password string) error {
	if len(password) < PasswordMinLength {
		return fmt.Errorf("password must be at least %d characters long", PasswordMinLength)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		return errors.New("password must contain at least one letter")
	}
	if !hasDigit {
		return errors.New("password must contain at least one digit")
	}
	return nil
}

// Name trims s and checks its length bounds.
func Name(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < NameMinLength {
		return "", fmt.Errorf("%s cannot be empty", field)
	}
	if len(s) > NameMaxLength {
		return "", fmt.Errorf("%s must be at most %d characters", field, NameMaxLength)
	}
	return s, nil
}
