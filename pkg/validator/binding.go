package validator

import (
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const passwordSpecials = "@$!%*?&"

var registerOnce sync.Once

// RegisterBindingValidators adds the custom rules used by request DTOs to
// gin's validator engine. Safe to call more than once.
func RegisterBindingValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			Register(v)
		}
	})
}

// Register installs the custom rules on v
func Register(v *validator.Validate) {
	_ = v.RegisterValidation("notblank", notBlank)
	_ = v.RegisterValidation("strongpassword", strongPassword)
}

// notBlank rejects strings made only of whitespace
func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// strongPassword requires at least eight characters drawn from letters,
// digits and @$!%*?& with at least one lowercase letter, one uppercase
// letter, one digit and one of the special characters.
func strongPassword(fl validator.FieldLevel) bool {
	return IsStrongPassword(fl.Field().String())
}

// IsStrongPassword applies the password policy to s
func IsStrongPassword(s string) bool {
	if len(s) < 8 {
		return false
	}

	var lower, upper, digit, special bool
	for _, r := range s {
		switch {
		case r > unicode.MaxASCII:
			return false
		case 'a' <= r && r <= 'z':
			lower = true
		case 'A' <= r && r <= 'Z':
			upper = true
		case '0' <= r && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}

	return lower && upper && digit && special
}
