package service

import (
	"fmt"
	"regexp"
	"time"
)

var (
	emailRx    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRx = regexp.MustCompile(`^[a-z0-9]+$`)
	permNameRx = regexp.MustCompile(`^[a-z.]+$`)
	digitsRx   = regexp.MustCompile(`^[0-9]+$`)

	pwLowerRx  = regexp.MustCompile(`[a-z]`)
	pwUpperRx  = regexp.MustCompile(`[A-Z]`)
	pwDigitRx  = regexp.MustCompile(`[0-9]`)
	pwSymbolRx = regexp.MustCompile(`[@$!%*#?&]`)
)

const dateLayout = "2006-01-02"

// FieldErrors reports input validation failures keyed by field, in the
// stable shape the API exposes as a 422 response.
type FieldErrors struct {
	Fields map[string][]string
}

func NewFieldErrors() *FieldErrors {
	return &FieldErrors{Fields: make(map[string][]string)}
}

func (e *FieldErrors) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *FieldErrors) Any() bool {
	return len(e.Fields) > 0
}

func (e *FieldErrors) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// OrNil returns the error value only when something was recorded, so callers
// can `return v.OrNil()` after a run of checks.
func (e *FieldErrors) OrNil() error {
	if e.Any() {
		return e
	}
	return nil
}

func validEmail(s string) bool {
	return s != "" && len(s) <= 255 && emailRx.MatchString(s)
}

func checkUsername(v *FieldErrors, field, name string) {
	switch {
	case name == "":
		v.Add(field, "The name field is required.")
	case len(name) < 3 || len(name) > 255:
		v.Add(field, "The name must be between 3 and 255 characters.")
	case !usernameRx.MatchString(name):
		v.Add(field, "Usernames can only contain lowercase letters and numbers.")
	}
}

func checkEmail(v *FieldErrors, field, email string) {
	if !validEmail(email) {
		v.Add(field, "The email must be a valid email address.")
	}
}

// checkPassword enforces the password policy: at least 8 characters with one
// lowercase letter, one uppercase letter, one number and one symbol.
func checkPassword(v *FieldErrors, field, password, confirmation string) {
	if len(password) < 8 {
		v.Add(field, "The password must be at least 8 characters.")
		return
	}
	if !pwLowerRx.MatchString(password) || !pwUpperRx.MatchString(password) ||
		!pwDigitRx.MatchString(password) || !pwSymbolRx.MatchString(password) {
		v.Add(field, "Password must contain at least one uppercase letter, one lowercase letter, one number, and one symbol.")
	}
	if password != confirmation {
		v.Add(field, "The password confirmation does not match.")
	}
}

func checkDate(v *FieldErrors, field, value string) time.Time {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		v.Add(field, "The "+field+" is not a valid date.")
	}
	return t
}
