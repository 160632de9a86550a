// Package forms holds the signup/login form rules shared by the API's input
// schema and the terminal client.
package forms

import (
	"regexp"
	"strings"
)

// Field names as sent by the web client.
const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldEmail     = "email"
	FieldPassword  = "password"
)

// Messages returned for failing rules.
const (
	MsgFirstNameRequired = "First name is required"
	MsgLastNameRequired  = "Last name is required"
	MsgEmailRequired     = "Email is required"
	MsgEmailInvalid      = "Email address is invalid"
	MsgPasswordRequired  = "Password is required"
	MsgPasswordWeak      = "Password must be at least 8 characters and contain a letter and a number"
)

const MinPasswordLength = 8

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	letterPattern = regexp.MustCompile(`[A-Za-z]`)
	digitPattern  = regexp.MustCompile(`[0-9]`)
)

// Values is a submitted form keyed by field name.
type Values map[string]string

// Errors maps a field name to its first failing message.
type Errors map[string]string

// Validate applies the required, email and password rules to values.
// Only failing fields appear in the result; an empty map means the form is valid.
func Validate(values Values) Errors {
	errs := Errors{}

	if strings.TrimSpace(values[FieldFirstName]) == "" {
		errs[FieldFirstName] = MsgFirstNameRequired
	}
	if strings.TrimSpace(values[FieldLastName]) == "" {
		errs[FieldLastName] = MsgLastNameRequired
	}

	switch email := strings.TrimSpace(values[FieldEmail]); {
	case email == "":
		errs[FieldEmail] = MsgEmailRequired
	case !EmailValid(email):
		errs[FieldEmail] = MsgEmailInvalid
	}

	switch password := values[FieldPassword]; {
	case password == "":
		errs[FieldPassword] = MsgPasswordRequired
	case !PasswordValid(password):
		errs[FieldPassword] = MsgPasswordWeak
	}

	return errs
}

// EmailValid reports whether s looks like an email address.
func EmailValid(s string) bool {
	return emailPattern.MatchString(s)
}

// PasswordValid reports whether s satisfies the password complexity rule.
func PasswordValid(s string) bool {
	return len(s) >= MinPasswordLength && letterPattern.MatchString(s) && digitPattern.MatchString(s)
}

// Fields lists the failing fields in form order.
func (e Errors) Fields() []string {
	out := make([]string, 0, len(e))
	for _, f := range []string{FieldFirstName, FieldLastName, FieldEmail, FieldPassword} {
		if _, ok := e[f]; ok {
			out = append(out, f)
		}
	}
	return out
}
