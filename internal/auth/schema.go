package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gokatarajesh/exam-proctor/internal/forms"
)

// ErrMalformedBody is returned when a request body is not a JSON object.
var ErrMalformedBody = errors.New("malformed request body")

// FieldError reports the first failing rule on a request field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return forms.PasswordValid(fl.Field().String())
	})
	return v
}

// signupFields is derived from SignupRequest's json tags.
var signupFields = jsonFields(reflect.TypeOf(SignupRequest{}))

func jsonFields(t reflect.Type) map[string]struct{} {
	fields := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]
		if name != "" && name != "-" {
			fields[name] = struct{}{}
		}
	}
	return fields
}

// DecodeSignup reads a signup body, keeps only allow-listed fields and
// validates them. The names of dropped fields are returned sorted so the
// caller can log them.
func DecodeSignup(r io.Reader) (SignupRequest, []string, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return SignupRequest{}, nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	var dropped []string
	for key := range raw {
		if _, ok := signupFields[key]; !ok {
			dropped = append(dropped, key)
			delete(raw, key)
		}
	}
	sort.Strings(dropped)

	filtered, err := json.Marshal(raw)
	if err != nil {
		return SignupRequest{}, dropped, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	var req SignupRequest
	if err := json.Unmarshal(filtered, &req); err != nil {
		return SignupRequest{}, dropped, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	if err := Validate(req); err != nil {
		return SignupRequest{}, dropped, err
	}
	return req, dropped, nil
}

// DecodeJSON decodes a strict JSON body into dst and validates it.
func DecodeJSON(r io.Reader, dst interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return Validate(dst)
}

// Validate runs struct validation and converts the first failure into a *FieldError.
func Validate(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &FieldError{Field: fe.Field(), Message: fieldMessage(fe)}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case forms.FieldFirstName:
		if fe.Tag() == "required" {
			return forms.MsgFirstNameRequired
		}
	case forms.FieldLastName:
		if fe.Tag() == "required" {
			return forms.MsgLastNameRequired
		}
	case forms.FieldEmail:
		if fe.Tag() == "required" {
			return forms.MsgEmailRequired
		}
		return forms.MsgEmailInvalid
	case forms.FieldPassword:
		if fe.Tag() == "required" {
			return forms.MsgPasswordRequired
		}
		return forms.MsgPasswordWeak
	}
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "max":
		return fe.Field() + " is too long"
	default:
		return fe.Field() + " is invalid"
	}
}
