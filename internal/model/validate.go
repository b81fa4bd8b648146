package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// FieldError is a single failed validation rule.
type FieldError struct {
	Field string
	Rule  string
	Param string
	Value any
}

// ValidationError lists every rule a value failed.
type ValidationError struct {
	Type   string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid %s:", e.Type)
	for _, fe := range e.Fields {
		fmt.Fprintf(&b, " field '%s' failed rule '%s'", fe.Field, fe.Rule)
		if fe.Param != "" {
			fmt.Fprintf(&b, " (%s)", fe.Param)
		}
		b.WriteString(";")
	}
	return strings.TrimSuffix(b.String(), ";")
}

// Validate runs struct validation on value and converts failures into a
// *ValidationError.
func Validate[T any](value T) error {
	err := validate.Struct(value)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Type: fmt.Sprintf("%T", value)}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: fe.StructField(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
			Value: fe.Value(),
		})
	}
	return out
}
