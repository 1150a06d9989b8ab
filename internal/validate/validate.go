// Package validate checks records before they are written.
//
// Rules live on the model structs as `validate` tags. Violations are
// reported per JSON field name and always match types.ErrInvalidArgument.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/planttracer/odb/internal/types"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return val
}

// FieldError is one rule violation.
type FieldError struct {
	Field string
	Rule  string
	Param string
	Value interface{}
}

func (e FieldError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: failed %s=%s (got %v)", e.Field, e.Rule, e.Param, e.Value)
	}
	return fmt.Sprintf("%s: failed %s (got %v)", e.Field, e.Rule, e.Value)
}

// Errors collects the violations found in one record.
type Errors []FieldError

func (es Errors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return types.ErrInvalidArgument.Error() + ": " + strings.Join(parts, "; ")
}

func (es Errors) Unwrap() error {
	return types.ErrInvalidArgument
}

// Fields returns the names of the offending fields.
func (es Errors) Fields() []string {
	names := make([]string, len(es))
	for i, e := range es {
		names[i] = e.Field
	}
	return names
}

// Struct validates s against its tags.
func Struct(s interface{}) error {
	return convert(v.Struct(s), "")
}

// Var validates a single value against tag, reporting it as field.
func Var(field string, value interface{}, tag string) error {
	return convert(v.Var(value, tag), field)
}

// Email checks address format.
func Email(address string) error {
	return Var("email", address, "required,email")
}

// Flag checks a 0/1 flag.
func Flag(field string, value int) error {
	return Var(field, value, "oneof=0 1")
}

func convert(err error, field string) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		name := field
		if name == "" {
			// drop the struct name: "MovieFrame.trackpoints[0].frame_number"
			_, rest, ok := strings.Cut(fe.Namespace(), ".")
			if !ok {
				rest = fe.Field()
			}
			name = rest
		}
		out = append(out, FieldError{Field: name, Rule: fe.Tag(), Param: fe.Param(), Value: fe.Value()})
	}
	return out
}
