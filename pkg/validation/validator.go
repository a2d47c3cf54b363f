package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldError is one failed rule, already rendered into a message.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates s against its validate tags and returns every failure.
func Struct(s interface{}) []FieldError {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []FieldError{{Message: err.Error()}}
	}

	result := make([]FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		result = append(result, FieldError{
			Field:   e.Field(),
			Tag:     e.Tag(),
			Message: Message(e.Field(), e.Tag(), e.Param()),
		})
	}
	return result
}

// Message prefers a field-specific message and falls back to the generic one.
func Message(field, tag, param string) string {
	if fieldMessages := CustomMessage(field); fieldMessages != nil {
		if msg, ok := fieldMessages[tag]; ok {
			return msg
		}
	}
	return DefaultMessage(field, tag, param)
}

// HasTag reports whether any failure was raised by tag.
func HasTag(errs []FieldError, tag string) bool {
	for _, e := range errs {
		if e.Tag == tag {
			return true
		}
	}
	return false
}

func Messages(errs []FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Message)
	}
	return out
}
