package core

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// FieldErrors flattens validation failures into {field: message}.
// It returns nil when err carries no field level information.
func FieldErrors(err error, translator ut.Translator) map[string]string {
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		fldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fldErrs[fieldPath(vErr)] = vErr.Translate(translator)
		}
		return fldErrs
	case *ValidationError:
		if origErr.Fields == nil {
			return nil
		}
		fldErrs := make(map[string]string, len(origErr.Fields))
		for _, fErr := range origErr.Fields {
			fldErrs[fErr.Field] = fErr.Error
		}
		return fldErrs
	default:
		return nil
	}
}

// IsValidationError reports whether err is caused by invalid input.
func IsValidationError(err error) bool {
	switch errors.Cause(err).(type) {
	case validator.ValidationErrors, *ValidationError:
		return true
	default:
		return false
	}
}

// fieldPath drops the root struct name from the namespace:
// "NewFamily.alumnos[0].run" -> "alumnos[0].run".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	for i := 0; i < len(ns); i++ {
		if ns[i] == '.' {
			return ns[i+1:]
		}
	}
	return fe.Field()
}
