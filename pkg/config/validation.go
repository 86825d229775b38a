package config

import (
	"reflect"

	tcerr "github.com/tosca-platform/tosca-core/pkg/errors"
)

// Validator is an optional interface for configuration structs that
// need validation beyond the `required` tag. If the struct passed to
// [Loader.Load] implements Validator, its Validate method runs after
// tag-based validation succeeds.
//
// Errors that are already [*tcerr.Error] pass through unchanged; other
// errors are wrapped with [tcerr.CodeValidation].
type Validator interface {
	Validate() error
}

// validate performs tag-based required validation and then invokes the
// Validator interface if implemented.
func validate(cfg any, rv reflect.Value) error {
	if err := validateRequired(rv, ""); err != nil {
		return err
	}

	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			if _, isTCErr := tcerr.AsError(err); isTCErr {
				return err
			}
			return tcerr.Wrap(err, tcerr.CodeValidation,
				"config: custom validation failed")
		}
	}

	return nil
}

// validateRequired recursively checks that all fields tagged
// `required:"true"` hold non-zero values. The path parameter carries
// the dotted field path for error messages.
func validateRequired(rv reflect.Value, path string) error {
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		if !field.CanSet() {
			continue
		}

		fieldPath := sf.Name
		if path != "" {
			fieldPath = path + "." + sf.Name
		}

		if field.Kind() == reflect.Struct {
			if err := validateRequired(field, fieldPath); err != nil {
				return err
			}
			continue
		}

		if sf.Tag.Get("required") != "true" {
			continue
		}

		if field.IsZero() {
			return tcerr.Newf(tcerr.CodeValidationRequired,
				"config: required field %q is empty", fieldPath)
		}
	}

	return nil
}
