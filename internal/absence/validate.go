package absence

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks that all fields of the write are set and consistent
func (w Write) Validate() error {
	err := validate.Struct(w)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			errs = append(errs, fmt.Errorf("%s is required", fe.Namespace()))
		case "gtefield":
			errs = append(errs, fmt.Errorf("%s must not be before %s", fe.Namespace(), fe.Param()))
		case "oneof":
			errs = append(errs, fmt.Errorf("%s must be one of %s", fe.Namespace(), fe.Param()))
		default:
			errs = append(errs, fmt.Errorf("%s failed validation %q", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid absence: %w", errors.Join(errs...))
}
