package usecase

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput runs struct tag validation and reports failures as model.ErrInvalidArgument
// with one value per failed field.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return goerr.Wrap(err, "failed to validate input")
	}

	opts := make([]goerr.Option, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		opts = append(opts, goerr.V(fe.Field(), fe.Tag()))
	}
	return goerr.Wrap(model.ErrInvalidArgument, "input validation failed", opts...)
}
