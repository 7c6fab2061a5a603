package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/auth"
)

// New returns a configured validator with the custom "role" tag registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// role accepts any known role name; whether the caller may assign it to
	// themselves is decided by the registration flow.
	if err := v.RegisterValidation("role", validateRole); err != nil {
		panic(err)
	}

	return v
}

func validateRole(fl validatorv10.FieldLevel) bool {
	_, ok := auth.ParseRole(fl.Field().String())
	return ok
}
