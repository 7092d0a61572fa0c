package utils

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs go-playground validation on an input struct.
// Request structs in the HTTP layer and workflow inputs share it.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}
