package catalog

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator is the record validator shared by every kind. It knows the
// custom "hours" tag for opening-hours strings.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		if err := v.RegisterValidation("hours", func(fl validator.FieldLevel) bool {
			_, _, err := ParseHours(fl.Field().String())
			return err == nil
		}); err != nil {
			panic(err)
		}
		validate = v
	})
	return validate
}
