package middleware

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/hospital-api/internal/model"
)

var registerOnce sync.Once

// RegisterValidators installs the domain validation tags on gin's validator.
// Field names in validation errors follow the json tags.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})

		if err = v.RegisterValidation("hospital_role", func(fl validator.FieldLevel) bool {
			return model.Role(fl.Field().String()).Valid()
		}); err != nil {
			return
		}
		err = v.RegisterValidation("appointment_status", func(fl validator.FieldLevel) bool {
			return model.AppointmentStatus(fl.Field().String()).Valid()
		})
	})
	return err
}
