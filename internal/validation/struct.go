package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/Kellia855/mindbridge/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the application's custom tags:
// date (YYYY-MM-DD), clock (HH:MM), session_type, post_category and
// book_category.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		must(v.RegisterValidation("date", layoutValidator(models.DateLayout)))
		must(v.RegisterValidation("clock", layoutValidator(models.TimeLayout)))
		must(v.RegisterValidation("session_type", func(fl validator.FieldLevel) bool {
			return models.SessionType(fl.Field().String()).Valid()
		}))
		must(v.RegisterValidation("post_category", func(fl validator.FieldLevel) bool {
			return models.PostCategory(fl.Field().String()).Valid()
		}))
		must(v.RegisterValidation("book_category", func(fl validator.FieldLevel) bool {
			return models.BookCategory(fl.Field().String()).Valid()
		}))
		instance = v
	})
	return instance
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func layoutValidator(layout string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) != len(layout) {
			return false
		}
		_, err := time.Parse(layout, s)
		return err == nil
	}
}

// Struct validates s and converts failures into a VALIDATION_ERROR AppError
// naming every offending field.
func Struct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.NewValidationError(err.Error())
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return models.NewValidationError(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "url":
		return field + " must be a valid URL"
	case "date":
		return field + " must use the YYYY-MM-DD format"
	case "clock":
		return field + " must use the HH:MM format"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "session_type", "post_category", "book_category":
		return fmt.Sprintf("%s has an unknown value %q", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
