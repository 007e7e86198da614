package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so that messages map onto form fields
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct returns a message per invalid field, or nil when s is valid
func validateStruct(s any) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return map[string]string{"form": "Invalid input"}
	}

	messages := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := messages[fe.Field()]; seen {
			continue
		}
		messages[fe.Field()] = fieldMessage(fe)
	}
	return messages
}

func fieldMessage(fe validator.FieldError) string {
	label := fe.Field()
	if label == "" {
		label = fe.StructField()
	}
	label = strings.ToUpper(label[:1]) + label[1:]
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Enter a valid email address"
	case "url":
		return "Enter a valid URL"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "oneof":
		return "Choose one of the offered options"
	default:
		return label + " is invalid"
	}
}
