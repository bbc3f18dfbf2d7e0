package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"param", "query", "json"} {
			if name := strings.Split(f.Tag.Get(tag), ",")[0]; name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

// ReadAndValidateRequest binds path and query parameters into req, fills
// `default` tags and validates the result. It returns nil or a
// []ValidationError suitable for BadRequestResponse.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return validatorDefaultRules(err)
	}
	if err := defaults.Set(req); err != nil {
		return validatorDefaultRules(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return validatorDefaultRules(err)
	}
	return nil
}

func validatorDefaultRules(err error) []ValidationError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]ValidationError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldError(fe))
		}
		return out
	}

	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprintf("%v", he.Message)
	}
	return []ValidationError{{Code: "ERR_UNKNOWN", Message: msg}}
}

func fieldError(fe validator.FieldError) ValidationError {
	field := fe.Field()
	ve := ValidationError{
		Code:  "ERR_" + strings.ToUpper(fe.Tag()),
		Field: field,
	}

	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		ve.Message = field + " is required"
	case "printascii", "alphanumunicode":
		ve.Message = field + " contains unsupported characters"
	case "min", "gte":
		ve.Message = fmt.Sprintf("%s must be at least %s%s", field, fe.Param(), unit)
		ve.Params = map[string]interface{}{"min": fe.Param()}
	case "max", "lte":
		ve.Message = fmt.Sprintf("%s must be at most %s%s", field, fe.Param(), unit)
		ve.Params = map[string]interface{}{"max": fe.Param()}
	case "oneof":
		opts := strings.Fields(fe.Param())
		ve.Message = fmt.Sprintf("%s must be one of: %s", field, strings.Join(opts, ", "))
		ve.Params = map[string]interface{}{"options": opts}
	default:
		ve.Message = fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
	return ve
}
