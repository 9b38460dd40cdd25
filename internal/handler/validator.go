package handler

import (
    "errors"
    "fmt"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"

    "github.com/iliyamo/ecommerce-api/internal/apperr"
)

// Validator adapts go-playground/validator to echo.Validator.  Failures come
// back as InvalidInput naming the first offending field by its json name.
type Validator struct {
    v *validator.Validate
}

func NewValidator() *Validator {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
    err := cv.v.Struct(i)
    if err == nil {
        return nil
    }
    var ve validator.ValidationErrors
    if !errors.As(err, &ve) || len(ve) == 0 {
        return apperr.Wrap(apperr.InvalidInput, "invalid request", err)
    }
    return apperr.Wrap(apperr.InvalidInput, describe(ve[0]), err)
}

func describe(fe validator.FieldError) string {
    field := fe.Field()
    switch fe.Tag() {
    case "required":
        return field + " is required"
    case "email":
        return field + " must be a valid email"
    case "min":
        return fmt.Sprintf("%s must be at least %s", field, fe.Param())
    case "max":
        return fmt.Sprintf("%s must be at most %s", field, fe.Param())
    case "oneof":
        return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
    case "gte", "lte":
        return fmt.Sprintf("%s is out of range", field)
    default:
        return field + " is invalid"
    }
}
