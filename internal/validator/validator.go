package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/agenttrace/traceview/internal/domain"
)

// V is the shared validator instance
var V = newValidate()

// customTag is a validation tag that checks a domain enum
type customTag struct {
	name    string
	message string
	valid   func(string) bool
}

var customTags = []customTag{
	{
		name:    "compression",
		message: "must be one of: gzip none",
		valid:   func(s string) bool { return domain.ExportCompression(s).IsValid() },
	},
	{
		name:    "store_driver",
		message: "must be one of: clickhouse postgres sqlite",
		valid:   func(s string) bool { return domain.StoreDriver(s).IsValid() },
	},
}

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(tagName)
	for _, tag := range customTags {
		valid := tag.valid
		if err := v.RegisterValidation(tag.name, func(fl validator.FieldLevel) bool {
			return valid(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag.name, err))
		}
	}
	return v
}

// tagName reports json names, falling back to mapstructure names for config
// structs and to the Go name when neither is set
func tagName(fld reflect.StructField) string {
	for _, key := range []string{"json", "mapstructure"} {
		name, _, _ := strings.Cut(fld.Tag.Get(key), ",")
		switch name {
		case "-":
			return ""
		case "":
			continue
		}
		return name
	}
	return ""
}

// ValidationError is one failed field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is every failed field of one struct
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Field + ": " + err.Message
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the errors keyed by field
func (e ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(e))
	for _, err := range e {
		out[err.Field] = err.Message
	}
	return out
}

// Validate checks v against its validate tags. Field failures come back as
// ValidationErrors; anything else (a nil or non-struct v) is returned as is.
func Validate(v any) error {
	err := V.Struct(v)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = ValidationError{Field: fieldName(fe), Message: message(fe)}
	}
	return out
}

// IsValidationError reports whether err holds field failures
func IsValidationError(err error) bool {
	var verrs ValidationErrors
	return errors.As(err, &verrs)
}

// fieldName drops the top-level struct name from the namespace, e.g.
// "Config.query.cache_ttl" becomes "query.cache_ttl"
func fieldName(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	for _, tag := range customTags {
		if tag.name == fe.Tag() {
			return tag.message
		}
	}

	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s%s", fe.Param(), unit)
	case "max":
		return fmt.Sprintf("must be at most %s%s", fe.Param(), unit)
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	}
	return "failed validation: " + fe.Tag()
}
