// Package validation wraps a shared validator instance configured for the
// ontology payloads.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/Blaze-0903/NextStepAI/internal/domain/job"

	"github.com/go-playground/validator/v10"
)

var ErrInvalid = errors.New("validation failed")

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the process-wide validator. It reports field names by
// their json tag and checks that role salary ranges are ordered.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		v.RegisterStructValidation(func(sl validator.StructLevel) {
			r, ok := sl.Current().Interface().(job.Role)
			if !ok {
				return
			}
			if !r.SalaryRange.Ordered() {
				sl.ReportError(r.SalaryRange, "salary_range", "SalaryRange", "ordered", "")
			}
		}, job.Role{})
		instance = v
	})
	return instance
}

// Struct validates v and flattens field failures into one ErrInvalid-wrapped error.
func Struct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(parts, "; "))
}
