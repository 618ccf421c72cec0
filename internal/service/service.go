// Package service validates user input and runs the customer, catalog and estimate workflows on top of the store.
package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// ValidationError maps form field names to human readable messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func invalid(field, msg string) *ValidationError {
	ve := &ValidationError{}
	ve.add(field, msg)
	return ve
}

// fromValidation converts ozzo-validation errors into a ValidationError.
// Internal rule failures are returned unchanged.
func fromValidation(err error) *ValidationError {
	if err == nil {
		return &ValidationError{}
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return invalid("form", err.Error())
	}
	ve := &ValidationError{}
	flatten("", errs, ve)
	return ve
}

func flatten(prefix string, errs validation.Errors, ve *ValidationError) {
	for field, err := range errs {
		if err == nil {
			continue
		}
		key := field
		if prefix != "" {
			key = prefix + "." + field
		}
		var nested validation.Errors
		if errors.As(err, &nested) {
			flatten(key, nested, ve)
			continue
		}
		ve.add(key, err.Error())
	}
}

func validateStruct(structPtr any, fields ...*validation.FieldRules) *ValidationError {
	err := validation.ValidateStruct(structPtr, fields...)
	if err == nil {
		return &ValidationError{}
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return invalid("form", internal.Error())
	}
	return fromValidation(err)
}

var (
	errOutOfRange  = validation.NewError("validation_out_of_range", "must be between {{.min}} and {{.max}}")
	errNegative    = validation.NewError("validation_negative", "must not be negative")
	errNotPositive = validation.NewError("validation_not_positive", "must be greater than 0")
)

var hundred = decimal.NewFromInt(100)

func decimalBetween(lo, hi decimal.Decimal) validation.Rule {
	return validation.By(func(value any) error {
		d, ok := value.(decimal.Decimal)
		if !ok {
			return nil
		}
		if d.LessThan(lo) || d.GreaterThan(hi) {
			return errOutOfRange.SetParams(map[string]any{"min": lo.String(), "max": hi.String()})
		}
		return nil
	})
}

func nullDecimalBetween(lo, hi decimal.Decimal) validation.Rule {
	inner := decimalBetween(lo, hi)
	return validation.By(func(value any) error {
		if d, ok := value.(decimal.NullDecimal); ok && d.Valid {
			return inner.Validate(d.Decimal)
		}
		return nil
	})
}

func decimalNotNegative() validation.Rule {
	return validation.By(func(value any) error {
		if d, ok := value.(decimal.Decimal); ok && d.IsNegative() {
			return errNegative
		}
		return nil
	})
}

// nullDecimalPositive accepts an unset value.
func nullDecimalPositive() validation.Rule {
	return validation.By(func(value any) error {
		if d, ok := value.(decimal.NullDecimal); ok && d.Valid && !d.Decimal.IsPositive() {
			return errNotPositive
		}
		return nil
	})
}

func intNotNegative() validation.Rule {
	return validation.By(func(value any) error {
		if n, ok := value.(*int); ok && n != nil && *n < 0 {
			return errNegative
		}
		return nil
	})
}

func trim(s string) string { return strings.TrimSpace(s) }
