package model

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/Rhymond/go-money"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared struct validator. Decimal fields compare as
// float64 so numeric tags (gt, lte) work on them; "currency" checks ISO 4217
// codes and "period" checks YYYY-MM strings.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
		_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
			return KnownCurrency(fl.Field().String())
		})
		_ = v.RegisterValidation("period", func(fl validator.FieldLevel) bool {
			return ValidPeriod(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// KnownCurrency reports whether code is an ISO 4217 currency code.
func KnownCurrency(code string) bool {
	return code != "" && money.GetCurrency(code) != nil
}

// RoundToCurrency rounds amount to the minor unit of currency. Unknown
// currencies round to two places.
func RoundToCurrency(amount decimal.Decimal, currency string) decimal.Decimal {
	if cur := money.GetCurrency(currency); cur != nil {
		return amount.Round(int32(cur.Fraction))
	}
	return amount.Round(2)
}

// Validate runs struct validation and flattens failures into one error.
func Validate(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	fields := FieldErrors(err)
	if fields == nil {
		return err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}
	return fmt.Errorf("invalid %T: %s", v, strings.Join(parts, "; "))
}

// FieldErrors maps each failing field namespace to the tag that failed.
// It returns nil when err is not a validation error.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Namespace()] = fe.Tag()
	}
	return out
}
