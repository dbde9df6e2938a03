package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"portops/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Upper bounds of the unit_price NUMERIC(12,2) and total_price NUMERIC(14,2) columns.
var (
	maxUnitPrice = decimal.New(1, 10)
	maxLineTotal = decimal.New(1, 12)
)

// requestValidator checks order requests with struct tags and reports the first
// failing field using its JSON path, e.g. "items[1].quantity".
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Money is validated on its canonical string form.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("money", isMoney)

	return &requestValidator{validate: v}
}

// isMoney accepts non-negative amounts below maxUnitPrice with at most two
// decimal places.
func isMoney(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return !d.IsNegative() && d.LessThan(maxUnitPrice) && d.Equal(d.Round(2))
}

// normalize trims user-entered text in place. Blank optional fields become nil.
func normalize(req *model.OrderRequest) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = trimOptional(req.CustomerEmail)
	req.Notes = trimOptional(req.Notes)
	for i := range req.Items {
		req.Items[i].ProductName = strings.TrimSpace(req.Items[i].ProductName)
	}
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Validate normalizes req and returns a *model.ValidationError for the first
// violation, or nil.
func (rv *requestValidator) Validate(req *model.OrderRequest) error {
	if req == nil {
		return model.NewValidationError(model.ErrCodeValidation, "", "order request is required")
	}

	normalize(req)

	err := rv.validate.Struct(req)
	if err == nil {
		return validateLineTotals(req)
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return model.NewValidationError(model.ErrCodeValidation, "", err.Error())
	}

	return toValidationError(fieldErrs[0])
}

// validateLineTotals rejects lines whose total would not fit the stored column.
// Individually valid quantity and price can still overflow together.
func validateLineTotals(req *model.OrderRequest) error {
	for i, item := range req.Items {
		if model.LineTotal(item.Quantity, *item.UnitPrice).GreaterThanOrEqual(maxLineTotal) {
			return model.NewValidationError(
				model.ErrCodeInvalidQuantity,
				fmt.Sprintf("items[%d].quantity", i),
				fmt.Sprintf("line total must be below %s", maxLineTotal.String()),
			)
		}
	}
	return nil
}

func toValidationError(fe validator.FieldError) *model.ValidationError {
	field := fieldPath(fe.Namespace())

	switch {
	case field == "items":
		return model.NewValidationError(model.ErrCodeEmptyOrder, field, "order must contain at least one item")
	case fe.Tag() == "required":
		return model.NewValidationError(model.ErrCodeMissingField, field, "is required")
	case fe.Tag() == "money":
		return model.NewValidationError(model.ErrCodeInvalidPrice, field,
			fmt.Sprintf("must be a non-negative amount below %s with at most 2 decimal places", maxUnitPrice.String()))
	case strings.HasSuffix(field, ".quantity") && fe.Tag() == "max":
		return model.NewValidationError(model.ErrCodeInvalidQuantity, field,
			fmt.Sprintf("must be at most %s", fe.Param()))
	case strings.HasSuffix(field, ".quantity"):
		return model.NewValidationError(model.ErrCodeInvalidQuantity, field, "must be a positive integer")
	case fe.Tag() == "max":
		return model.NewValidationError(model.ErrCodeValidation, field,
			fmt.Sprintf("must be at most %s characters", fe.Param()))
	default:
		return model.NewValidationError(model.ErrCodeValidation, field, fmt.Sprintf("failed %s check", fe.Tag()))
	}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
