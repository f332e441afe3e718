package validator

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

const DateLayout = "2006-01-02"

// Validator wraps go-playground/validator with the date rules used by search requests.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	return &Validator{v: v}
}

func (val *Validator) Struct(s any) error {
	return val.v.Struct(s)
}

func (val *Validator) Var(field any, tag string) error {
	return val.v.Var(field, tag)
}

func ValidateDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(DateLayout, dateStr)
	if err != nil {
		return time.Time{}, errors.New("invalid date " + dateStr)
	}
	return t, nil
}

// FieldErrors flattens validator output into "field: tag" strings.
func FieldErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			out = append(out, fe.Field()+": "+fe.Tag()+"="+fe.Param())
			continue
		}
		out = append(out, fe.Field()+": "+fe.Tag())
	}
	return out
}
