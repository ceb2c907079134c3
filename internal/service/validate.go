package service

import (
	"fmt"
	"reflect"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/iliyamo/restaurant-table-reservation/internal/errors"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// CreateInput is what a customer submits to book tables.
type CreateInput struct {
	CustomerName  string          `json:"customer_name" validate:"required,max=120"`
	CustomerPhone string          `json:"customer_phone" validate:"required,min=6,max=32"`
	CustomerEmail string          `json:"customer_email" validate:"required,email,max=254"`
	PartySize     int             `json:"party_size" validate:"required,min=1"`
	Date          civil.Date      `json:"date"`
	Slot          model.TimeSlot  `json:"slot"`
	TableIDs      []model.TableID `json:"table_ids" validate:"required,min=1,max=2,unique,dive,gt=0"`
}

// UpdateInput moves a pending reservation.  A nil PartySize keeps the
// current one.
type UpdateInput struct {
	Date      civil.Date      `json:"date"`
	Slot      model.TimeSlot  `json:"slot"`
	TableIDs  []model.TableID `json:"table_ids" validate:"required,min=1,max=2,unique,dive,gt=0"`
	PartySize *int            `json:"party_size" validate:"omitempty,min=1"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

func formatValidationErrors(err error) *pkgerrors.Error {
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := map[string]string{}
		for _, fe := range errs {
			details[fieldName(fe)] = validationMessage(fe)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

// fieldName folds "table_ids[1]" into "table_ids".
func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if i := strings.IndexByte(name, '['); i > 0 {
		return name[:i]
	}
	return name
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Field() == "table_ids" {
			return fmt.Sprintf("must list at least %s table", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Field() == "table_ids" {
			return fmt.Sprintf("must list at most %s tables", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "unique":
		return "must not repeat a table"
	case "gt":
		return "must be positive"
	case "email":
		return "must be a valid email"
	}
	return "is invalid"
}

// checkPlacement validates the parts of a booking the struct tags cannot:
// the date, the slot, the tables against the registry and the party size
// against their seats.  details collects every problem at once.
func (l *Lifecycle) checkPlacement(date civil.Date, slot model.TimeSlot, tables []model.TableID, partySize int) error {
	details := map[string]string{}
	if !date.IsValid() {
		details["date"] = "must be a calendar date"
	}
	if !l.calendar.Valid(slot) {
		details["slot"] = "is not a bookable slot"
	}
	if missing := l.tables.Missing(tables); len(missing) > 0 {
		details["table_ids"] = "unknown table " + model.FormatTableIDs(missing)
	} else if seats := l.tables.Capacity(tables); partySize > seats {
		details["party_size"] = fmt.Sprintf("exceeds the %d seats of the chosen tables", seats)
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}
