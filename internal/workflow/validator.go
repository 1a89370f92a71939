package workflow

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Lllllllleong/bookingworkflow/internal/models"
)

// requiredTextFields are checked in this order so error lists are stable.
var requiredTextFields = []string{
	models.FieldContactName,
	models.FieldContactPhone,
	models.FieldCompanyName,
	models.FieldAddress,
	models.FieldDate,
	models.FieldTime,
}

var optionalTextFields = []string{
	models.FieldContactEmail,
	models.FieldCompanyURL,
	models.FieldNotes,
	models.FieldRecordID,
}

// Validate returns every problem with the event. An empty result means the
// event can be normalised.
func Validate(event models.InboundEvent) []models.ValidationError {
	var errs []models.ValidationError

	for _, field := range requiredTextFields {
		raw, ok := event[field]
		if !ok || raw == nil {
			errs = append(errs, requiredError(field))
			continue
		}
		s, ok := raw.(string)
		if !ok {
			errs = append(errs, models.ValidationError{
				Field:   field,
				Code:    models.CodeInvalidType,
				Message: fmt.Sprintf("%s must be a string", field),
			})
			continue
		}
		if strings.TrimSpace(s) == "" {
			errs = append(errs, requiredError(field))
		}
	}

	for _, field := range optionalTextFields {
		raw, ok := event[field]
		if !ok || raw == nil {
			continue
		}
		if _, ok := raw.(string); !ok {
			errs = append(errs, models.ValidationError{
				Field:   field,
				Code:    models.CodeInvalidType,
				Message: fmt.Sprintf("%s must be a string", field),
			})
		}
	}

	if _, err := sizeFromEvent(event); err != nil {
		errs = append(errs, *err)
	}
	return errs
}

// Normalize converts an event that passed Validate into a ValidatedRequest.
func Normalize(event models.InboundEvent) (models.ValidatedRequest, error) {
	if errs := Validate(event); len(errs) > 0 {
		return models.ValidatedRequest{}, &ValidationFailedError{Errors: errs}
	}
	size, _ := sizeFromEvent(event)
	text := func(field string) string {
		s, _ := event[field].(string)
		return strings.TrimSpace(s)
	}
	return models.ValidatedRequest{
		ContactName:   text(models.FieldContactName),
		ContactPhone:  text(models.FieldContactPhone),
		ContactEmail:  text(models.FieldContactEmail),
		CompanyName:   text(models.FieldCompanyName),
		CompanyURL:    text(models.FieldCompanyURL),
		Address:       text(models.FieldAddress),
		Date:          text(models.FieldDate),
		Time:          text(models.FieldTime),
		EstimatedSize: size,
		Notes:         text(models.FieldNotes),
		RecordID:      text(models.FieldRecordID),
	}, nil
}

func requiredError(field string) models.ValidationError {
	return models.ValidationError{
		Field:   field,
		Code:    models.CodeRequired,
		Message: fmt.Sprintf("%s is required", field),
	}
}

// sizeFromEvent accepts a JSON number or a numeric string such as "1,500".
func sizeFromEvent(event models.InboundEvent) (float64, *models.ValidationError) {
	field := models.FieldEstimatedSize
	raw, ok := event[field]
	if !ok || raw == nil {
		e := requiredError(field)
		return 0, &e
	}

	invalid := &models.ValidationError{
		Field:   field,
		Code:    models.CodeInvalidNumber,
		Message: fmt.Sprintf("%s must be a non-negative number", field),
	}

	var size float64
	switch v := raw.(type) {
	case float64:
		size = v
	case float32:
		size = float64(v)
	case int:
		size = float64(v)
	case int64:
		size = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, invalid
		}
		size = f
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
		if s == "" {
			e := requiredError(field)
			return 0, &e
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, invalid
		}
		size = f
	default:
		return 0, invalid
	}

	if math.IsNaN(size) || math.IsInf(size, 0) || size < 0 {
		return 0, invalid
	}
	return size, nil
}
