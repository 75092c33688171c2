package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmeshcher/invoice-service/internal/model"
)

// ParseDate разбирает календарную дату в формате YYYY-MM-DD.
func ParseDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, fmt.Errorf("%w: date must not be blank", model.ErrInvalidDateFormat)
	}

	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", model.ErrInvalidDateFormat, raw)
	}
	return d, nil
}

// ParseDateRange разбирает необязательные границы диапазона. nil означает, что параметр
// не передан; пустая строка считается ошибкой.
func ParseDateRange(startRaw, endRaw *string) (model.DateRange, error) {
	var r model.DateRange

	if startRaw != nil {
		start, err := ParseDate(*startRaw)
		if err != nil {
			return model.DateRange{}, fmt.Errorf("start date: %w", err)
		}
		r.Start = &start
	}

	if endRaw != nil {
		end, err := ParseDate(*endRaw)
		if err != nil {
			return model.DateRange{}, fmt.Errorf("end date: %w", err)
		}
		r.End = &end
	}

	if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		return model.DateRange{}, fmt.Errorf("%w: start %s is after end %s", model.ErrInvalidDateRange,
			r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
	}

	return r, nil
}
