package model

import (
	"fmt"
	"regexp"
	"time"
)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ParsePeriod parses a "YYYY-MM" period into the first day of that month (UTC).
func ParsePeriod(period string) (time.Time, error) {
	if !periodPattern.MatchString(period) {
		return time.Time{}, fmt.Errorf("invalid period %q: want YYYY-MM", period)
	}
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid period %q: %w", period, err)
	}
	return t, nil
}

// ValidPeriod reports whether period is a well-formed "YYYY-MM" string.
func ValidPeriod(period string) bool {
	_, err := ParsePeriod(period)
	return err == nil
}

// PeriodEnd returns the last calendar day of period as "YYYY-MM-DD".
func PeriodEnd(period string) (string, error) {
	start, err := ParsePeriod(period)
	if err != nil {
		return "", err
	}
	return start.AddDate(0, 1, -1).Format(time.DateOnly), nil
}

// PreviousPeriod returns the period immediately before period.
func PreviousPeriod(period string) (string, error) {
	start, err := ParsePeriod(period)
	if err != nil {
		return "", err
	}
	return start.AddDate(0, -1, 0).Format("2006-01"), nil
}

// DefaultPeriod is the year-end period of a fiscal year.
func DefaultPeriod(fiscalYear int) string {
	return fmt.Sprintf("%04d-12", fiscalYear)
}
