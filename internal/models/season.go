package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSeason is returned when a season identifier is not a plausible year
var ErrInvalidSeason = errors.New("invalid season")

const (
	minSeason = 1920
	maxSeason = 2100
)

// ParseSeason coerces a season identifier ("2024", " 2024 ") to a year
func ParseSeason(s string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSeason, s)
	}
	if year < minSeason || year > maxSeason {
		return 0, fmt.Errorf("%w: %d out of range", ErrInvalidSeason, year)
	}
	return year, nil
}
