package validation

import (
	"regexp"
	"strings"
	"time"

	apperrors "bankcards/internal/errors"
	"bankcards/internal/models"
)

var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/([0-9]{2})$`)

// NormalizePAN strips spaces and dashes from a card number and checks the
// remaining digits for length and Luhn checksum.
func NormalizePAN(pan string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '\t' {
			return -1
		}
		return r
	}, pan)

	if len(digits) < MinPANLength || len(digits) > MaxPANLength {
		return "", apperrors.ErrInvalidCardNumber
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", apperrors.ErrInvalidCardNumber
		}
	}
	if !luhnValid(digits) {
		return "", apperrors.ErrInvalidCardNumber
	}
	return digits, nil
}

func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ParseExpiry parses an MM/YY expiry and returns the last day of that month
// in UTC. The month must be strictly after the month containing now.
func ParseExpiry(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if !expiryPattern.MatchString(value) {
		return time.Time{}, apperrors.InvalidExpiryDate(value)
	}

	monthStart, err := time.Parse(models.ExpiryLayout, value)
	if err != nil {
		return time.Time{}, apperrors.InvalidExpiryDate(value)
	}

	now = now.UTC()
	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if !monthStart.After(currentMonth) {
		return time.Time{}, apperrors.InvalidExpiryDate(value)
	}

	return monthStart.AddDate(0, 1, -1), nil
}
