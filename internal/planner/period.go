package planner

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidPeriodToken is returned for period tokens that do not end
// in a recognized term suffix.
var ErrInvalidPeriodToken = errors.New("invalid period token")

// Period tokens encode a 4-digit year followed by a 2-digit term
// suffix: "10" is the first term, "20" the second. Incrementing wraps
// the second term into the first term of the next year.
const (
	termFirst  = "10"
	termSecond = "20"
)

// NextPeriodToken advances a period token by one academic term:
// 202410 -> 202420 -> 202510.
func NextPeriodToken(token string) (string, error) {
	if len(token) != 6 {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriodToken, token)
	}

	year, err := strconv.Atoi(token[:4])
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriodToken, token)
	}

	switch token[4:] {
	case termFirst:
		return fmt.Sprintf("%04d%s", year, termSecond), nil
	case termSecond:
		return fmt.Sprintf("%04d%s", year+1, termFirst), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriodToken, token)
	}
}

// AdvancePeriodToken applies NextPeriodToken n times. n = 0 validates
// the token and returns it unchanged.
func AdvancePeriodToken(token string, n int) (string, error) {
	if _, err := NextPeriodToken(token); err != nil {
		return "", err
	}
	current := token
	for i := 0; i < n; i++ {
		next, err := NextPeriodToken(current)
		if err != nil {
			return "", err
		}
		current = next
	}
	return current, nil
}
