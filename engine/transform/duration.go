package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sheetbridge/sheetbridge/engine/core"
)

const hoursPerDay = 8

// ParseISODuration converts an ISO-8601 duration into total hours. Only
// day, hour, minute and second designators are accepted; year, month and
// week designators are rejected explicitly rather than misconverted.
func ParseISODuration(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, core.NewDataError("empty duration", nil)
	}
	negative := false
	if strings.HasPrefix(trimmed, "-") {
		negative = true
		trimmed = trimmed[1:]
	}
	if !strings.HasPrefix(trimmed, "P") {
		return 0, core.NewDataError(fmt.Sprintf("duration %q does not start with P", s), nil)
	}
	body := trimmed[1:]
	inTime := false
	hours := 0.0
	sawComponent := false
	for len(body) > 0 {
		if body[0] == 'T' {
			inTime = true
			body = body[1:]
			continue
		}
		numLen := 0
		for numLen < len(body) && (body[numLen] >= '0' && body[numLen] <= '9' || body[numLen] == '.') {
			numLen++
		}
		if numLen == 0 || numLen == len(body) {
			return 0, core.NewDataError(fmt.Sprintf("malformed duration %q", s), nil)
		}
		value, err := strconv.ParseFloat(body[:numLen], 64)
		if err != nil {
			return 0, core.NewDataError(fmt.Sprintf("malformed duration %q", s), err)
		}
		designator := body[numLen]
		body = body[numLen+1:]
		sawComponent = true
		switch {
		case !inTime && designator == 'Y':
			return 0, core.NewDataError(fmt.Sprintf("duration %q uses the year designator, which is not supported", s), nil)
		case !inTime && designator == 'M':
			return 0, core.NewDataError(fmt.Sprintf("duration %q uses the month designator, which is not supported", s), nil)
		case !inTime && designator == 'W':
			return 0, core.NewDataError(fmt.Sprintf("duration %q uses the week designator, which is not supported", s), nil)
		case !inTime && designator == 'D':
			hours += value * hoursPerDay
		case inTime && designator == 'H':
			hours += value
		case inTime && designator == 'M':
			hours += value / 60
		case inTime && designator == 'S':
			hours += value / 3600
		default:
			return 0, core.NewDataError(fmt.Sprintf("duration %q has unknown designator %q", s, string(designator)), nil)
		}
	}
	if !sawComponent {
		return 0, core.NewDataError(fmt.Sprintf("duration %q has no components", s), nil)
	}
	if negative {
		hours = -hours
	}
	return hours, nil
}

// DurationDays converts an ISO duration to decimal days (8h workdays),
// rounded to two decimals. Used by the project-sheet Duration column.
func DurationDays(s string) (float64, error) {
	hours, err := ParseISODuration(s)
	if err != nil {
		return 0, err
	}
	return math.Round(hours/hoursPerDay*100) / 100, nil
}

// DurationHoursText converts an ISO duration to the "<hours>h" text form
// used by Work and Actual Work columns.
func DurationHoursText(s string) (string, error) {
	hours, err := ParseISODuration(s)
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(math.Round(hours*100)/100, 'f', -1, 64) + "h", nil
}
