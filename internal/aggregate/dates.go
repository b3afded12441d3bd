package aggregate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
)

// serialEpoch is day zero of spreadsheet date serials.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// maxSerial is 9999-12-31, the last day a spreadsheet serial can express.
const maxSerial = 2958465

// compactLayout reads eight-digit integers such as 20240115.
const compactLayout = "20060102"

// dateLayouts are tried in order for textual dates. Ambiguous numeric
// forms are read month first.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"01-02-2006",
	"02-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate interprets a cell as a date. Eight-digit integers are read as
// yyyymmdd. Other numeric cells are day serials counted from 1899-12-30,
// the fraction being the time of day; serials outside [1, 9999-12-31] are
// rejected.
func ParseDate(cell string) (time.Time, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", common.ErrInvalidDate)
	}

	if len(s) == len(compactLayout) && isDigits(s) {
		if t, err := time.ParseInLocation(compactLayout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	if days, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(days) || days < 1 || days >= maxSerial+1 {
			return time.Time{}, fmt.Errorf("%w: serial %q out of range", common.ErrInvalidDate, cell)
		}
		whole := math.Floor(days)
		frac := days - whole
		t := serialEpoch.AddDate(0, 0, int(whole))
		return t.Add(time.Duration(math.Round(frac * float64(24*time.Hour)))), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", common.ErrInvalidDate, cell)
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
