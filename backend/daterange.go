package backend

import (
	"net/url"
	"time"

)

const dateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar days
type DateRange struct {
	From time.Time
	To   time.Time
}

// Range presets offered by the report filters
const (
	RangeToday = "today"
	Range7d    = "7d"
	Range30d   = "30d"
	RangeMonth = "month"
)

// PresetRange resolves a preset relative to now. Unknown presets fall back to the last 30 days.
func PresetRange(preset string, now time.Time) DateRange {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch preset {
	case RangeToday:
		return DateRange{From: today, To: today}
	case Range7d:
		return DateRange{From: today.AddDate(0, 0, -6), To: today}
	case RangeMonth:
		return DateRange{From: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), To: today}
	default:
		return DateRange{From: today.AddDate(0, 0, -29), To: today}
	}
}

// ParseRange reads from/to as YYYY-MM-DD
func ParseRange(from, to string) (DateRange, error) {
	f, err := time.Parse(dateLayout, from)
	if err != nil {
		return DateRange{}, invalid("fecha inicial inválida: %q", from)
	}
	t, err := time.Parse(dateLayout, to)
	if err != nil {
		return DateRange{}, invalid("fecha final inválida: %q", to)
	}
	if t.Before(f) {
		return DateRange{}, invalid("la fecha final es anterior a la inicial")
	}
	return DateRange{From: f, To: t}, nil
}

func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

func (r DateRange) values() url.Values {
	v := url.Values{}
	if !r.From.IsZero() {
		v.Set("from", r.From.Format(dateLayout))
	}
	if !r.To.IsZero() {
		v.Set("to", r.To.Format(dateLayout))
	}
	return v
}

func (r DateRange) String() string {
	if r.IsZero() {
		return ""
	}
	return r.From.Format(dateLayout) + " / " + r.To.Format(dateLayout)
}
