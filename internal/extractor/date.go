package extractor

import (
	"fmt"
	"time"
)

// DateLayout tags the surface format a date substring was matched in.
type DateLayout string

// Supported surface formats.
const (
	LayoutISO           DateLayout = "YYYY-MM-DD"
	LayoutISOUnderscore DateLayout = "YYYY_MM_DD"
	LayoutUS            DateLayout = "MM-DD-YYYY"
	LayoutUSUnderscore  DateLayout = "MM_DD_YYYY"
	LayoutCompact       DateLayout = "YYYYMMDD"
)

// CanonicalLayout is the Go layout of normalised dates.
const CanonicalLayout = "2006-01-02"

var goLayouts = map[DateLayout]string{
	LayoutISO:           "2006-01-02",
	LayoutISOUnderscore: "2006_01_02",
	LayoutUS:            "01-02-2006",
	LayoutUSUnderscore:  "01_02_2006",
	LayoutCompact:       "20060102",
}

// Layouts returns every supported surface format.
func Layouts() []DateLayout {
	return []DateLayout{LayoutISO, LayoutISOUnderscore, LayoutUS, LayoutUSUnderscore, LayoutCompact}
}

// ParseDateLayout validates a layout tag.
func ParseDateLayout(s string) (DateLayout, error) {
	l := DateLayout(s)
	if _, ok := goLayouts[l]; !ok {
		return "", fmt.Errorf("unknown date layout %q", s)
	}
	return l, nil
}

// NormalizeDate converts raw, matched in the given surface format, to
// the canonical YYYY-MM-DD string. It returns false for unknown
// layouts, malformed input, and out-of-range months or days.
func NormalizeDate(raw string, layout DateLayout) (string, bool) {
	goLayout, ok := goLayouts[layout]
	if !ok {
		return "", false
	}
	t, err := time.Parse(goLayout, raw)
	if err != nil {
		return "", false
	}
	return t.Format(CanonicalLayout), true
}

// Render formats a canonical date back into the surface format.
func (l DateLayout) Render(canonical string) (string, error) {
	goLayout, ok := goLayouts[l]
	if !ok {
		return "", fmt.Errorf("unknown date layout %q", string(l))
	}
	t, err := time.Parse(CanonicalLayout, canonical)
	if err != nil {
		return "", fmt.Errorf("parse canonical date: %w", err)
	}
	return t.Format(goLayout), nil
}
