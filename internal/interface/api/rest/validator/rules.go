package validator

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Rule inspects one field value and returns a violation message, or ""
// when the value is acceptable. Rules are pure.
type Rule[T any] func(v T) string

// Check runs every rule against v in order and appends each violation to
// errs. It never stops at the first failure.
func Check[T any](errs []string, v T, rules ...Rule[T]) []string {
	for _, rule := range rules {
		if msg := rule(v); msg != "" {
			errs = append(errs, msg)
		}
	}
	return errs
}

func NotBlank(msg string) Rule[string] {
	return func(v string) string {
		if strings.TrimSpace(v) == "" {
			return msg
		}
		return ""
	}
}

func MinRunes(n int, msg string) Rule[string] {
	return func(v string) string {
		if utf8.RuneCountInString(v) < n {
			return msg
		}
		return ""
	}
}

func MaxRunes(n int, msg string) Rule[string] {
	return func(v string) string {
		if utf8.RuneCountInString(v) > n {
			return msg
		}
		return ""
	}
}

func MaxBytes(n int, msg string) Rule[string] {
	return func(v string) string {
		if len(v) > n {
			return msg
		}
		return ""
	}
}

func Matches(re *regexp.Regexp, msg string) Rule[string] {
	return func(v string) string {
		if !re.MatchString(v) {
			return msg
		}
		return ""
	}
}

// Email accepts a bare address only; display names are rejected. Blank
// values are left to NotBlank.
func Email(msg string) Rule[string] {
	return func(v string) string {
		if v == "" {
			return ""
		}
		addr, err := mail.ParseAddress(v)
		if err != nil || addr.Address != v {
			return msg
		}
		return ""
	}
}

// When applies rule only if cond holds for the value.
func When[T any](cond func(T) bool, rule Rule[T]) Rule[T] {
	return func(v T) string {
		if !cond(v) {
			return ""
		}
		return rule(v)
	}
}

// Date checks the value parses as a calendar date. Blank values are left
// to NotBlank.
func Date(msg string) Rule[string] {
	return func(v string) string {
		if strings.TrimSpace(v) == "" {
			return ""
		}
		if _, err := ParseDate(v); err != nil {
			return msg
		}
		return ""
	}
}

// MinAge checks the date is at least years before today. Unparseable
// values are left to Date.
func MinAge(years int, today func() time.Time, msg string) Rule[string] {
	return func(v string) string {
		d, err := ParseDate(v)
		if err != nil {
			return ""
		}
		t := today().UTC()
		// shift the birth date, not today: 29 February must not become 1 March
		if d.AddDate(years, 0, 0).After(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)) {
			return msg
		}
		return ""
	}
}

var dateLayouts = []string{time.DateOnly, time.RFC3339, "2006-01-02T15:04:05"}

// ParseDate reads YYYY-MM-DD (or a timestamp, whose date part is kept) and
// returns midnight UTC of that day.
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	var (
		t   time.Time
		err error
	)
	for _, layout := range dateLayouts {
		if t, err = time.Parse(layout, v); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, err
}
