package schema

import (
	"strings"
	"time"

	"github.com/joehsn/formify/model"
)

// DateLayout is the canonical stored form of date answers.
const DateLayout = "2006-01-02"

// IsEmail accepts local@domain addresses whose domain contains a dot.
func IsEmail(s string) bool {
	if model.Validator().Var(s, "required,email") != nil {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// NormalizeDate parses a calendar date or an RFC 3339 timestamp and returns
// it as YYYY-MM-DD. Timestamps keep the day of their own offset.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.Format(DateLayout), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(DateLayout), true
	}
	return "", false
}
