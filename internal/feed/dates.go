package feed

import (
	"net/mail"
	"strings"
	"time"
)

var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04-07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// rfc822Zones are the zone names RFC 822 defines besides GMT. time.Parse
// would record them at a zero offset.
var rfc822Zones = map[string]string{
	"UT":  "+0000",
	"UTC": "+0000",
	"AST": "-0400",
	"ADT": "-0300",
	"EST": "-0500",
	"EDT": "-0400",
	"CST": "-0600",
	"CDT": "-0500",
	"MST": "-0700",
	"MDT": "-0600",
	"PST": "-0800",
	"PDT": "-0700",
}

// numericZone replaces a trailing RFC 822 zone name with its offset.
func numericZone(raw string) string {
	i := strings.LastIndexByte(raw, ' ')
	if i < 0 {
		return raw
	}
	if offset, ok := rfc822Zones[strings.ToUpper(raw[i+1:])]; ok {
		return raw[:i+1] + offset
	}
	return raw
}

// ParseDate normalizes a feed timestamp. Mail-style dates (RSS) are tried
// first, then ISO-8601 (Atom). Values without an offset are taken as UTC.
// Unparseable input yields nil.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if t, err := mail.ParseDate(numericZone(raw)); err == nil {
		return &t
	}

	s := strings.ReplaceAll(raw, "Z", "+00:00")
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
