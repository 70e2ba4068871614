package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

// Frequency values recognized by the occurrence generator. FREQ is kept as a
// raw string on the rule; anything outside this set makes no date progress
// during generation and is bounded only by the safety cap.
const (
	FreqDaily   = "DAILY"
	FreqWeekly  = "WEEKLY"
	FreqMonthly = "MONTHLY"
	FreqYearly  = "YEARLY"
)

// Rule is the structured form of a stored recurrence rule string. It is
// derived on demand by ParseRule and never persisted or mutated.
type Rule struct {
	// Freq is the raw FREQ token. Empty means the event does not repeat.
	Freq string
	// Interval is "every N frequency units", minimum 1.
	Interval int
	// Count caps the number of occurrences when present.
	Count mo.Option[int]
	// Until bounds generation at a calendar day (inclusive) when present.
	Until mo.Option[time.Time]
	// ByDay lists two-letter weekday tokens, used only with FREQ=WEEKLY.
	ByDay []string
	// ByMonthDay lists day-of-month numbers, used only with FREQ=MONTHLY.
	ByMonthDay []int
}

// Repeats reports whether the rule describes a repeating event.
func (r Rule) Repeats() bool {
	return r.Freq != ""
}

// untilLayouts are tried in order when parsing an UNTIL value. Stored rules
// drifted between basic date-time, basic date and ISO date forms over time,
// so all three are accepted.
var untilLayouts = []string{
	"20060102T150405Z",
	"20060102",
	"2006-01-02",
}

// ParseRule parses a ";"-separated KEY=VALUE rule string, optionally
// prefixed with "RRULE:". Parsing is deliberately lenient: tokens without
// "=", unknown keys and unparseable values are dropped rather than reported,
// so stored rules with minor format drift keep working. FREQ is not
// validated against the known frequency set.
func ParseRule(text string) Rule {
	rule := Rule{Interval: 1}

	text = strings.TrimPrefix(strings.TrimSpace(text), "RRULE:")
	for _, token := range strings.Split(text, ";") {
		key, value, ok := strings.Cut(token, "=")
		if !ok {
			continue
		}

		switch strings.TrimSpace(key) {
		case "FREQ":
			rule.Freq = value
		case "INTERVAL":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				rule.Interval = n
			}
		case "COUNT":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				rule.Count = mo.Some(n)
			}
		case "UNTIL":
			if t, ok := parseUntil(value); ok {
				rule.Until = mo.Some(t)
			}
		case "BYDAY":
			for _, day := range strings.Split(value, ",") {
				if day = strings.TrimSpace(day); day != "" {
					rule.ByDay = append(rule.ByDay, day)
				}
			}
		case "BYMONTHDAY":
			for _, day := range strings.Split(value, ",") {
				if n, err := strconv.Atoi(strings.TrimSpace(day)); err == nil {
					rule.ByMonthDay = append(rule.ByMonthDay, n)
				}
			}
		}
	}

	return rule
}

func parseUntil(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range untilLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			// UNTIL is a day-level boundary; the time-of-day carried by the
			// date-time form is discarded.
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// Encode renders the rule back into its string form: FREQ first, then
// INTERVAL (only when greater than 1), COUNT, UNTIL, BYDAY and BYMONTHDAY.
// No "RRULE:" prefix is added. A rule without a frequency encodes to "".
func (r Rule) Encode() string {
	if !r.Repeats() {
		return ""
	}

	parts := []string{"FREQ=" + r.Freq}
	if r.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", r.Interval))
	}
	if count, ok := r.Count.Get(); ok {
		parts = append(parts, fmt.Sprintf("COUNT=%d", count))
	}
	if until, ok := r.Until.Get(); ok {
		parts = append(parts, "UNTIL="+until.Format("20060102"))
	}
	if len(r.ByDay) > 0 {
		parts = append(parts, "BYDAY="+strings.Join(r.ByDay, ","))
	}
	if len(r.ByMonthDay) > 0 {
		days := make([]string, len(r.ByMonthDay))
		for i, day := range r.ByMonthDay {
			days[i] = strconv.Itoa(day)
		}
		parts = append(parts, "BYMONTHDAY="+strings.Join(days, ","))
	}

	return strings.Join(parts, ";")
}
