package recurrence

import (
	"fmt"
	"strconv"
	"strings"
)

var weekdayNames = map[string]string{
	"SU": "Sunday",
	"MO": "Monday",
	"TU": "Tuesday",
	"WE": "Wednesday",
	"TH": "Thursday",
	"FR": "Friday",
	"SA": "Saturday",
}

// Describe renders a rule string as a human-readable summary, e.g.
// "Every 2 weeks on Monday and Wednesday, 5 times" or
// "Daily, until Dec 31, 2025". A rule without FREQ yields "Does not repeat".
func Describe(ruleText string) string {
	rule := ParseRule(ruleText)
	if !rule.Repeats() {
		return "Does not repeat"
	}

	var b strings.Builder

	word, unit := frequencyWords(rule.Freq)
	if rule.Interval > 1 {
		fmt.Fprintf(&b, "Every %d %s", rule.Interval, unit)
	} else {
		b.WriteString(word)
	}

	if rule.Freq == FreqWeekly && len(rule.ByDay) > 0 {
		if names := dayNames(rule.ByDay); len(names) > 0 {
			b.WriteString(" on " + joinWithAnd(names))
		}
	}
	if len(rule.ByMonthDay) > 0 {
		days := make([]string, len(rule.ByMonthDay))
		for i, day := range rule.ByMonthDay {
			days[i] = strconv.Itoa(day)
		}
		b.WriteString(" on day " + strings.Join(days, ", "))
	}

	if count, ok := rule.Count.Get(); ok {
		fmt.Fprintf(&b, ", %d times", count)
	} else if until, ok := rule.Until.Get(); ok {
		b.WriteString(", until " + until.Format("Jan 2, 2006"))
	}

	return b.String()
}

// frequencyWords returns the standalone word and the plural unit for a FREQ
// token. Unrecognized tokens fall back to a capitalized form of the token
// itself; they describe corrupt data, not a supported frequency.
func frequencyWords(freq string) (word, unit string) {
	switch freq {
	case FreqDaily:
		return "Daily", "days"
	case FreqWeekly:
		return "Weekly", "weeks"
	case FreqMonthly:
		return "Monthly", "months"
	case FreqYearly:
		return "Yearly", "years"
	}

	lower := strings.ToLower(freq)
	return strings.ToUpper(lower[:1]) + lower[1:], lower
}

func dayNames(tokens []string) []string {
	names := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if name, ok := weekdayNames[token]; ok {
			names = append(names, name)
		}
	}
	return names
}

// joinWithAnd formats a list Oxford-comma style: "Monday",
// "Monday and Tuesday", "Monday, Tuesday, and Wednesday".
func joinWithAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}
