package recurrence

import (
	"log/slog"
	"time"
)

// Engine expands recurrence rules into concrete occurrence dates. It is safe
// for concurrent use; expansion is a pure function of its inputs (the
// optional cache only memoizes results, it never changes them).
type Engine struct {
	cfg    EngineConfig
	cache  *expansionCache
	logger *slog.Logger
}

// NewEngine creates a new recurrence engine with default configuration.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig)
}

// NewEngineWithConfig creates a new recurrence engine with custom
// configuration.
func NewEngineWithConfig(cfg EngineConfig) *Engine {
	if cfg.MaxOccurrences <= 0 {
		cfg.MaxOccurrences = DefaultMaxOccurrences
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var cache *expansionCache
	if cfg.CacheEnabled {
		cache = newExpansionCache(cfg.CacheConfig)
	}

	return &Engine{
		cfg:    cfg,
		cache:  cache,
		logger: cfg.Logger,
	}
}

// MaxOccurrences returns the engine's configured expansion cap.
func (e *Engine) MaxOccurrences() int {
	return e.cfg.MaxOccurrences
}

// Close stops the cache cleanup goroutine, if any.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// Occurrences expands ruleText from the anchor date start using the engine's
// configured cap. See OccurrencesCapped for the exact semantics.
func (e *Engine) Occurrences(start time.Time, rangeEnd *time.Time, ruleText string) []time.Time {
	return e.OccurrencesCapped(start, rangeEnd, ruleText, e.cfg.MaxOccurrences)
}

// OccurrencesCapped expands ruleText from the anchor date start into a
// non-decreasing sequence of occurrence dates.
//
// A rule without FREQ yields exactly [start]. Otherwise the current date is
// emitted, then advanced per the rule's frequency and interval, until the
// emitted count reaches min(COUNT, maxOccurrences), the advanced date lands
// on a calendar day strictly after UNTIL (a candidate on the UNTIL day
// itself is still emitted), or the cap is hit. rangeEnd, when non-nil, is an
// additional UNTIL-style day-level bound.
//
// An unrecognized frequency makes no date progress; the resulting sequence
// repeats the anchor up to the cap. That is deliberate: corrupt stored rules
// are flagged through the logger, never through errors, and the cap is the
// sole termination guarantee.
func (e *Engine) OccurrencesCapped(start time.Time, rangeEnd *time.Time, ruleText string, maxOccurrences int) []time.Time {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}

	rule := ParseRule(ruleText)
	if !rule.Repeats() {
		return []time.Time{start}
	}

	if e.cache != nil {
		if result, ok := e.cache.Get(start, rangeEnd, ruleText, maxOccurrences); ok {
			return result
		}
	}

	if !knownFrequency(rule.Freq) {
		e.logger.Warn("unsupported recurrence frequency, expansion bounded by cap only",
			"frequency", rule.Freq,
			"rule", ruleText)
	}

	limit := maxOccurrences
	if count, ok := rule.Count.Get(); ok && count < limit {
		limit = count
	}

	occurrences := make([]time.Time, 0, limit)
	current := start
	for {
		occurrences = append(occurrences, current)
		if len(occurrences) >= limit {
			break
		}

		next := advance(rule, current)
		if until, ok := rule.Until.Get(); ok && dayAfter(next, until) {
			break
		}
		if rangeEnd != nil && dayAfter(next, *rangeEnd) {
			break
		}
		current = next
	}

	if e.cache != nil {
		e.cache.Set(start, rangeEnd, ruleText, maxOccurrences, occurrences)
	}

	return occurrences
}

// IsOccurrence reports whether date falls on one of the occurrence days of
// ruleText anchored at start. Comparison is by calendar day only.
func (e *Engine) IsOccurrence(date, start time.Time, ruleText string) bool {
	for _, occurrence := range e.Occurrences(start, nil, ruleText) {
		if sameDay(occurrence, date) {
			return true
		}
	}
	return false
}

func knownFrequency(freq string) bool {
	switch freq {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
		return true
	}
	return false
}

// weekdayTokens maps time.Weekday (Sunday = 0) onto the two-letter RRULE
// weekday codes.
var weekdayTokens = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// advance computes the next candidate date after current. An unrecognized
// frequency, or a BYDAY/BYMONTHDAY list that can never match, returns
// current unchanged so the caller's cap terminates the loop.
func advance(rule Rule, current time.Time) time.Time {
	switch rule.Freq {
	case FreqDaily:
		return current.AddDate(0, 0, rule.Interval)
	case FreqWeekly:
		if len(rule.ByDay) == 0 {
			return current.AddDate(0, 0, 7*rule.Interval)
		}
		return nextWeeklyByDay(rule, current)
	case FreqMonthly:
		if len(rule.ByMonthDay) > 0 {
			return nextMonthDay(rule, current)
		}
		// Calendar month arithmetic follows Go's AddDate normalization:
		// Jan 31 + 1 month rolls into early March rather than clamping.
		return current.AddDate(0, rule.Interval, 0)
	case FreqYearly:
		return current.AddDate(rule.Interval, 0, 0)
	}
	return current
}

// nextWeeklyByDay scans forward one day at a time until it finds a weekday
// listed in BYDAY whose whole-week distance from current is divisible by the
// interval. The week-count check makes intervals greater than 1 skip entire
// matching weeks.
func nextWeeklyByDay(rule Rule, current time.Time) time.Time {
	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}
	// Any reachable match lies within interval+1 weeks of the cursor.
	bound := 7 * (interval + 1)
	candidate := current
	for i := 0; i < bound; i++ {
		candidate = candidate.AddDate(0, 0, 1)
		weeks := daysBetween(current, candidate) / 7
		if weeks%interval != 0 {
			continue
		}
		token := weekdayTokens[candidate.Weekday()]
		for _, day := range rule.ByDay {
			if day == token {
				return candidate
			}
		}
	}
	return current
}

// nextMonthDay scans forward one day at a time until the day-of-month is
// listed in BYMONTHDAY. The interval is intentionally not applied here: the
// stored rules this library serves were produced against that behavior, and
// silently correcting it would move existing recurring-event dates.
func nextMonthDay(rule Rule, current time.Time) time.Time {
	candidate := current
	for i := 0; i < 366; i++ {
		candidate = candidate.AddDate(0, 0, 1)
		for _, day := range rule.ByMonthDay {
			if candidate.Day() == day {
				return candidate
			}
		}
	}
	return current
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dayAfter(a, b time.Time) bool {
	return dateOf(a).After(dateOf(b))
}

func sameDay(a, b time.Time) bool {
	return dateOf(a).Equal(dateOf(b))
}

func daysBetween(from, to time.Time) int {
	return int(dateOf(to).Sub(dateOf(from)) / (24 * time.Hour))
}
