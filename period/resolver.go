/*
resolver.go - Free-form period resolution entry point

PURPOSE:
  Turns a free-text Russian phrase describing a reporting period into a
  concrete inclusive date range plus an explanation of what was understood.
  "Could not parse" is a normal result variant, never an error.

PIPELINE:
  1. Normalize: lower-case, strip filler words, collapse whitespace.
  2. Try each recognizer in fixed priority order; first hit wins:
       1. literal ISO dates (always win, short-circuit)
       2. fixed relative keywords (сегодня, прошлая неделя, ...)
       3. explicit quarter (2 квартал 2024, первый квартал)
       4. month range / single month (с мая по июнь, июнь 2024)
       5. relative counts (последние 7 дней)
       6. concrete day ranges (с 15 мая по 20 июня)
  3. Nothing matched: failure result echoing the normalized input.

ORDERING MATTERS:
  ISO dates are unambiguous and beat everything. Quarter phrases are tried
  before month phrases so a quarter designator is never mis-tokenized by
  the generic month scan, and the year-suffixed quarter pattern runs before
  the bare one so a year digit is never taken for a designator.

CONCURRENCY:
  Resolve is a pure function over (text, now). No shared mutable state;
  safe for concurrent use. Callers must sample "now" fresh at every call
  (period.Today()), never cache it.

SEE ALSO:
  - recognizers.go: the individual strategies
  - tables.go: month/quarter lookup tables
*/
package period

import (
	"fmt"
	"strings"
)

// =============================================================================
// RESULT
// =============================================================================

// Result is the outcome of resolving a free-form period phrase.
// On success Matched is true and Period holds the inclusive range;
// on failure Matched is false and only Explanation is set.
// Explanation is user-facing Russian text in both cases.
type Result struct {
	Period      Period
	Matched     bool
	Explanation string
}

// success builds a matched result.
func success(start, end Date, explanation string) Result {
	return Result{Period: Period{Start: start, End: end}, Matched: true, Explanation: explanation}
}

// failure builds an unmatched result carrying only the explanation.
func failure(explanation string) Result {
	return Result{Explanation: explanation}
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// stopwords are filler words stripped before matching. The range keywords
// "с" and "по" are deliberately NOT here: the range recognizers need them.
var stopwords = map[string]bool{
	"за":      true,
	"в":       true,
	"на":      true,
	"до":      true,
	"период":  true,
	"времени": true,
	"время":   true,
	"отчет":   true,
	"отчёт":   true,
}

// normalize lower-cases the text, drops stopword tokens whole (so embedded
// letters and digit sequences are never corrupted) and collapses whitespace.
func normalize(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	kept := fields[:0]
	for _, f := range fields {
		if !stopwords[f] {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// =============================================================================
// DISPATCH
// =============================================================================

// recognizer tries to interpret the normalized text as one kind of period
// expression. ok=false means "pattern did not apply, try the next one";
// ok=true returns the final result, which may itself be a failure (e.g. a
// recognized but impossible calendar date).
type recognizer func(text string, now Date) (res Result, ok bool)

// recognizers in priority order. First match wins.
var recognizers = []recognizer{
	matchISODates,
	matchRelativeKeyword,
	matchQuarter,
	matchMonth,
	matchLastN,
	matchConcreteRange,
}

// Resolve parses a free-form period description against the reference date
// "now". It never returns an error: unparseable input yields an unmatched
// Result whose Explanation tells the user what was not understood.
func Resolve(text string, now Date) Result {
	norm := normalize(text)

	for _, rec := range recognizers {
		if res, ok := rec(norm, now); ok {
			return res
		}
	}

	return failure(fmt.Sprintf("❌ Не удалось распознать период: '%s'", norm))
}
