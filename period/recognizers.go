/*
recognizers.go - The ordered cascade of period recognizers

PURPOSE:
  Each recognizer is a pure function from normalized text to an optional
  Result. They are listed in resolver.go in strict priority order; none of
  them panics or returns an error - a pattern that does not apply simply
  falls through to the next strategy.

FAILURE SEMANTICS:
  Only two situations return a definitive failure instead of falling
  through: an ISO-shaped date that is not a real calendar date, and a
  concrete day/month pair that does not exist (e.g. 31 апреля). An unknown
  month or quarter token is NOT a failure - a later, less specific
  recognizer may still interpret the same text.

SEE ALSO:
  - resolver.go: dispatch order and normalization
  - tables.go: month/quarter designator tables
  - date.go: calendar arithmetic
*/
package period

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// 1. LITERAL ISO DATES
// =============================================================================

var isoDateRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// matchISODates handles literal YYYY-MM-DD dates. One date is a one-day
// period; two or more take the first two, reordered ascending if needed.
// ISO dates short-circuit every other recognizer.
func matchISODates(text string, now Date) (Result, bool) {
	found := isoDateRe.FindAllString(text, -1)
	if len(found) == 0 {
		return Result{}, false
	}

	first, err := ParseISO(found[0])
	if len(found) == 1 {
		if err != nil {
			return failure(fmt.Sprintf("❌ Некорректная дата: %s", found[0])), true
		}
		return success(first, first, fmt.Sprintf("✅ Период: %s (один день)", first)), true
	}

	second, err2 := ParseISO(found[1])
	if err != nil || err2 != nil {
		return failure(fmt.Sprintf("❌ Некорректные даты: %s - %s", found[0], found[1])), true
	}

	if second.Before(first) {
		first, second = second, first
		return success(first, second,
			fmt.Sprintf("✅ Период: с %s по %s (даты переставлены)", first, second)), true
	}
	return success(first, second, fmt.Sprintf("✅ Период: с %s по %s", first, second)), true
}

// =============================================================================
// 2. FIXED RELATIVE KEYWORDS
// =============================================================================

// relativeKeyword pairs a phrase pattern (inflection-tolerant) with the
// formula that produces its period. Checked in order: "позавчера" must be
// tried before "вчера", which it contains as a substring.
type relativeKeyword struct {
	re      *regexp.Regexp
	resolve func(now Date) Result
}

var relativeKeywords = []relativeKeyword{
	{regexp.MustCompile(`сегодня|сейчас`), resolveToday},
	{regexp.MustCompile(`позавчера`), resolveDayBeforeYesterday},
	{regexp.MustCompile(`вчера`), resolveYesterday},
	{regexp.MustCompile(`эт(?:а|у|ой?|им)\s+недел[ияею]`), resolveThisWeek},
	{regexp.MustCompile(`прошл(?:ая|ой|ую)\s+недел[ияею]`), resolveLastWeek},
	{regexp.MustCompile(`эт(?:от|ому|им)\s+месяц[еау]?`), resolveThisMonth},
	{regexp.MustCompile(`прошл(?:ый|ого|ому)\s+месяц[еау]?`), resolveLastMonth},
	{regexp.MustCompile(`эт(?:от|ому|им|ом)\s+квартал[еауо]?`), resolveThisQuarter},
	{regexp.MustCompile(`прошл(?:ый|ого|ому|ом)\s+квартал[еауо]?`), resolveLastQuarter},
	{regexp.MustCompile(`эт(?:от|ому|им)\s+год[уа]?`), resolveThisYear},
	{regexp.MustCompile(`прошл(?:ый|ого|ому)\s+год[уа]?`), resolveLastYear},
}

func matchRelativeKeyword(text string, now Date) (Result, bool) {
	for _, kw := range relativeKeywords {
		if kw.re.MatchString(text) {
			return kw.resolve(now), true
		}
	}
	return Result{}, false
}

func resolveToday(now Date) Result {
	return success(now, now, fmt.Sprintf("✅ Сегодня: %s", now))
}

func resolveYesterday(now Date) Result {
	d := now.AddDays(-1)
	return success(d, d, fmt.Sprintf("✅ Вчера: %s", d))
}

func resolveDayBeforeYesterday(now Date) Result {
	d := now.AddDays(-2)
	return success(d, d, fmt.Sprintf("✅ Позавчера: %s", d))
}

func resolveThisWeek(now Date) Result {
	monday := WeekStart(now)
	sunday := monday.AddDays(6)
	return success(monday, sunday,
		fmt.Sprintf("✅ Текущая неделя: с %s по %s", monday, sunday))
}

func resolveLastWeek(now Date) Result {
	monday := WeekStart(now).AddDays(-7)
	sunday := monday.AddDays(6)
	return success(monday, sunday,
		fmt.Sprintf("✅ Прошлая неделя: с %s по %s", monday, sunday))
}

func resolveThisMonth(now Date) Result {
	start := MonthStart(now.Year(), now.Month())
	end := MonthEnd(now.Year(), now.Month())
	return success(start, end,
		fmt.Sprintf("✅ Текущий месяц: с %s по %s", start, end))
}

func resolveLastMonth(now Date) Result {
	year, month := now.Year(), now.Month()
	if month == time.January {
		// Wraps into December of the previous year.
		year, month = year-1, time.December
	} else {
		month--
	}
	start := MonthStart(year, month)
	end := MonthEnd(year, month)
	return success(start, end,
		fmt.Sprintf("✅ Прошлый месяц: с %s по %s", start, end))
}

func resolveThisYear(now Date) Result {
	start := NewDate(now.Year(), time.January, 1)
	end := NewDate(now.Year(), time.December, 31)
	return success(start, end,
		fmt.Sprintf("✅ Текущий год: с %s по %s", start, end))
}

func resolveLastYear(now Date) Result {
	year := now.Year() - 1
	start := NewDate(year, time.January, 1)
	end := NewDate(year, time.December, 31)
	return success(start, end,
		fmt.Sprintf("✅ Прошлый год: с %s по %s", start, end))
}

func resolveThisQuarter(now Date) Result {
	q := QuarterOf(now.Month())
	start := QuarterStart(now.Year(), q)
	end := QuarterEnd(now.Year(), q)
	return success(start, end,
		fmt.Sprintf("✅ Текущий квартал (%s кв. %d): с %s по %s",
			quarterNumerals[q], now.Year(), start, end))
}

func resolveLastQuarter(now Date) Result {
	q := QuarterOf(now.Month()) - 1
	year := now.Year()
	if q == 0 {
		// Current quarter is Q1: last quarter is Q4 of the previous year.
		q, year = 4, year-1
	}
	start := QuarterStart(year, q)
	end := QuarterEnd(year, q)
	return success(start, end,
		fmt.Sprintf("✅ Прошлый квартал (%s кв. %d): с %s по %s",
			quarterNumerals[q], year, start, end))
}

// =============================================================================
// 3. SPECIFIC QUARTER
// =============================================================================

// The year-suffixed pattern is tried first so a trailing year digit can
// never be captured as the quarter designator.
var (
	quarterYearRe = regexp.MustCompile(`(\S+)\s+квартал[еауо]?\s+(\d{4})`)
	quarterBareRe = regexp.MustCompile(`(\S+)\s+квартал[еауо]?(?:\s|$)`)
)

// matchQuarter handles "<designator> квартал [<year>]" with the designator
// as a digit, digit-with-suffix, roman numeral or ordinal word.
func matchQuarter(text string, now Date) (Result, bool) {
	for _, re := range []*regexp.Regexp{quarterYearRe, quarterBareRe} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		q, known := quarters[m[1]]
		if !known {
			// Unresolvable designator: maybe a later recognizer applies.
			continue
		}

		year := now.Year()
		if len(m) > 2 && m[2] != "" {
			year, _ = strconv.Atoi(m[2])
		}

		start := QuarterStart(year, q)
		end := QuarterEnd(year, q)
		return success(start, end,
			fmt.Sprintf("✅ %s квартал %d: с %s по %s", quarterNumerals[q], year, start, end)), true
	}
	return Result{}, false
}

// =============================================================================
// 4. MONTH RANGE AND SINGLE MONTH
// =============================================================================

var (
	monthRangeRe = regexp.MustCompile(`с\s+(\S+)\s+по\s+(\S+?)(?:\s+(\d{4}))?(?:\s|$)`)
	rangeShapeRe = regexp.MustCompile(`(?:^|\s)с\s.*\sпо(?:\s|$)`)
	yearTokenRe  = regexp.MustCompile(`^\d{4}$`)
)

// matchMonth handles "с <месяц> по <месяц> [<год>]" and bare "<месяц> [<год>]".
// When the end month precedes the start month the range crosses a year
// boundary and the end year rolls forward by one.
//
// If the text has a "с ... по ..." shape whose endpoints are not month
// names, the whole recognizer falls through: the phrase likely carries day
// numbers and belongs to the concrete-range recognizer, and the bare-month
// scan must not eat its month tokens.
func matchMonth(text string, now Date) (Result, bool) {
	if m := monthRangeRe.FindStringSubmatch(text); m != nil {
		startMonth, ok1 := months[m[1]]
		endMonth, ok2 := months[m[2]]
		if ok1 && ok2 {
			year := now.Year()
			if m[3] != "" {
				year, _ = strconv.Atoi(m[3])
			}
			endYear := year
			if endMonth < startMonth {
				endYear = year + 1
			}
			start := MonthStart(year, startMonth)
			end := MonthEnd(endYear, endMonth)
			return success(start, end,
				fmt.Sprintf("✅ Период: с %s %d по %s %d", m[1], year, m[2], endYear)), true
		}
	}
	if rangeShapeRe.MatchString(text) {
		return Result{}, false
	}

	// Bare month scan: first recognizable month name, optionally followed
	// by a 4-digit year.
	fields := strings.Fields(text)
	for i, f := range fields {
		month, known := months[f]
		if !known {
			continue
		}
		year := now.Year()
		if i+1 < len(fields) && yearTokenRe.MatchString(fields[i+1]) {
			year, _ = strconv.Atoi(fields[i+1])
		}
		start := MonthStart(year, month)
		end := MonthEnd(year, month)
		return success(start, end, fmt.Sprintf("✅ Месяц: %s %d", f, year)), true
	}
	return Result{}, false
}

// =============================================================================
// 5. RELATIVE COUNT PERIODS
// =============================================================================

var (
	lastDaysRe   = regexp.MustCompile(`последни[ехий]+\s+(\d+)\s+дн[ияей]+`)
	lastWeeksRe  = regexp.MustCompile(`последни[ехий]+\s+(\d+)\s+недел[иьяю]+`)
	lastMonthsRe = regexp.MustCompile(`последни[ехий]+\s+(\d+)\s+месяц[аеов]+`)
)

// matchLastN handles "последние N дней/недель/месяцев". Days form an
// inclusive N-day window ending today. Months use a flat 30-day
// approximation rather than calendar subtraction; the explanation says so.
func matchLastN(text string, now Date) (Result, bool) {
	if m := lastDaysRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n < 1 {
			return Result{}, false
		}
		return success(now.AddDays(-(n-1)), now, fmt.Sprintf("✅ Последние %d дней", n)), true
	}
	if m := lastWeeksRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n < 1 {
			return Result{}, false
		}
		return success(now.AddDays(-7*n+1), now, fmt.Sprintf("✅ Последние %d недель", n)), true
	}
	if m := lastMonthsRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n < 1 {
			return Result{}, false
		}
		return success(now.AddDays(-30*n), now,
			fmt.Sprintf("✅ Последние %d месяцев (приблизительно)", n)), true
	}
	return Result{}, false
}

// =============================================================================
// 6. CONCRETE DAY-MONTH RANGE
// =============================================================================

var concreteRangeRe = regexp.MustCompile(
	`с\s+(\d{1,2})\s+(\S+)(?:\s+(\d{4}))?\s+по\s+(\d{1,2})\s+(\S+)(?:\s+(\d{4}))?`)

// matchConcreteRange handles "с D1 <месяц1> [Y1] по D2 <месяц2> [Y2]".
// Impossible day/month combinations are a definitive failure naming the
// offending tokens, never a silently adjusted date.
func matchConcreteRange(text string, now Date) (Result, bool) {
	m := concreteRangeRe.FindStringSubmatch(text)
	if m == nil {
		return Result{}, false
	}

	startMonth, ok1 := months[m[2]]
	endMonth, ok2 := months[m[5]]
	if !ok1 || !ok2 {
		return Result{}, false
	}

	startDay, _ := strconv.Atoi(m[1])
	endDay, _ := strconv.Atoi(m[4])

	startYear := now.Year()
	if m[3] != "" {
		startYear, _ = strconv.Atoi(m[3])
	}
	endYear := startYear
	if m[6] != "" {
		endYear, _ = strconv.Atoi(m[6])
	} else if endMonth < startMonth {
		// No explicit end year and the months run backwards: the range
		// crosses into the next year.
		endYear = startYear + 1
	}

	if !Valid(startYear, startMonth, startDay) || !Valid(endYear, endMonth, endDay) {
		return failure(fmt.Sprintf("❌ Некорректные даты: %d %s - %d %s",
			startDay, m[2], endDay, m[5])), true
	}

	start := NewDate(startYear, startMonth, startDay)
	end := NewDate(endYear, endMonth, endDay)
	if end.Before(start) {
		start, end = end, start
		return success(start, end,
			fmt.Sprintf("✅ Период: с %s по %s (даты переставлены)", start, end)), true
	}
	return success(start, end,
		fmt.Sprintf("✅ Период: с %d %s %d по %d %s %d",
			startDay, m[2], startYear, endDay, m[5], endYear)), true
}
