/*
tables.go - Static lookup tables for Russian month and quarter designators

PURPOSE:
  Immutable, process-wide tables built once. Keys are normalized lower-case
  text; values are the 1-12 month number or the 1-4 quarter index.

COVERAGE:
  Months: nominative ("январь"), genitive ("января") and the standard
  abbreviations ("янв"). Quarters: arabic digits, digit-with-suffix
  ("2-й"), roman numerals ("ii") and ordinal words in nominative and
  genitive forms.

SEE ALSO:
  - recognizers.go: the only consumers of these tables
*/
package period

import "time"

// months maps every accepted Russian month form to its month number.
var months = map[string]time.Month{
	"январь": time.January, "января": time.January, "янв": time.January,
	"февраль": time.February, "февраля": time.February, "фев": time.February,
	"март": time.March, "марта": time.March, "мар": time.March,
	"апрель": time.April, "апреля": time.April, "апр": time.April,
	"май": time.May, "мая": time.May,
	"июнь": time.June, "июня": time.June, "июн": time.June,
	"июль": time.July, "июля": time.July, "июл": time.July,
	"август": time.August, "августа": time.August, "авг": time.August,
	"сентябрь": time.September, "сентября": time.September, "сен": time.September, "сент": time.September,
	"октябрь": time.October, "октября": time.October, "окт": time.October,
	"ноябрь": time.November, "ноября": time.November, "ноя": time.November,
	"декабрь": time.December, "декабря": time.December, "дек": time.December,
}

// quarters maps every accepted quarter designator to its 1-4 index.
var quarters = map[string]int{
	// Arabic digits
	"1": 1, "2": 2, "3": 3, "4": 4,
	// Digit with ordinal suffix
	"1-й": 1, "2-й": 2, "3-й": 3, "4-й": 4,
	// Roman numerals (lower-cased by normalization)
	"i": 1, "ii": 2, "iii": 3, "iv": 4,
	// Ordinal words, nominative and genitive
	"первый": 1, "второй": 2, "третий": 3, "четвертый": 4,
	"первого": 1, "второго": 2, "третьего": 3, "четвертого": 4,
}

// monthNamesNominative is used when rendering report labels
// ("Сопровождение Июнь") and explanations.
var monthNamesNominative = map[time.Month]string{
	time.January: "Январь", time.February: "Февраль", time.March: "Март",
	time.April: "Апрель", time.May: "Май", time.June: "Июнь",
	time.July: "Июль", time.August: "Август", time.September: "Сентябрь",
	time.October: "Октябрь", time.November: "Ноябрь", time.December: "Декабрь",
}

// MonthName returns the Russian nominative name of a month.
func MonthName(m time.Month) string { return monthNamesNominative[m] }

// quarterNumerals renders quarter indexes as roman numerals in explanations.
var quarterNumerals = [5]string{"", "I", "II", "III", "IV"}
