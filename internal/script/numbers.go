package script

import (
	"strings"
	"unicode"
)

// maxSpelledDigits caps the integer part read as a whole number. Longer digit
// runs (ids, phone numbers) are read digit by digit.
const maxSpelledDigits = 12

// numberLocale carries the separators and vocabulary for one locale.
type numberLocale struct {
	thousands rune
	decimal   rune
	point     string
	minus     string
	percent   string
	cardinal  func(n int64) string
	digit     func(d int) string
	// ordinal reads n with the suffix that followed it; ok=false when the
	// suffix is not an ordinal marker in this locale.
	ordinal       func(n int64, suffix string) (string, bool)
	ordinalSuffix func(rs []rune, i int) (string, int)
}

var locales = map[string]numberLocale{
	"en": {
		thousands:     ',',
		decimal:       '.',
		point:         "point",
		minus:         "minus",
		percent:       "percent",
		cardinal:      enCardinal,
		digit:         func(d int) string { return enOnes[d] },
		ordinal:       enOrdinal,
		ordinalSuffix: enOrdinalSuffix,
	},
	"es": {
		thousands:     '.',
		decimal:       ',',
		point:         "coma",
		minus:         "menos",
		percent:       "por ciento",
		cardinal:      esCardinal,
		digit:         func(d int) string { return esSmall[d] },
		ordinal:       esOrdinal,
		ordinalSuffix: esOrdinalSuffix,
	},
}

// SupportedLocale reports whether numbers can be spelled out for loc.
func SupportedLocale(loc string) bool {
	_, ok := locales[baseLocale(loc)]
	return ok
}

func baseLocale(loc string) string {
	loc = strings.ToLower(strings.TrimSpace(loc))
	if i := strings.IndexAny(loc, "-_"); i > 0 {
		loc = loc[:i]
	}
	if loc == "" {
		return "en"
	}
	return loc
}

// NormalizeNumbers rewrites every numeric token of text into spoken words for
// the locale ("en" or "es"; regional variants like "es-AR" use their base).
// Output contains no digits, so applying it twice changes nothing.
// Unsupported locales fall back to English.
func NormalizeNumbers(text, locale string) string {
	l, ok := locales[baseLocale(locale)]
	if !ok {
		l = locales["en"]
	}

	rs := []rune(text)
	var b strings.Builder
	b.Grow(len(text) + 16)
	var last rune

	write := func(s string) {
		if s == "" {
			return
		}
		if unicode.IsLetter(last) {
			b.WriteByte(' ')
		}
		b.WriteString(s)
		r := []rune(s)
		last = r[len(r)-1]
	}

	for i := 0; i < len(rs); {
		r := rs[i]
		negative := false
		if (r == '-' || r == '−') && i+1 < len(rs) && isDigit(rs[i+1]) && (i == 0 || unicode.IsSpace(rs[i-1]) || rs[i-1] == '(') {
			negative = true
			i++
		} else if !isDigit(r) {
			b.WriteRune(r)
			last = r
			i++
			continue
		}

		intDigits, fracDigits, next := scanNumber(rs, i, l)
		i = next

		var words []string
		if negative {
			words = append(words, l.minus)
		}

		suffix, consumed := "", 0
		if len(fracDigits) == 0 {
			suffix, consumed = l.ordinalSuffix(rs, i)
		}

		switch {
		case len(intDigits) > maxSpelledDigits:
			for _, d := range intDigits {
				words = append(words, l.digit(int(d-'0')))
			}
		case suffix != "":
			n := parseDigits(intDigits)
			if spoken, ok := l.ordinal(n, suffix); ok {
				words = append(words, spoken)
				i += consumed
			} else {
				words = append(words, l.cardinal(n))
			}
		default:
			words = append(words, l.cardinal(parseDigits(intDigits)))
		}

		if len(fracDigits) > 0 {
			words = append(words, l.point)
			for _, d := range fracDigits {
				words = append(words, l.digit(int(d-'0')))
			}
		}

		if i < len(rs) && rs[i] == '%' {
			words = append(words, l.percent)
			i++
		}

		write(strings.Join(words, " "))
		if i < len(rs) && unicode.IsLetter(rs[i]) {
			b.WriteByte(' ')
			last = ' '
		}
	}
	return b.String()
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// scanNumber reads an integer part with optional thousands groups and an
// optional decimal fraction starting at rs[i]. Separators are only consumed
// when they are followed by the digits that make them unambiguous.
func scanNumber(rs []rune, i int, l numberLocale) (intDigits, fracDigits []rune, next int) {
	for i < len(rs) && isDigit(rs[i]) {
		intDigits = append(intDigits, rs[i])
		i++
	}
	for len(intDigits) <= 3 || hasGroups(intDigits) {
		if i+3 < len(rs) && rs[i] == l.thousands && isDigit(rs[i+1]) && isDigit(rs[i+2]) && isDigit(rs[i+3]) &&
			(i+4 >= len(rs) || !isDigit(rs[i+4])) {
			intDigits = append(intDigits, rs[i+1], rs[i+2], rs[i+3], groupMark)
			i += 4
			continue
		}
		break
	}
	intDigits = stripGroupMarks(intDigits)

	if i+1 < len(rs) && rs[i] == l.decimal && isDigit(rs[i+1]) {
		i++
		for i < len(rs) && isDigit(rs[i]) {
			fracDigits = append(fracDigits, rs[i])
			i++
		}
	}
	return intDigits, fracDigits, i
}

// groupMark flags that a thousands group was consumed while scanning, so a
// leading run longer than three digits is not split into groups afterwards.
const groupMark = '\x00'

func hasGroups(ds []rune) bool {
	for _, d := range ds {
		if d == groupMark {
			return true
		}
	}
	return false
}

func stripGroupMarks(ds []rune) []rune {
	out := ds[:0]
	for _, d := range ds {
		if d != groupMark {
			out = append(out, d)
		}
	}
	return out
}

func parseDigits(ds []rune) int64 {
	var n int64
	for _, d := range ds {
		n = n*10 + int64(d-'0')
	}
	return n
}

// --- English ---

var enOnes = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
	"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen", "seventeen", "eighteen", "nineteen",
}

var enTens = []string{"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety"}

var enScales = []struct {
	value int64
	name  string
}{
	{1_000_000_000, "billion"},
	{1_000_000, "million"},
	{1_000, "thousand"},
}

func enCardinal(n int64) string {
	if n < 1000 {
		return enBelowThousand(n)
	}
	var parts []string
	for _, s := range enScales {
		if n >= s.value {
			parts = append(parts, enCardinal(n/s.value)+" "+s.name)
			n %= s.value
		}
	}
	if n > 0 {
		parts = append(parts, enBelowThousand(n))
	}
	return strings.Join(parts, " ")
}

func enBelowThousand(n int64) string {
	switch {
	case n < 20:
		return enOnes[n]
	case n < 100:
		if n%10 == 0 {
			return enTens[n/10]
		}
		return enTens[n/10] + "-" + enOnes[n%10]
	default:
		s := enOnes[n/100] + " hundred"
		if n%100 != 0 {
			s += " " + enBelowThousand(n%100)
		}
		return s
	}
}

var enIrregularOrdinals = map[string]string{
	"one": "first", "two": "second", "three": "third", "five": "fifth",
	"eight": "eighth", "nine": "ninth", "twelve": "twelfth",
}

func enOrdinal(n int64, _ string) (string, bool) {
	words := enCardinal(n)
	cut := strings.LastIndexAny(words, " -") + 1
	head, tail := words[:cut], words[cut:]
	if irr, ok := enIrregularOrdinals[tail]; ok {
		return head + irr, true
	}
	if strings.HasSuffix(tail, "y") {
		return head + strings.TrimSuffix(tail, "y") + "ieth", true
	}
	return head + tail + "th", true
}

func enOrdinalSuffix(rs []rune, i int) (string, int) {
	if i+1 >= len(rs) {
		return "", 0
	}
	suffix := strings.ToLower(string(rs[i : i+2]))
	switch suffix {
	case "st", "nd", "rd", "th":
	default:
		return "", 0
	}
	if i+2 < len(rs) && unicode.IsLetter(rs[i+2]) {
		return "", 0
	}
	return suffix, 2
}

// --- Spanish ---

var esSmall = []string{
	"cero", "uno", "dos", "tres", "cuatro", "cinco", "seis", "siete", "ocho", "nueve",
	"diez", "once", "doce", "trece", "catorce", "quince", "dieciséis", "diecisiete", "dieciocho", "diecinueve",
	"veinte", "veintiuno", "veintidós", "veintitrés", "veinticuatro", "veinticinco", "veintiséis", "veintisiete", "veintiocho", "veintinueve",
}

var esTens = []string{"", "", "", "treinta", "cuarenta", "cincuenta", "sesenta", "setenta", "ochenta", "noventa"}

var esHundreds = []string{
	"", "ciento", "doscientos", "trescientos", "cuatrocientos", "quinientos",
	"seiscientos", "setecientos", "ochocientos", "novecientos",
}

func esCardinal(n int64) string {
	switch {
	case n < 1000:
		return esBelowThousand(n)
	case n < 1_000_000:
		var s string
		if n/1000 == 1 {
			s = "mil"
		} else {
			s = esApocope(esBelowThousand(n/1000)) + " mil"
		}
		if n%1000 != 0 {
			s += " " + esBelowThousand(n%1000)
		}
		return s
	default:
		var s string
		millions := n / 1_000_000
		if millions == 1 {
			s = "un millón"
		} else {
			s = esApocope(esCardinal(millions)) + " millones"
		}
		if n%1_000_000 != 0 {
			s += " " + esCardinal(n%1_000_000)
		}
		return s
	}
}

func esBelowThousand(n int64) string {
	switch {
	case n < 30:
		return esSmall[n]
	case n < 100:
		if n%10 == 0 {
			return esTens[n/10]
		}
		return esTens[n/10] + " y " + esSmall[n%10]
	case n == 100:
		return "cien"
	default:
		s := esHundreds[n/100]
		if n%100 != 0 {
			s += " " + esBelowThousand(n%100)
		}
		return s
	}
}

// esApocope shortens a trailing "uno" before "mil" and "millones".
func esApocope(s string) string {
	switch {
	case s == "uno":
		return "un"
	case strings.HasSuffix(s, "veintiuno"):
		return strings.TrimSuffix(s, "veintiuno") + "veintiún"
	case strings.HasSuffix(s, " uno"):
		return strings.TrimSuffix(s, "uno") + "un"
	}
	return s
}

var esOrdinals = []string{"", "primer", "segund", "tercer", "cuart", "quint", "sext", "séptim", "octav", "noven", "décim"}

func esOrdinal(n int64, suffix string) (string, bool) {
	if n < 1 || n >= int64(len(esOrdinals)) {
		return "", false
	}
	if suffix == "ª" {
		return esOrdinals[n] + "a", true
	}
	return esOrdinals[n] + "o", true
}

func esOrdinalSuffix(rs []rune, i int) (string, int) {
	if i < len(rs) && (rs[i] == 'º' || rs[i] == 'ª') {
		return string(rs[i]), 1
	}
	return "", 0
}
