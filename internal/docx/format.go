package docx

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var months = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var (
	yearOnly  = regexp.MustCompile(`^\d{4}$`)
	yearMonth = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
)

// FormatDate renders YYYY-MM as "Mon YYYY". Years, "Present" and anything
// unrecognised pass through unchanged.
func FormatDate(d string) string {
	d = strings.TrimSpace(d)
	if d == "" || d == "Present" || yearOnly.MatchString(d) {
		return d
	}
	m := yearMonth.FindStringSubmatch(d)
	if m == nil {
		return d
	}
	month, err := strconv.Atoi(m[2])
	if err != nil || month < 1 || month > 12 {
		return d
	}
	return months[month-1] + " " + m[1]
}

// CapitalizeWords upper-cases the first letter of every space separated word.
func CapitalizeWords(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if size == 0 {
			continue
		}
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

var tidyRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\b[Ii]\s*am\s*responsible\s*for\b`), "Responsible for"},
	{regexp.MustCompile(`\b[Pp]rinciple\b`), "Principal"},
	{regexp.MustCompile(`\b[Dd]iscrete\b`), "Discreet"},
}

// Tidy fixes common phrasing slips in CV prose.
func Tidy(s string) string {
	for _, rule := range tidyRules {
		s = rule.re.ReplaceAllString(s, rule.repl)
	}
	return strings.TrimSpace(s)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
