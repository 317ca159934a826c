package treebuilder

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	icdRange  = regexp.MustCompile(`\(([a-z]\d{2})\s*[-–]\s*([a-z]\d{2})`)
	icdSingle = regexp.MustCompile(`([(,\s])([a-z])(\d{2})`)
)

// normalizer holds the casers for one build. Casers are stateful and must
// not be shared between goroutines.
type normalizer struct {
	lower cases.Caser
	upper cases.Caser
}

func newNormalizer() *normalizer {
	return &normalizer{
		lower: cases.Lower(language.Ukrainian),
		upper: cases.Upper(language.Ukrainian),
	}
}

// clean composes the text to NFC and collapses runs of whitespace.
func (n *normalizer) clean(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// sentence upper-cases the first letter and lower-cases the rest.
func (n *normalizer) sentence(s string) string {
	s = n.clean(s)
	if s == "" {
		return s
	}
	low := n.lower.String(s)
	_, size := utf8.DecodeRuneInString(low)
	return n.upper.String(low[:size]) + low[size:]
}

// smart is sentence case that restores ICD codes such as "(A00-B99)" or
// ", V01" that lower-casing destroyed.
func (n *normalizer) smart(s string) string {
	s = n.sentence(s)
	s = icdRange.ReplaceAllStringFunc(s, func(m string) string {
		sub := icdRange.FindStringSubmatch(m)
		return "(" + strings.ToUpper(sub[1]) + "-" + strings.ToUpper(sub[2])
	})
	return icdSingle.ReplaceAllStringFunc(s, func(m string) string {
		sub := icdSingle.FindStringSubmatch(m)
		return sub[1] + strings.ToUpper(sub[2]) + sub[3]
	})
}

// optional maps the "-" sentinel and blanks to "".
func (n *normalizer) optional(s string) string {
	s = n.clean(s)
	if s == sentinel {
		return ""
	}
	return s
}
