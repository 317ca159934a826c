package treebuilder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/achibot/internal/classifier"
)

const (
	sentinel    = "-"
	placeholder = "__"
)

// Format describes one source table layout.
type Format struct {
	Name        string
	Columns     int
	BlockRanges bool

	mapRows func(src []sourceRow, n *normalizer) (rows []Row, skipped int, err error)
}

// ACHI is the НК 026:2021 procedure table: class, anatomical axis, procedural
// axis, block, code.
var ACHI = Format{
	Name:        "achi",
	Columns:     11,
	BlockRanges: true,
	mapRows:     mapACHI,
}

// MKH10 is the НК 025:2021 disease table: class, block, nosology, 4-digit and
// 5-digit codes.
var MKH10 = Format{
	Name:    "mkh10",
	Columns: 13,
	mapRows: mapMKH10,
}

// LookupFormat returns the format registered under name.
func LookupFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ACHI.Name:
		return ACHI, nil
	case MKH10.Name, "icd10":
		return MKH10, nil
	default:
		return Format{}, fmt.Errorf("treebuilder: unknown format %q", name)
	}
}

func mapACHI(src []sourceRow, n *normalizer) ([]Row, int, error) {
	rows := make([]Row, 0, len(src))
	skipped := 0
	for _, s := range src {
		c := s.cols
		// Specialist consultations carry no hierarchy.
		if c[2] == placeholder || c[4] == placeholder || c[6] == placeholder {
			skipped++
			continue
		}
		rows = append(rows, Row{
			Line: s.line,
			Path: []Segment{
				{Label: n.sentence(c[1]), Code: c[0]},
				{Label: n.sentence(c[3]), Code: c[2]},
				{Label: n.sentence(c[5]), Code: c[4]},
				{Label: n.clean(c[7]), Code: c[6]},
			},
			Leaf: &classifier.Record{
				Code:    c[8],
				NameUA:  n.clean(c[9]),
				NameEN:  n.clean(c[10]),
				AskCode: leadingInt(c[6]),
			},
		})
	}
	return rows, skipped, nil
}

func mapMKH10(src []sourceRow, n *normalizer) ([]Row, int, error) {
	hasFive := make(map[string]struct{})
	for _, s := range src {
		if code5 := s.cols[10]; code5 != "" && code5 != sentinel {
			hasFive[s.cols[7]] = struct{}{}
		}
	}

	rows := make([]Row, 0, len(src))
	for _, s := range src {
		c := s.cols
		nosology := Segment{Label: n.smart(c[6]), Code: c[4], NameEN: n.optional(c[5])}
		path := []Segment{
			{Label: n.smart(c[1]), Code: c[0]},
			{Label: n.smart(c[3]), Code: c[2]},
			nosology,
		}

		code4 := c[7]
		if code4 == sentinel || code4 == "" {
			rows = append(rows, Row{
				Line: s.line,
				Path: path,
				Leaf: &classifier.Record{Code: nosology.Code, NameUA: nosology.Label, NameEN: nosology.NameEN},
			})
			continue
		}

		name4UA := n.smart(c[9])
		name4EN := n.optional(c[8])
		if _, ok := hasFive[code4]; !ok {
			rows = append(rows, Row{
				Line: s.line,
				Path: path,
				Leaf: &classifier.Record{Code: code4, NameUA: name4UA, NameEN: name4EN},
			})
			continue
		}

		row := Row{
			Line: s.line,
			Path: append(path, Segment{Label: name4UA, Code: code4, NameEN: name4EN}),
		}
		if code5 := c[10]; code5 != "" && code5 != sentinel {
			rec := classifier.Record{Code: code5, NameUA: name4UA, NameEN: name4EN}
			if ua := n.optional(c[12]); ua != "" {
				rec.NameUA = n.smart(ua)
			}
			if en := n.optional(c[11]); en != "" {
				rec.NameEN = en
			}
			row.Leaf = &rec
		}
		rows = append(rows, row)
	}
	return rows, 0, nil
}

// leadingInt parses the leading decimal digits of s, or returns 0.
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return v
}
