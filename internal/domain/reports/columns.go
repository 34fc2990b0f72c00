package reports

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	totalFieldname = "total"
	treeWidth      = 250
	amountWidth    = 120
)

// Scrub turns a label into a fieldname: lower case, runs of anything
// other than letters and digits collapsed to one underscore.
//
//	"Jan 2024"  -> "jan_2024"
//	"Main - CC" -> "main_cc"
func Scrub(label string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	if b.Len() == 0 {
		return "col"
	}
	return b.String()
}

// buildColumns returns the tree column, one currency column per label
// and the total column. Fieldnames are unique; clashes get a numeric
// suffix.
func buildColumns(def Definition, labels []string) []Column {
	treeField := string(def.Tree)
	seen := map[string]struct{}{treeField: {}, totalFieldname: {}}

	cols := make([]Column, 0, len(labels)+2)
	cols = append(cols, Column{
		Fieldname: treeField,
		Label:     def.TreeLabel,
		Fieldtype: "Link",
		Options:   def.TreeLabel,
		Width:     treeWidth,
	})
	for _, l := range labels {
		name := Scrub(l)
		for i := 2; ; i++ {
			if _, dup := seen[name]; !dup {
				break
			}
			name = fmt.Sprintf("%s_%d", Scrub(l), i)
		}
		seen[name] = struct{}{}
		cols = append(cols, Column{Fieldname: name, Label: l, Fieldtype: "Currency", Width: amountWidth})
	}
	return append(cols, Column{Fieldname: totalFieldname, Label: "Total", Fieldtype: "Currency", Width: amountWidth})
}
