package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sells-group/addrkit/internal/model"
	"github.com/sells-group/addrkit/pkg/restcountries"
)

// Transform maps directory records to catalog entries. Records without a
// code are dropped.
func Transform(raw []restcountries.Country) []model.Country {
	out := make([]model.Country, 0, len(raw))
	for _, r := range raw {
		code := strings.ToUpper(strings.TrimSpace(r.CCA2))
		if code == "" || code == model.SeparatorCode {
			continue
		}
		out = append(out, model.Country{
			Code:       code,
			Name:       r.Name.Common,
			NativeName: r.FirstNativeName(),
			Flag:       r.Flag,
		})
	}
	return out
}

// Sort orders countries as: the priority codes present in the input, in
// priority order; one separator; everything else by name (collated, case
// ignored), then code. Duplicate codes keep their first occurrence.
func Sort(countries []model.Country, priority []string) []model.Country {
	byCode := make(map[string]model.Country, len(countries))
	order := make([]string, 0, len(countries))
	for _, c := range countries {
		if !c.Selectable() {
			continue
		}
		if _, dup := byCode[c.Code]; dup {
			continue
		}
		byCode[c.Code] = c
		order = append(order, c.Code)
	}

	out := make([]model.Country, 0, len(order)+1)
	pinned := make(map[string]bool, len(priority))
	for _, code := range priority {
		if c, ok := byCode[code]; ok && !pinned[code] {
			out = append(out, c)
			pinned[code] = true
		}
	}
	out = append(out, model.Separator())

	rest := make([]model.Country, 0, len(order)-len(pinned))
	for _, code := range order {
		if !pinned[code] {
			rest = append(rest, byCode[code])
		}
	}
	col := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(rest, func(i, j int) bool {
		if cmp := col.CompareString(rest[i].Name, rest[j].Name); cmp != 0 {
			return cmp < 0
		}
		return rest[i].Code < rest[j].Code
	})
	out = append(out, rest...)
	return out
}
