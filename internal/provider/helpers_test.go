package provider

import (
	"time"

	"github.com/sells-group/addrkit/internal/model"
)

// recorder captures callback invocations in order.
type recorder struct {
	values []*model.Address
	clears int
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnChange: func(a *model.Address) { r.values = append(r.values, a) },
		OnClear:  func() { r.clears++ },
	}
}

func (r *recorder) last() *model.Address {
	if len(r.values) == 0 {
		return nil
	}
	return r.values[len(r.values)-1]
}

type staticCountries map[string]string

func (s staticCountries) ByCode(code string) (model.Country, bool) {
	name, ok := s[code]
	if !ok {
		return model.Country{}, false
	}
	return model.Country{Code: code, Name: name}, true
}

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func testDeps() Deps {
	return Deps{
		Countries:      staticCountries{"US": "United States", "KR": "South Korea", "JP": "Japan"},
		DefaultCountry: "KR",
		Now:            func() time.Time { return fixedNow },
	}
}
