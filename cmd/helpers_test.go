package main

import (
	"context"
	"testing"
	"time"

	"github.com/sells-group/addrkit/internal/catalog"
	"github.com/sells-group/addrkit/internal/provider"
	"github.com/sells-group/addrkit/internal/region"
	"github.com/sells-group/addrkit/internal/store"
	"github.com/sells-group/addrkit/pkg/restcountries"
)

type stubDirectory struct {
	countries []restcountries.Country
	err       error
}

func (s *stubDirectory) All(context.Context) ([]restcountries.Country, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.countries, nil
}

func sampleDirectory() *stubDirectory {
	rc := func(code, name, flag string) restcountries.Country {
		return restcountries.Country{CCA2: code, Name: restcountries.Name{Common: name}, Flag: flag}
	}
	return &stubDirectory{countries: []restcountries.Country{
		rc("KR", "South Korea", "🇰🇷"),
		rc("US", "United States", "🇺🇸"),
		rc("NZ", "New Zealand", "🇳🇿"),
		rc("CH", "Switzerland", "🇨🇭"),
	}}
}

// testEnv wires an environment with in-memory storage and no network
// clients.
func testEnv(t *testing.T, dir restcountries.Directory) *appEnv {
	t.Helper()
	cache := store.NewMemory()
	cat := catalog.New(dir, cache)
	now := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	return &appEnv{
		Cache:    cache,
		Catalog:  cat,
		Detector: region.NewDetector(nil),
		Registry: provider.NewRegistry(provider.Deps{
			Countries:      cat,
			DefaultCountry: "KR",
			Now:            func() time.Time { return now },
		}),
	}
}
