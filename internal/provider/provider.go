// Package provider implements the three address entry strategies and turns
// their raw payloads into canonical addresses.
package provider

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/addrkit/internal/metrics"
	"github.com/sells-group/addrkit/internal/model"
	"github.com/sells-group/addrkit/internal/widget"
)

// ErrNotSelectable is returned when the catalog separator is chosen as a
// country.
var ErrNotSelectable = eris.New("provider: country is not selectable")

// Callbacks connect a provider to the host form. OnChange receives nil when
// no complete address is available.
type Callbacks struct {
	OnChange func(*model.Address)
	OnClear  func()
}

func (cb Callbacks) change(a *model.Address) {
	kind := "none"
	if a != nil {
		kind = string(a.Kind)
	}
	metrics.AddressEmissions.WithLabelValues(kind).Inc()
	if cb.OnChange != nil {
		cb.OnChange(a)
	}
}

func (cb Callbacks) clear() {
	cb.change(nil)
	if cb.OnClear != nil {
		cb.OnClear()
	}
}

// Input is one live address entry widget.
type Input interface {
	Kind() model.Kind
	// Value returns the last emitted address, or nil.
	Value() *model.Address
	// Apply feeds a JSON payload through the same edit path a user would
	// take, emitting at most once.
	Apply(raw []byte) error
	// Clear resets all state and emits nil.
	Clear()
}

// CountryLookup resolves catalog entries by code.
type CountryLookup interface {
	ByCode(code string) (model.Country, bool)
}

// Deps are shared by all providers built from one Registry.
type Deps struct {
	Countries      CountryLookup
	DefaultCountry string
	Loader         *widget.Loader
	ScriptURL      string
	Now            func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Factory builds an Input. initial is only passed when its kind matches.
type Factory func(deps Deps, initial *model.Address, cb Callbacks) Input

// Registry maps each address kind to the factory that serves it.
type Registry struct {
	deps      Deps
	factories map[model.Kind]Factory
}

// NewRegistry creates a Registry with the Korea, Global and Direct providers
// registered.
func NewRegistry(deps Deps) *Registry {
	if deps.DefaultCountry == "" {
		deps.DefaultCountry = DefaultCountry
	}
	r := &Registry{deps: deps, factories: make(map[model.Kind]Factory)}
	r.Register(model.KindKorea, func(d Deps, initial *model.Address, cb Callbacks) Input {
		return NewKoreaInput(d, initial, cb)
	})
	r.Register(model.KindGlobal, func(d Deps, initial *model.Address, cb Callbacks) Input {
		return NewGlobalInput(d, initial, cb)
	})
	r.Register(model.KindDirect, func(d Deps, initial *model.Address, cb Callbacks) Input {
		return NewDirectInput(d, initial, cb)
	})
	return r
}

// Register adds or replaces the factory for k.
func (r *Registry) Register(k model.Kind, f Factory) {
	r.factories[k] = f
}

// Deps returns the dependencies handed to factories.
func (r *Registry) Deps() Deps {
	return r.deps
}

// New builds the provider for k. An initial value of another kind is
// dropped.
func (r *Registry) New(k model.Kind, initial *model.Address, cb Callbacks) (Input, error) {
	f, ok := r.factories[k]
	if !ok {
		return nil, eris.Errorf("provider: no provider for kind %q", k)
	}
	if !initial.Is(k) {
		initial = nil
	}
	return f(r.deps, initial, cb), nil
}
