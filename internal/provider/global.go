package provider

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/addrkit/internal/model"
)

// Field names a structured global address field.
type Field string

const (
	FieldStreet     Field = "street"
	FieldCity       Field = "city"
	FieldState      Field = "state"
	FieldPostalCode Field = "postal_code"
)

// GlobalInput is the structured international address provider. It emits
// only once both street and city are filled in.
type GlobalInput struct {
	deps Deps
	cb   Callbacks

	mu          sync.Mutex
	street      string
	city        string
	state       string
	postalCode  string
	countryCode string
	countryText string
	coords      *model.Coordinates
	value       *model.Address
}

// NewGlobalInput creates the provider, restoring fields from a global
// initial value.
func NewGlobalInput(deps Deps, initial *model.Address, cb Callbacks) *GlobalInput {
	g := &GlobalInput{deps: deps, cb: cb}
	if initial.Is(model.KindGlobal) && initial.Global != nil {
		d := initial.Global
		g.street, g.city, g.state = d.Street, d.City, d.State
		g.postalCode = initial.PostalCode
		g.countryCode = d.CountryCode
		if d.CountryCode == "" {
			g.countryText = d.Country
		}
		g.coords = initial.Coordinates
		g.value = initial
	}
	return g
}

func (g *GlobalInput) Kind() model.Kind { return model.KindGlobal }

func (g *GlobalInput) Value() *model.Address {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// CountryCode returns the selected country code.
func (g *GlobalInput) CountryCode() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.countryCode
}

// SetField edits one field and emits the result of the gate.
func (g *GlobalInput) SetField(f Field, value string) error {
	g.mu.Lock()
	if err := g.set(f, value); err != nil {
		g.mu.Unlock()
		return err
	}
	a := g.build()
	g.value = a
	g.mu.Unlock()

	g.cb.change(a)
	return nil
}

// SelectCountry changes the country used by the next field edit. It never
// emits.
func (g *GlobalInput) SelectCountry(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == model.SeparatorCode {
		return ErrNotSelectable
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.countryCode = code
	g.countryText = ""
	return nil
}

// Clear empties every field and emits nil. The selected country is kept.
func (g *GlobalInput) Clear() {
	g.mu.Lock()
	g.street, g.city, g.state, g.postalCode = "", "", "", ""
	g.coords = nil
	g.value = nil
	g.mu.Unlock()

	g.cb.clear()
}

func (g *GlobalInput) set(f Field, value string) error {
	switch f {
	case FieldStreet:
		g.street = value
	case FieldCity:
		g.city = value
	case FieldState:
		g.state = value
	case FieldPostalCode:
		g.postalCode = value
	default:
		return eris.Errorf("provider: unknown global field %q", f)
	}
	return nil
}

// build must be called with mu held.
func (g *GlobalInput) build() *model.Address {
	street := strings.TrimSpace(g.street)
	city := strings.TrimSpace(g.city)
	if street == "" || city == "" {
		return nil
	}
	state := strings.TrimSpace(g.state)
	postal := strings.TrimSpace(g.postalCode)

	parts := make([]string, 0, 4)
	for _, p := range []string{street, city, state, postal} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return model.NewGlobalAddress(strings.Join(parts, ", "), postal, g.coords, model.GlobalDetail{
		Country:     g.countryName(),
		CountryCode: g.countryCode,
		State:       state,
		City:        city,
		Street:      street,
	})
}

func (g *GlobalInput) countryName() string {
	if g.countryCode == "" {
		return strings.TrimSpace(g.countryText)
	}
	if g.deps.Countries != nil {
		if c, ok := g.deps.Countries.ByCode(g.countryCode); ok {
			return c.Name
		}
	}
	return g.countryCode
}

type globalRequest struct {
	Street      string             `json:"street"`
	City        string             `json:"city"`
	State       string             `json:"state"`
	PostalCode  string             `json:"postal_code"`
	CountryCode string             `json:"country_code"`
	Country     string             `json:"country"`
	Coordinates *model.Coordinates `json:"coordinates"`
}

// Apply selects the country, then sets every field and emits once.
func (g *GlobalInput) Apply(raw []byte) error {
	var req globalRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return eris.Wrap(err, "provider: decode global payload")
	}
	if req.CountryCode != "" {
		if err := g.SelectCountry(req.CountryCode); err != nil {
			return err
		}
	}

	g.mu.Lock()
	if req.CountryCode == "" && req.Country != "" {
		g.countryCode = ""
		g.countryText = req.Country
	}
	g.street, g.city, g.state, g.postalCode = req.Street, req.City, req.State, req.PostalCode
	g.coords = req.Coordinates
	a := g.build()
	g.value = a
	g.mu.Unlock()

	g.cb.change(a)
	return nil
}
