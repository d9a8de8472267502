package provider

import (
	"encoding/json"
	"regexp"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/addrkit/internal/model"
)

// DefaultCountry is used for direct entry when no country is configured.
const DefaultCountry = "KR"

var prefixPattern = regexp.MustCompile(`(?s)^\[([A-Z]{2,3})\]\s*(.*)$`)

// SplitPrefix splits "[CC] rest" into its country code and rest. ok is
// false when full does not carry a prefix.
func SplitPrefix(full string) (code, rest string, ok bool) {
	m := prefixPattern.FindStringSubmatch(full)
	if m == nil {
		return "", full, false
	}
	return m[1], m[2], true
}

// DirectInput is the free-text provider. Its output is always tagged with
// the selected country as "[CC] text".
type DirectInput struct {
	deps Deps
	cb   Callbacks

	mu          sync.Mutex
	text        string
	countryCode string
	postalCode  string
	value       *model.Address
}

// NewDirectInput creates the provider. A direct initial value is split into
// country and text; without a prefix the whole string is the text and the
// default country applies.
func NewDirectInput(deps Deps, initial *model.Address, cb Callbacks) *DirectInput {
	def := deps.DefaultCountry
	if def == "" {
		def = DefaultCountry
	}
	d := &DirectInput{deps: deps, cb: cb, countryCode: def}
	if initial.Is(model.KindDirect) {
		if code, rest, ok := SplitPrefix(initial.FullAddress); ok {
			d.countryCode, d.text = code, rest
		} else {
			d.text = initial.FullAddress
		}
		d.postalCode = initial.PostalCode
		d.value = initial
	}
	return d
}

func (d *DirectInput) Kind() model.Kind { return model.KindDirect }

func (d *DirectInput) Value() *model.Address {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value
}

// Text returns the address text without the prefix.
func (d *DirectInput) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// CountryCode returns the selected country code.
func (d *DirectInput) CountryCode() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.countryCode
}

// SetText edits the address text and emits; empty text emits nil.
func (d *DirectInput) SetText(text string) {
	d.mu.Lock()
	d.text = text
	a := d.build()
	d.value = a
	d.mu.Unlock()

	d.cb.change(a)
}

// SelectCountry changes the country and re-emits when text is present.
func (d *DirectInput) SelectCountry(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == model.SeparatorCode {
		return ErrNotSelectable
	}
	d.mu.Lock()
	d.countryCode = code
	if strings.TrimSpace(d.text) == "" {
		d.mu.Unlock()
		return nil
	}
	a := d.build()
	d.value = a
	d.mu.Unlock()

	d.cb.change(a)
	return nil
}

// SetPostalCode edits the optional postal code and re-emits when text is
// present.
func (d *DirectInput) SetPostalCode(postal string) {
	d.mu.Lock()
	d.postalCode = postal
	if strings.TrimSpace(d.text) == "" {
		d.mu.Unlock()
		return
	}
	a := d.build()
	d.value = a
	d.mu.Unlock()

	d.cb.change(a)
}

// Emit re-emits the current state unchanged.
func (d *DirectInput) Emit() *model.Address {
	d.mu.Lock()
	a := d.build()
	d.value = a
	d.mu.Unlock()

	d.cb.change(a)
	return a
}

// Clear empties the text and postal code and emits nil. The country is kept.
func (d *DirectInput) Clear() {
	d.mu.Lock()
	d.text = ""
	d.postalCode = ""
	d.value = nil
	d.mu.Unlock()

	d.cb.clear()
}

// build must be called with mu held.
func (d *DirectInput) build() *model.Address {
	text := strings.TrimSpace(d.text)
	if text == "" {
		return nil
	}
	return model.NewDirectAddress("["+d.countryCode+"] "+text, strings.TrimSpace(d.postalCode), d.countryCode, d.deps.now())
}

type directRequest struct {
	Text        string `json:"text"`
	FullAddress string `json:"full_address"`
	CountryCode string `json:"country_code"`
	PostalCode  string `json:"postal_code"`
}

// Apply accepts either "text" or a prefixed "full_address", an optional
// "country_code" that wins over the prefix, and emits once.
func (d *DirectInput) Apply(raw []byte) error {
	var req directRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return eris.Wrap(err, "provider: decode direct payload")
	}
	code := strings.ToUpper(strings.TrimSpace(req.CountryCode))
	if code == model.SeparatorCode {
		return ErrNotSelectable
	}

	d.mu.Lock()
	text := req.Text
	if req.FullAddress != "" {
		if prefixCode, rest, ok := SplitPrefix(req.FullAddress); ok {
			d.countryCode, text = prefixCode, rest
		} else {
			text = req.FullAddress
		}
	}
	if code != "" {
		d.countryCode = code
	}
	d.text = text
	d.postalCode = req.PostalCode
	d.mu.Unlock()

	d.Emit()
	return nil
}
