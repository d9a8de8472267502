package provider

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/addrkit/internal/model"
)

// MsgScriptFailed is shown when the postcode widget could not be loaded.
const MsgScriptFailed = "Failed to load the postcode search. Please enter the address directly."

// DefaultScriptURL is the Daum postcode widget.
const DefaultScriptURL = "https://t1.daumcdn.net/mapjsapi/bundle/postcode/prod/postcode.v2.js"

// looseString accepts a JSON string or any other scalar as its raw text. It
// never fails to decode.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	if string(b) == "null" {
		*s = ""
		return nil
	}
	*s = looseString(b)
	return nil
}

// PostcodePayload is what the postcode widget hands to its completion
// callback.
type PostcodePayload struct {
	Address          string      `json:"address"`
	RoadAddress      string      `json:"roadAddress"`
	JibunAddress     string      `json:"jibunAddress"`
	AutoJibunAddress string      `json:"autoJibunAddress"`
	Zonecode         string      `json:"zonecode"`
	AddressType      string      `json:"addressType"`
	UserSelectedType string      `json:"userSelectedType"`
	Sido             string      `json:"sido"`
	Sigungu          string      `json:"sigungu"`
	Bname            string      `json:"bname"`
	BuildingName     string      `json:"buildingName"`
	Apartment        string      `json:"apartment"`
	AddressEnglish   string      `json:"addressEnglish"`
	X                looseString `json:"x,omitempty"`
	Y                looseString `json:"y,omitempty"`

	// raw holds the bytes the payload was decoded from, unknown fields
	// included.
	raw json.RawMessage
}

// UnmarshalJSON decodes the known fields and keeps the original bytes.
func (p *PostcodePayload) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	type plain PostcodePayload
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = PostcodePayload(v)
	p.raw = append(json.RawMessage(nil), b...)
	return nil
}

// rawData returns the original widget bytes, or an encoding of the known
// fields for payloads built in Go.
func (p PostcodePayload) rawData() json.RawMessage {
	if len(p.raw) > 0 {
		return p.raw
	}
	raw, err := json.Marshal(p)
	if err != nil {
		zap.L().Debug("provider: encode postcode payload", zap.Error(err))
		return nil
	}
	return raw
}

// typeFlag is the road/lot flag the user picked, falling back to the
// widget's own classification.
func (p PostcodePayload) typeFlag() string {
	if f := strings.ToUpper(strings.TrimSpace(p.UserSelectedType)); f != "" {
		return f
	}
	return strings.ToUpper(strings.TrimSpace(p.AddressType))
}

func (p PostcodePayload) addressType() model.AddressType {
	if p.typeFlag() == "R" {
		return model.AddressTypeRoad
	}
	return model.AddressTypeJibun
}

func (p PostcodePayload) baseAddress() string {
	if a := strings.TrimSpace(p.Address); a != "" {
		return a
	}
	if p.typeFlag() == "R" {
		return strings.TrimSpace(p.RoadAddress)
	}
	if a := strings.TrimSpace(p.JibunAddress); a != "" {
		return a
	}
	return strings.TrimSpace(p.AutoJibunAddress)
}

// ParseCoordinates reads x (longitude) and y (latitude). Any unparseable or
// non-finite value yields nil.
func ParseCoordinates(x, y string) *model.Coordinates {
	lon, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
	if err != nil || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return nil
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(y), 64)
	if err != nil || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return nil
	}
	return &model.Coordinates{Longitude: lon, Latitude: lat}
}

func nfc(s string) string {
	return norm.NFC.String(s)
}

// KoreaInput is the postal-lookup provider.
type KoreaInput struct {
	deps Deps
	cb   Callbacks

	mu            sync.Mutex
	payload       *PostcodePayload
	base          string
	detail        string
	value         *model.Address
	searchEnabled bool
	errMsg        string
}

// NewKoreaInput creates the provider, restoring base and detail from a
// Korean initial value.
func NewKoreaInput(deps Deps, initial *model.Address, cb Callbacks) *KoreaInput {
	k := &KoreaInput{deps: deps, cb: cb, searchEnabled: true}
	if initial.Is(model.KindKorea) && initial.Korea != nil {
		k.base = initial.Korea.BaseAddress
		k.detail = initial.Korea.DetailAddress
		k.value = initial
	}
	return k
}

func (k *KoreaInput) Kind() model.Kind { return model.KindKorea }

func (k *KoreaInput) Value() *model.Address {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.value
}

// Complete handles a widget selection and emits the Korean address. A
// selection without any address is ignored and yields nil.
func (k *KoreaInput) Complete(p PostcodePayload) *model.Address {
	base := nfc(p.baseAddress())
	if base == "" {
		return nil
	}
	k.mu.Lock()
	k.payload = &p
	k.base = base
	a := k.build()
	k.value = a
	k.mu.Unlock()

	k.cb.change(a)
	return a
}

// SetDetail updates the unit or floor text. Before a base address exists
// the text is kept but nothing is emitted.
func (k *KoreaInput) SetDetail(detail string) {
	k.mu.Lock()
	k.detail = detail
	if k.base == "" {
		k.mu.Unlock()
		return
	}
	a := k.build()
	k.value = a
	k.mu.Unlock()

	k.cb.change(a)
}

// Clear forgets the selection and detail and emits nil.
func (k *KoreaInput) Clear() {
	k.mu.Lock()
	k.payload = nil
	k.base = ""
	k.detail = ""
	k.value = nil
	k.mu.Unlock()

	k.cb.clear()
}

// build must be called with mu held and a non-empty base.
func (k *KoreaInput) build() *model.Address {
	detail := nfc(strings.TrimSpace(k.detail))
	full := k.base
	if detail != "" {
		full = k.base + " " + detail
	}

	if k.payload == nil {
		// Restored from an initial value: only base and detail are known.
		prev := model.KoreaDetail{}
		postal := ""
		var coords *model.Coordinates
		if k.value != nil && k.value.Korea != nil {
			prev = *k.value.Korea
			postal = k.value.PostalCode
			coords = k.value.Coordinates
		}
		prev.BaseAddress = k.base
		prev.DetailAddress = detail
		return model.NewKoreaAddress(full, postal, coords, prev)
	}

	p := k.payload
	return model.NewKoreaAddress(full, strings.TrimSpace(p.Zonecode), ParseCoordinates(string(p.X), string(p.Y)), model.KoreaDetail{
		BaseAddress:    k.base,
		DetailAddress:  detail,
		Sido:           nfc(p.Sido),
		Sigungu:        nfc(p.Sigungu),
		Bname:          nfc(p.Bname),
		AddressType:    p.addressType(),
		BuildingName:   nfc(strings.TrimSpace(p.BuildingName)),
		Apartment:      strings.EqualFold(p.Apartment, "Y"),
		EnglishAddress: strings.TrimSpace(p.AddressEnglish),
		RawData:        p.rawData(),
	})
}

// Apply decodes a widget payload with an optional "detailAddress" and
// completes the selection. The payload bytes are kept as the raw data.
func (k *KoreaInput) Apply(raw []byte) error {
	var p PostcodePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return eris.Wrap(err, "provider: decode korea payload")
	}
	var extra struct {
		DetailAddress string `json:"detailAddress"`
	}
	if err := json.Unmarshal(raw, &extra); err != nil {
		return eris.Wrap(err, "provider: decode korea payload")
	}
	if p.baseAddress() == "" {
		return eris.New("provider: korea payload has no address")
	}
	k.mu.Lock()
	k.detail = extra.DetailAddress
	k.mu.Unlock()
	k.Complete(p)
	return nil
}

// Prepare loads the postcode widget script. On failure search is disabled
// and a user-facing message is recorded; the load is not retried.
func (k *KoreaInput) Prepare(ctx context.Context) error {
	if k.deps.Loader == nil {
		return nil
	}
	_, err := k.deps.Loader.Load(ctx, k.deps.WidgetURL())

	k.mu.Lock()
	defer k.mu.Unlock()
	if err != nil {
		k.searchEnabled = false
		k.errMsg = MsgScriptFailed
		return err
	}
	k.searchEnabled = true
	k.errMsg = ""
	return nil
}

// WidgetURL returns the postcode widget script URL, falling back to
// DefaultScriptURL.
func (d Deps) WidgetURL() string {
	if d.ScriptURL == "" {
		return DefaultScriptURL
	}
	return d.ScriptURL
}

// SearchEnabled reports whether the postcode search can be opened.
func (k *KoreaInput) SearchEnabled() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.searchEnabled
}

// Err returns the script load message, or "".
func (k *KoreaInput) Err() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.errMsg
}
