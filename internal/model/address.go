package model

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Kind discriminates the canonical address variants.
type Kind string

const (
	KindKorea  Kind = "korea"
	KindGlobal Kind = "global"
	KindDirect Kind = "direct"
)

// Valid reports whether k names a known variant.
func (k Kind) Valid() bool {
	switch k {
	case KindKorea, KindGlobal, KindDirect:
		return true
	default:
		return false
	}
}

// KindForRegion returns the provider kind that serves a detected region.
func KindForRegion(r Region) Kind {
	if r == RegionKorea {
		return KindKorea
	}
	return KindGlobal
}

// RegionForKind is the inverse of KindForRegion. Direct entry has no region.
func RegionForKind(k Kind) (Region, bool) {
	switch k {
	case KindKorea:
		return RegionKorea, true
	case KindGlobal:
		return RegionGlobal, true
	default:
		return "", false
	}
}

// AddressType distinguishes Korean road-name and lot-number addressing.
type AddressType string

const (
	AddressTypeRoad  AddressType = "road"
	AddressTypeJibun AddressType = "jibun"
)

// Coordinates is a WGS84 longitude/latitude pair.
type Coordinates struct {
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
}

// Point returns the coordinates as a 2D point with SRID 4326.
func (c Coordinates) Point() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.Longitude, c.Latitude}).SetSRID(4326)
}

// Address is the canonical address record handed to host forms. Exactly one of
// Korea, Global and Direct is set and it always matches Kind. A nil *Address
// means no address is selected.
type Address struct {
	Kind        Kind         `json:"kind" yaml:"kind"`
	FullAddress string       `json:"full_address" yaml:"full_address"`
	PostalCode  string       `json:"postal_code,omitempty" yaml:"postal_code,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`

	Korea  *KoreaDetail  `json:"korea,omitempty" yaml:"korea,omitempty"`
	Global *GlobalDetail `json:"global,omitempty" yaml:"global,omitempty"`
	Direct *DirectDetail `json:"direct,omitempty" yaml:"direct,omitempty"`
}

// KoreaDetail carries the postal-lookup breakdown of a Korean address.
type KoreaDetail struct {
	BaseAddress    string          `json:"base_address" yaml:"base_address"`
	DetailAddress  string          `json:"detail_address,omitempty" yaml:"detail_address,omitempty"`
	Sido           string          `json:"sido,omitempty" yaml:"sido,omitempty"`
	Sigungu        string          `json:"sigungu,omitempty" yaml:"sigungu,omitempty"`
	Bname          string          `json:"bname,omitempty" yaml:"bname,omitempty"`
	AddressType    AddressType     `json:"address_type" yaml:"address_type"`
	BuildingName   string          `json:"building_name,omitempty" yaml:"building_name,omitempty"`
	Apartment      bool            `json:"apartment,omitempty" yaml:"apartment,omitempty"`
	EnglishAddress string          `json:"english_address,omitempty" yaml:"english_address,omitempty"`
	RawData        json.RawMessage `json:"raw_data,omitempty" yaml:"-"`
}

// GlobalDetail carries the structured fields of an international address.
type GlobalDetail struct {
	Country     string `json:"country" yaml:"country"`
	CountryCode string `json:"country_code,omitempty" yaml:"country_code,omitempty"`
	State       string `json:"state,omitempty" yaml:"state,omitempty"`
	City        string `json:"city,omitempty" yaml:"city,omitempty"`
	Street      string `json:"street,omitempty" yaml:"street,omitempty"`
}

// DirectDetail tags a free-text address.
type DirectDetail struct {
	CountryCode string    `json:"country_code" yaml:"country_code"`
	InputMethod string    `json:"input_method" yaml:"input_method"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// InputMethodDirect is the only input method recorded on direct addresses.
const InputMethodDirect = "direct"

// NewKoreaAddress builds the Korean variant.
func NewKoreaAddress(full, postalCode string, coords *Coordinates, d KoreaDetail) *Address {
	return &Address{
		Kind:        KindKorea,
		FullAddress: full,
		PostalCode:  postalCode,
		Coordinates: coords,
		Korea:       &d,
	}
}

// NewGlobalAddress builds the global variant.
func NewGlobalAddress(full, postalCode string, coords *Coordinates, d GlobalDetail) *Address {
	return &Address{
		Kind:        KindGlobal,
		FullAddress: full,
		PostalCode:  postalCode,
		Coordinates: coords,
		Global:      &d,
	}
}

// NewDirectAddress builds the direct variant. Direct addresses never carry
// coordinates.
func NewDirectAddress(full, postalCode, countryCode string, createdAt time.Time) *Address {
	return &Address{
		Kind:        KindDirect,
		FullAddress: full,
		PostalCode:  postalCode,
		Direct: &DirectDetail{
			CountryCode: countryCode,
			InputMethod: InputMethodDirect,
			CreatedAt:   createdAt,
		},
	}
}

// Is reports whether a is non-nil and of kind k.
func (a *Address) Is(k Kind) bool {
	return a != nil && a.Kind == k
}

// Validate checks the variant invariant.
func (a *Address) Validate() error {
	if a == nil {
		return nil
	}
	set := 0
	for _, present := range []bool{a.Korea != nil, a.Global != nil, a.Direct != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return eris.Errorf("model: address must carry exactly one variant, has %d", set)
	}
	switch a.Kind {
	case KindKorea:
		if a.Korea == nil {
			return eris.New("model: korea address without korea detail")
		}
	case KindGlobal:
		if a.Global == nil {
			return eris.New("model: global address without global detail")
		}
	case KindDirect:
		if a.Direct == nil {
			return eris.New("model: direct address without direct detail")
		}
		if a.Coordinates != nil {
			return eris.New("model: direct address cannot carry coordinates")
		}
	default:
		return eris.Errorf("model: unknown address kind %q", a.Kind)
	}
	return nil
}
