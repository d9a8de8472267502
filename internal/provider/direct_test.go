package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/addrkit/internal/model"
)

func TestSplitPrefix(t *testing.T) {
	tests := []struct {
		in       string
		wantCode string
		wantRest string
		wantOK   bool
	}{
		{"[US] 123 Main St", "US", "123 Main St", true},
		{"[KOR]서울", "KOR", "서울", true},
		{"[us] 123 Main St", "", "[us] 123 Main St", false},
		{"[USAX] x", "", "[USAX] x", false},
		{"123 Main St", "", "123 Main St", false},
		{"[GB] line one\nline two", "GB", "line one\nline two", true},
	}
	for _, tt := range tests {
		code, rest, ok := SplitPrefix(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.wantCode, code, tt.in)
		assert.Equal(t, tt.wantRest, rest, tt.in)
	}
}

func TestDirect_PrefixRoundTrip(t *testing.T) {
	initial := &model.Address{Kind: model.KindDirect, FullAddress: "[US] 123 Main St"}
	rec := &recorder{}
	d := NewDirectInput(testDeps(), initial, rec.callbacks())

	assert.Equal(t, "US", d.CountryCode())
	assert.Equal(t, "123 Main St", d.Text())

	a := d.Emit()
	require.NotNil(t, a)
	assert.Equal(t, "[US] 123 Main St", a.FullAddress)
	assert.Equal(t, "US", a.Direct.CountryCode)
	assert.Equal(t, model.InputMethodDirect, a.Direct.InputMethod)
	assert.Equal(t, fixedNow, a.Direct.CreatedAt)
	assert.Nil(t, a.Coordinates)
	assert.NoError(t, a.Validate())
}

func TestDirect_InitialWithoutPrefixUsesDefault(t *testing.T) {
	initial := &model.Address{Kind: model.KindDirect, FullAddress: "somewhere"}
	d := NewDirectInput(testDeps(), initial, Callbacks{})
	assert.Equal(t, "KR", d.CountryCode())
	assert.Equal(t, "somewhere", d.Text())

	d = NewDirectInput(Deps{}, nil, Callbacks{})
	assert.Equal(t, DefaultCountry, d.CountryCode())
}

func TestDirect_SetText(t *testing.T) {
	rec := &recorder{}
	d := NewDirectInput(testDeps(), nil, rec.callbacks())

	d.SetText("  Gangnam-daero 1 ")
	assert.Equal(t, "[KR] Gangnam-daero 1", rec.last().FullAddress)

	d.SetText("   ")
	assert.Nil(t, rec.last())
	assert.Len(t, rec.values, 2)
	assert.Equal(t, 0, rec.clears)
}

func TestDirect_CountryChangeReemits(t *testing.T) {
	rec := &recorder{}
	d := NewDirectInput(testDeps(), nil, rec.callbacks())

	require.NoError(t, d.SelectCountry("JP"))
	assert.Empty(t, rec.values, "no text yet, nothing to emit")

	d.SetText("Shibuya 1-2-3")
	require.NoError(t, d.SelectCountry("us"))
	assert.Len(t, rec.values, 2)
	assert.Equal(t, "[US] Shibuya 1-2-3", rec.last().FullAddress)

	assert.ErrorIs(t, d.SelectCountry(model.SeparatorCode), ErrNotSelectable)
	assert.Equal(t, "US", d.CountryCode())
}

func TestDirect_PostalCode(t *testing.T) {
	rec := &recorder{}
	d := NewDirectInput(testDeps(), nil, rec.callbacks())

	d.SetPostalCode("12345")
	assert.Empty(t, rec.values)

	d.SetText("1 Road")
	assert.Equal(t, "12345", rec.last().PostalCode)
	d.SetPostalCode("54321")
	assert.Equal(t, "54321", rec.last().PostalCode)
}

func TestDirect_Clear(t *testing.T) {
	rec := &recorder{}
	d := NewDirectInput(testDeps(), nil, rec.callbacks())
	require.NoError(t, d.SelectCountry("GB"))
	d.SetText("221B Baker St")

	d.Clear()
	assert.Nil(t, rec.last())
	assert.Equal(t, 1, rec.clears)
	assert.Empty(t, d.Text())
	assert.Equal(t, "GB", d.CountryCode())
}

func TestDirect_Apply(t *testing.T) {
	rec := &recorder{}
	d := NewDirectInput(testDeps(), nil, rec.callbacks())

	require.NoError(t, d.Apply([]byte(`{"full_address":"[DE] Unter den Linden 1"}`)))
	assert.Equal(t, "[DE] Unter den Linden 1", rec.last().FullAddress)

	require.NoError(t, d.Apply([]byte(`{"text":"Unter den Linden 1","country_code":"at","postal_code":"1010"}`)))
	assert.Equal(t, "[AT] Unter den Linden 1", rec.last().FullAddress)
	assert.Equal(t, "1010", rec.last().PostalCode)

	require.NoError(t, d.Apply([]byte(`{"text":""}`)))
	assert.Nil(t, rec.last())

	assert.ErrorIs(t, d.Apply([]byte(`{"text":"x","country_code":"---"}`)), ErrNotSelectable)
	assert.Error(t, d.Apply([]byte(`{`)))
}
