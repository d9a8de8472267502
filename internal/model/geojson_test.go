package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeature_WithCoordinates(t *testing.T) {
	a := NewKoreaAddress("서울 중구 세종대로 110", "04524", &Coordinates{Longitude: 126.978, Latitude: 37.5665}, KoreaDetail{
		BaseAddress: "서울 중구 세종대로 110",
		AddressType: AddressTypeRoad,
	})

	f, err := Feature(a)
	require.NoError(t, err)

	raw, err := json.Marshal(f)
	require.NoError(t, err)

	var got struct {
		Type     string `json:"type"`
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]interface{} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "Feature", got.Type)
	assert.Equal(t, "Point", got.Geometry.Type)
	assert.InDeltaSlice(t, []float64{126.978, 37.5665}, got.Geometry.Coordinates, 1e-9)
	assert.Equal(t, "korea", got.Properties["kind"])
	assert.Equal(t, "04524", got.Properties["postal_code"])
	assert.NotContains(t, got.Properties, "coordinates")
}

func TestFeature_WithoutCoordinates(t *testing.T) {
	f, err := Feature(NewDirectAddress("[US] 1 Main St", "", "US", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Nil(t, f.Geometry)

	raw, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"geometry":null`)
}

func TestFeature_Nil(t *testing.T) {
	_, err := Feature(nil)
	assert.Error(t, err)
}
