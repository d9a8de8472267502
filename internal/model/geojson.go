package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Feature renders a as a GeoJSON feature. The geometry is null when the
// address has no coordinates; every other field becomes a property.
func Feature(a *Address) (*geojson.Feature, error) {
	if a == nil {
		return nil, eris.New("model: feature of nil address")
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, eris.Wrap(err, "model: encode address")
	}
	props := make(map[string]interface{})
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, eris.Wrap(err, "model: decode address properties")
	}
	delete(props, "coordinates")

	f := &geojson.Feature{Properties: props}
	if a.Coordinates != nil {
		f.Geometry = a.Coordinates.Point()
	}
	return f, nil
}
