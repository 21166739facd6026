// Package codec converts editor state to and from its portable form.
//
// The portable form has two layers of redundancy. The clean mask is a
// flat image where every painted pixel carries its layer's identity
// color; it is what downstream consumers read. The layer array carries
// each layer's raster exactly. Decoding prefers the layer array and falls
// back to rebuilding layers from the clean mask's colors when the array
// is missing, malformed or undecodable.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/gogpu/rmask"
)

// EncodedLayer is one layer of an encoding, in position order.
type EncodedLayer struct {
	Name   string
	Color  string // "#rrggbb"
	RGB    [3]uint8
	Raster *rmask.Pixmap
}

// Encoded is the in-memory encoding of a snapshot.
type Encoded struct {
	// Mask is the clean mask: white plus every layer at full opacity.
	Mask *rmask.Pixmap

	// Composite is the human-facing preview: base or white plus the
	// visible layers.
	Composite *rmask.Pixmap

	Layers  []EncodedLayer
	Base    *rmask.Pixmap // nil without a base image
	Prompts map[string]string
}

// Encode flattens and copies a snapshot.
func Encode(s *rmask.Snapshot) *Encoded {
	e := &Encoded{
		Mask:      rmask.CleanMask(s.Layers),
		Composite: rmask.Composite(s.Layers, s.Base),
		Prompts:   s.Prompts(),
	}
	for _, l := range s.Layers.Layers() {
		e.Layers = append(e.Layers, EncodedLayer{
			Name:   l.Name,
			Color:  l.Color.Hex,
			RGB:    l.Color.RGB,
			Raster: l.Raster.Clone(),
		})
	}
	if s.Base != nil {
		e.Base = s.Base.Clone()
	}
	return e
}

// LayerRecord is the JSON form of one layer.
type LayerRecord struct {
	Name   string   `json:"name"`
	Color  string   `json:"color"`
	RGB    [3]uint8 `json:"rgb"`
	Raster string   `json:"raster"` // PNG data URL
}

// Document is the portable form: images as PNG data URLs and the layer
// array as JSON text.
type Document struct {
	Mask      string            `json:"mask"`
	Composite string            `json:"composite"`
	Layers    string            `json:"layers"`
	Base      string            `json:"base,omitempty"`
	Prompts   map[string]string `json:"prompts"`
}

// Document encodes every raster as a PNG data URL.
func (e *Encoded) Document() (*Document, error) {
	var (
		doc Document
		err error
	)
	if doc.Mask, err = EncodePixmap(e.Mask); err != nil {
		return nil, fmt.Errorf("mask: %w", err)
	}
	if doc.Composite, err = EncodePixmap(e.Composite); err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}
	if e.Base != nil {
		if doc.Base, err = EncodePixmap(e.Base); err != nil {
			return nil, fmt.Errorf("base: %w", err)
		}
	}

	records := make([]LayerRecord, len(e.Layers))
	for i, l := range e.Layers {
		raster, err := EncodePixmap(l.Raster)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		records[i] = LayerRecord{Name: l.Name, Color: l.Color, RGB: l.RGB, Raster: raster}
	}
	layers, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("layers: %w", err)
	}
	doc.Layers = string(layers)

	doc.Prompts = make(map[string]string, len(e.Prompts))
	for k, v := range e.Prompts {
		doc.Prompts[k] = v
	}
	return &doc, nil
}
