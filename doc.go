// Package rmask provides a layered raster mask engine.
//
// # Overview
//
// rmask lets a user paint any number of independent, color-coded mask
// layers over an optional reference image, each layer carrying its own
// free-text prompt, and persist and restore that state losslessly.
//
// # Quick Start
//
//	import "github.com/gogpu/rmask"
//
//	ed := rmask.NewEditor(1024, 1024)
//	ed.FitToScreen(800, 600)
//
//	// Paint on the first layer
//	ed.PointerDown(rmask.Pt(100, 100))
//	ed.PointerMove(rmask.Pt(200, 150))
//	ed.PointerUp(rmask.Pt(200, 150))
//
//	// Flatten for a downstream consumer
//	mask := ed.CleanMask()
//
// # Color Identity
//
// The layer at position i is always colored LayerColor(i). Color is the
// only thing that identifies a layer in a flattened clean mask, so the
// palette is deterministic and deleting a layer recolors every layer that
// moves (see LayerStore.Delete). The codec package rebuilds layers from a
// clean mask by clustering these colors when structured layer data is
// missing.
//
// # Architecture
//
// The library is organized into:
//   - Engine: LayerStore, PaintEngine, History, View, Compositor
//   - Session: Editor (serialized entry points, debounced sync), Sessions
//   - codec: clean mask, composite and per-layer encoding and decoding
//   - regional: prompt maps and per-layer region extraction
//   - saves: PNG save files carrying editor state in a text chunk
//   - internal/raster: aliased scanline polygon filling
//
// # Coordinate System
//
// Uses standard raster coordinates:
//   - Origin (0,0) at the top-left of the canvas
//   - X increases right
//   - Y increases down
//   - A pixel is covered by a shape when its center lies inside it
package rmask

// Version is the current version of the library.
const Version = "0.1.0"
