package codec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/rmask"
)

// ErrNoMask is returned when there is no clean mask to decode against.
var ErrNoMask = errors.New("codec: missing clean mask")

// State is decoded editor state.
type State struct {
	Layers *rmask.LayerStore
	Base   *rmask.Pixmap

	// Reconstructed is set when the layers were rebuilt from the clean
	// mask instead of the layer array.
	Reconstructed bool
}

// Snapshot returns the state as an editor snapshot.
func (s *State) Snapshot() *rmask.Snapshot {
	return &rmask.Snapshot{Layers: s.Layers, Base: s.Base}
}

// Decode rebuilds layers for a clean mask. When layerJSON parses to a
// non-empty layer array, the layer rasters are restored exactly and the
// mask only fixes the canvas size. Otherwise, or when no layer raster
// can be decoded, the layers are reconstructed from the mask's colors.
//
// Malformed layer metadata is not an error. Decode fails only when mask
// is nil or ctx is cancelled.
func Decode(ctx context.Context, mask *rmask.Pixmap, layerJSON []byte) (*rmask.LayerStore, error) {
	if mask == nil {
		return nil, ErrNoMask
	}
	s, _, err := decodeLayers(ctx, mask.Width(), mask.Height(), mask, layerJSON)
	return s, err
}

// DecodeDocument decodes a portable document. The clean mask is required.
// A base image, when present and decodable, is decoded first and fixes
// the canvas size; layers are attached afterwards. Prompts are assigned
// to layers by 1-based position.
func DecodeDocument(ctx context.Context, doc *Document) (*State, error) {
	if doc == nil || doc.Mask == "" {
		return nil, ErrNoMask
	}
	mask, err := DecodePixmap(doc.Mask)
	if err != nil {
		return nil, fmt.Errorf("codec: mask: %w", err)
	}

	st := &State{}
	w, h := mask.Width(), mask.Height()
	if doc.Base != "" {
		base, err := DecodePixmap(doc.Base)
		if err != nil {
			rmask.Logger().Warn("codec: base image dropped", "err", err)
		} else {
			st.Base = base
			w, h = base.Width(), base.Height()
		}
	}

	st.Layers, st.Reconstructed, err = decodeLayers(ctx, w, h, mask, []byte(doc.Layers))
	if err != nil {
		return nil, err
	}
	ApplyPrompts(st.Layers, doc.Prompts)
	return st, nil
}

// ApplyPrompts sets layer prompts from a map keyed by 1-based position.
// Keys that are not positions of existing layers are ignored.
func ApplyPrompts(s *rmask.LayerStore, prompts map[string]string) {
	for k, v := range prompts {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		s.SetPrompt(n-1, v)
	}
}

func parseLayers(layerJSON []byte) ([]LayerRecord, bool) {
	if len(layerJSON) == 0 {
		return nil, false
	}
	var records []LayerRecord
	if err := json.Unmarshal(layerJSON, &records); err != nil {
		rmask.Logger().Warn("codec: malformed layer metadata", "err", err)
		return nil, false
	}
	return records, len(records) > 0
}

// decodeLayers decodes every layer raster concurrently and joins them.
// A layer whose raster fails to decode is dropped without holding up the
// others.
func decodeLayers(ctx context.Context, w, h int, mask *rmask.Pixmap, layerJSON []byte) (*rmask.LayerStore, bool, error) {
	records, ok := parseLayers(layerJSON)
	if !ok {
		return reconstructSized(mask, w, h), true, nil
	}

	rasters := make([]*rmask.Pixmap, len(records))
	g, gctx := errgroup.WithContext(ctx)
	for i, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := DecodePixmap(rec.Raster)
			if err != nil {
				rmask.Logger().Warn("codec: layer dropped", "index", i, "name", rec.Name, "err", err)
				return nil
			}
			rasters[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	s := rmask.NewLayerStore(w, h)
	for i, rec := range records {
		if rasters[i] == nil {
			continue
		}
		l := s.Layer(s.Create())
		l.Raster.CopyFrom(rasters[i])
		if rec.Name != "" && rec.Name != rmask.LayerColor(i).Name {
			l.Name = rec.Name
		}
		// A dropped layer shifts the ones after it.
		if from := recordRGB(rec); from != l.Color.RGB {
			rmask.RecolorPixels(l.Raster, from, l.Color.RGB, rmask.RecolorTolerance)
		}
	}
	if s.Len() == 0 {
		rmask.Logger().Warn("codec: no layer decoded, reconstructing from mask", "layers", len(records))
		return reconstructSized(mask, w, h), true, nil
	}
	s.Select(0)
	rmask.Logger().Info("codec: layers decoded", "layers", s.Len(), "dropped", len(records)-s.Len())
	return s, false, nil
}

func recordRGB(rec LayerRecord) [3]uint8 {
	if rgb, ok := rmask.ParseHex(rec.Color); ok {
		return rgb
	}
	return rec.RGB
}

func reconstructSized(mask *rmask.Pixmap, w, h int) *rmask.LayerStore {
	s := Reconstruct(mask)
	if sw, sh := s.Size(); sw != w || sh != h {
		s.Resize(w, h)
	}
	return s
}
