package regional

import (
	"image"

	"github.com/gogpu/rmask"
)

// RegionTolerance bounds the per-channel distance between a mask pixel
// and a layer color. A pixel matches only when every channel is strictly
// closer than this.
const RegionTolerance = 10

// Region is the binary mask of one layer.
type Region struct {
	// Layer is the 0-based layer position the region was extracted for.
	Layer  int
	Color  rmask.Identity
	Mask   *image.Alpha // 255 inside, 0 outside
	Pixels int
}

// Regions is the result of Extract.
type Regions struct {
	// Layers holds one region per layer with at least one pixel, in layer
	// order.
	Layers []Region

	// Base covers every pixel that is in no layer region. It is nil when
	// no layer has pixels.
	Base *image.Alpha
}

// Len is the number of layer regions.
func (r *Regions) Len() int { return len(r.Layers) }

// Extract splits a clean mask into per-layer regions by identity color.
// Layers 0..layerCount-1 are considered; those without a single matching
// pixel are left out.
func Extract(mask image.Image, layerCount int) *Regions {
	pm := rmask.FromImage(mask)
	w, h := pm.Width(), pm.Height()
	rect := image.Rect(0, 0, w, h)

	out := &Regions{}
	var covered []bool
	for i := 0; i < layerCount; i++ {
		id := rmask.LayerColor(i)
		m := image.NewAlpha(rect)
		n := 0
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				px := pm.Pix(x, y)
				if !inRegion([3]uint8{px[0], px[1], px[2]}, id.RGB) {
					continue
				}
				m.Pix[y*m.Stride+x] = 255
				n++
			}
		}
		if n == 0 {
			continue
		}
		if covered == nil {
			covered = make([]bool, w*h)
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if m.Pix[y*m.Stride+x] != 0 {
					covered[y*w+x] = true
				}
			}
		}
		out.Layers = append(out.Layers, Region{Layer: i, Color: id, Mask: m, Pixels: n})
	}

	if covered != nil {
		out.Base = image.NewAlpha(rect)
		for i, c := range covered {
			if !c {
				out.Base.Pix[(i/w)*out.Base.Stride+i%w] = 255
			}
		}
	}
	rmask.Logger().Debug("regional: regions extracted", "layers", layerCount, "regions", len(out.Layers))
	return out
}

func inRegion(a, b [3]uint8) bool {
	return rmask.WithinTolerance(a, b, RegionTolerance-1)
}

// SummaryLimit caps Plan.Summary.
const SummaryLimit = 200

// Plan is everything a region-aware generator needs for one run.
type Plan struct {
	Prompt         string
	NegativePrompt string
	LayerCount     int
	Regions        *Regions
}

// NewPlan combines prompts and extracts regions from a clean mask.
// Prompts are normalized first. fallback is the layer count used when
// prompts is empty.
func NewPlan(mask image.Image, base, negative string, prompts PromptMap, fallback int) *Plan {
	prompts = prompts.Normalize()
	n := LayerCount(prompts, fallback)
	return &Plan{
		Prompt:         Combine(NormalizeText(base), prompts, fallback),
		NegativePrompt: NormalizeText(negative),
		LayerCount:     n,
		Regions:        Extract(mask, n),
	}
}

// Summary is the combined prompt cut to SummaryLimit bytes plus "..."
// when longer.
func (p *Plan) Summary() string {
	if len(p.Prompt) <= SummaryLimit {
		return p.Prompt
	}
	return p.Prompt[:SummaryLimit] + "..."
}

// Params returns the generation parameters recorded alongside an image
// made from this plan. Regions counts the base region.
func (p *Plan) Params() map[string]any {
	return map[string]any{
		"MRP Active":  true,
		"MRP Regions": p.LayerCount + 1,
		"MRP Prompt":  p.Summary(),
	}
}
