package codec

import "github.com/gogpu/rmask"

// Reconstruction thresholds.
const (
	// ClusterTolerance is the per-channel distance within which a mask
	// pixel joins an existing color cluster.
	ClusterTolerance = 20

	backgroundLevel = 250 // R, G and B all above this is background
	minAlpha        = 128
)

// skipPixel reports whether a mask pixel is background or too
// transparent to belong to a layer.
func skipPixel(px [4]uint8) bool {
	if px[3] < minAlpha {
		return true
	}
	return px[0] > backgroundLevel && px[1] > backgroundLevel && px[2] > backgroundLevel
}

// Reconstruct rebuilds layers from a clean mask alone.
//
// Non-background pixels are clustered by color in scan order: a pixel
// joins the first cluster whose sampled color is within
// ClusterTolerance on every channel, or starts a new one. Cluster k
// becomes layer k, painted opaque in LayerColor(k) wherever the mask
// matches the cluster's sampled color. A mask with no painted pixels
// yields a single empty layer.
//
// Layer order follows discovery order, not the order the layers had when
// the mask was made.
func Reconstruct(mask *rmask.Pixmap) *rmask.LayerStore {
	w, h := mask.Width(), mask.Height()

	var clusters [][3]uint8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := mask.Pix(x, y)
			if skipPixel(px) {
				continue
			}
			rgb := [3]uint8{px[0], px[1], px[2]}
			found := false
			for _, c := range clusters {
				if rmask.WithinTolerance(rgb, c, ClusterTolerance) {
					found = true
					break
				}
			}
			if !found {
				clusters = append(clusters, rgb)
			}
		}
	}

	s := rmask.NewLayerStore(w, h)
	if len(clusters) == 0 {
		s.Create()
		rmask.Logger().Info("codec: reconstructed empty mask")
		return s
	}

	for _, c := range clusters {
		l := s.Layer(s.Create())
		fill := l.Color.RGB
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				px := mask.Pix(x, y)
				if skipPixel(px) || !rmask.WithinTolerance([3]uint8{px[0], px[1], px[2]}, c, ClusterTolerance) {
					continue
				}
				l.Raster.SetPix(x, y, [4]uint8{fill[0], fill[1], fill[2], 255})
			}
		}
	}
	s.Select(0)
	rmask.Logger().Info("codec: reconstructed layers from mask", "layers", len(clusters))
	return s
}
