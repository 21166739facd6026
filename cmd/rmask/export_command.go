package main

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gogpu/rmask"
	"github.com/gogpu/rmask/codec"
	"github.com/gogpu/rmask/regional"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		outDir     string
		thumbnails bool
	)
	cmd := &cobra.Command{
		Use:   "export NAME",
		Short: "Write the mask, composite and every layer of a save as PNG files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, st, err := ctx.loadState(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = rec.Name
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			files := map[string]image.Image{
				"mask.png":      rmask.CleanMask(st.Layers).NRGBA(),
				"composite.png": rmask.Composite(st.Layers, st.Base).NRGBA(),
			}
			if st.Base != nil {
				files["base.png"] = st.Base.NRGBA()
			}
			for i, l := range st.Layers.Layers() {
				files[fmt.Sprintf("layer-%02d.png", i+1)] = l.Raster.NRGBA()
				if thumbnails {
					files[fmt.Sprintf("thumb-%02d.png", i+1)] = rmask.Thumbnail(l, cfg.Display.ThumbnailSize)
				}
			}
			for name, img := range files {
				if err := writePNG(filepath.Join(outDir, name), img); err != nil {
					return err
				}
			}

			prompts, err := json.MarshalIndent(map[string]any{
				"base_prompt":     rec.BasePrompt,
				"base_neg_prompt": rec.NegativePrompt,
				"prompts":         codec.Encode(st.Snapshot()).Prompts,
			}, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(outDir, "prompts.json"), prompts, 0o644); err != nil {
				return fmt.Errorf("write prompts: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d layers of %s to %s\n", st.Layers.Len(), rec.Name, outDir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: the save name)")
	cmd.Flags().BoolVar(&thumbnails, "thumbnails", false, "Also write labelled layer thumbnails")
	return cmd
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func readImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func decodeMask(dataURL string) (*rmask.Pixmap, error) {
	mask, err := codec.DecodePixmap(dataURL)
	if err != nil {
		return nil, fmt.Errorf("decode mask: %w", err)
	}
	return mask, nil
}

func writeRegions(dir string, r *regional.Regions) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}
	n := 0
	for _, reg := range r.Layers {
		if err := writePNG(filepath.Join(dir, fmt.Sprintf("region-%02d.png", reg.Layer+1)), reg.Mask); err != nil {
			return n, err
		}
		n++
	}
	if r.Base != nil {
		if err := writePNG(filepath.Join(dir, "region-base.png"), r.Base); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
