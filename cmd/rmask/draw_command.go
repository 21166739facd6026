package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/rmask"
	"github.com/gogpu/rmask/codec"
	"github.com/gogpu/rmask/saves"
)

// shape is one scripted gesture on a 1-based layer.
type shape struct {
	layer  int
	points []rmask.Point
	tool   rmask.Tool
	erase  bool
}

// parseShape parses "LAYER:x,y x,y ...".
func parseShape(s string, tool rmask.Tool, erase bool) (shape, error) {
	head, body, ok := strings.Cut(s, ":")
	if !ok {
		return shape{}, fmt.Errorf("invalid shape %q: want LAYER:x,y x,y ...", s)
	}
	layer, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || layer < 1 {
		return shape{}, fmt.Errorf("invalid layer in %q", s)
	}
	sh := shape{layer: layer, tool: tool, erase: erase}
	for _, f := range strings.Fields(body) {
		xs, ys, ok := strings.Cut(f, ",")
		x, errX := strconv.ParseFloat(xs, 64)
		y, errY := strconv.ParseFloat(ys, 64)
		if !ok || errX != nil || errY != nil {
			return shape{}, fmt.Errorf("invalid point %q in %q", f, s)
		}
		sh.points = append(sh.points, rmask.Pt(x, y))
	}
	if len(sh.points) == 0 {
		return shape{}, fmt.Errorf("shape %q has no points", s)
	}
	return sh, nil
}

func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	w, errW := strconv.Atoi(ws)
	h, errH := strconv.Atoi(hs)
	if !ok || errW != nil || errH != nil {
		return 0, 0, fmt.Errorf("invalid size %q: want WIDTHxHEIGHT", s)
	}
	return w, h, nil
}

// play replays a gesture through the editor's pointer entry points. The
// view is untransformed, so screen and canvas coordinates coincide.
func play(e *rmask.Editor, sh shape) {
	for e.LayerCount() < sh.layer {
		e.AddLayer()
	}
	e.SelectLayer(sh.layer - 1)
	e.SetTool(sh.tool)
	e.SetEraser(sh.erase)
	e.PointerDown(sh.points[0])
	for _, p := range sh.points[1:] {
		e.PointerMove(p)
	}
	e.PointerUp(sh.points[len(sh.points)-1])
	e.SetEraser(false)
}

func newDrawCommand(ctx *commandContext) *cobra.Command {
	var (
		size       string
		layers     int
		brush      float64
		basePath   string
		name       string
		basePrompt string
		negative   string
		strokes    []string
		lassos     []string
		erases     []string
		prompts    []string
	)
	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Paint a new mask from scripted strokes and save it",
		Long: "Paint a new mask from scripted gestures and save it. Each gesture is\n" +
			"LAYER:x,y x,y ... with a 1-based layer; layers are created as needed.\n" +
			"Strokes run first, then lassos, then erasures.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			w, h := cfg.Canvas.Width, cfg.Canvas.Height
			if size != "" {
				if w, h, err = parseSize(size); err != nil {
					return err
				}
			}

			var shapes []shape
			for _, group := range []struct {
				specs []string
				tool  rmask.Tool
				erase bool
			}{
				{strokes, rmask.ToolBrush, false},
				{lassos, rmask.ToolLasso, false},
				{erases, rmask.ToolBrush, true},
			} {
				for _, s := range group.specs {
					sh, err := parseShape(s, group.tool, group.erase)
					if err != nil {
						return err
					}
					shapes = append(shapes, sh)
				}
			}
			layerPrompts, err := parsePromptFlags(prompts)
			if err != nil {
				return err
			}

			store, err := ctx.store()
			if err != nil {
				return err
			}
			var (
				saved   string
				saveErr = errors.New("nothing to save")
			)
			syncFn := func(s *rmask.Snapshot) error {
				doc, err := codec.Encode(s).Document()
				if err != nil {
					saveErr = err
					return err
				}
				saved, saveErr = store.Save(cmd.Context(), saves.Request{
					Name:           name,
					Document:       doc,
					BasePrompt:     basePrompt,
					NegativePrompt: negative,
				})
				return saveErr
			}

			opts := append(cfg.EditorOptions(),
				rmask.WithSyncFunc(syncFn),
				// Only the flush on Close saves.
				rmask.WithSyncDelay(time.Hour),
			)
			if brush > 0 {
				opts = append(opts, rmask.WithBrushSize(brush))
			}
			e := rmask.NewEditor(w, h, opts...)
			if basePath != "" {
				img, err := readImageFile(basePath)
				if err != nil {
					e.Close()
					return err
				}
				e.SetBaseImage(img)
			}
			for e.LayerCount() < layers {
				e.AddLayer()
			}
			for _, sh := range shapes {
				play(e, sh)
			}
			for k, v := range layerPrompts {
				n, _ := strconv.Atoi(k)
				for e.LayerCount() < n {
					e.AddLayer()
				}
				e.SetPrompt(n-1, v)
			}
			if err := e.Close(); err != nil {
				return err
			}
			if saveErr != nil {
				return saveErr
			}

			cw, ch := e.Size()
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%dx%d, %d layers)\n", saved, cw, ch, e.LayerCount())
			return nil
		},
	}
	cmd.Flags().StringVar(&size, "size", "", "Canvas size as WIDTHxHEIGHT (default from configuration)")
	cmd.Flags().IntVar(&layers, "layers", 1, "Minimum number of layers")
	cmd.Flags().Float64Var(&brush, "brush", 0, "Brush diameter (default from configuration)")
	cmd.Flags().StringVar(&basePath, "base", "", "Base image; the canvas takes its size")
	cmd.Flags().StringVar(&name, "name", "", "Save name (default: timestamp auto-save)")
	cmd.Flags().StringVar(&basePrompt, "base-prompt", "", "Base prompt")
	cmd.Flags().StringVar(&negative, "negative", "", "Negative prompt")
	cmd.Flags().StringArrayVar(&strokes, "stroke", nil, "Brush stroke LAYER:x,y x,y ... (repeatable)")
	cmd.Flags().StringArrayVar(&lassos, "lasso", nil, "Lasso fill LAYER:x,y x,y ... (repeatable)")
	cmd.Flags().StringArrayVar(&erases, "erase", nil, "Eraser stroke LAYER:x,y x,y ... (repeatable)")
	cmd.Flags().StringArrayVarP(&prompts, "prompt", "p", nil, "Layer prompt as N=text (1-based, repeatable)")
	return cmd
}
