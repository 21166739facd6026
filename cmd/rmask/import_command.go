package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/rmask/codec"
	"github.com/gogpu/rmask/saves"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		name       string
		layersPath string
		basePath   string
		basePrompt string
		negative   string
		prompts    []string
	)
	cmd := &cobra.Command{
		Use:   "import MASK.png",
		Short: "Create a save from a clean mask image",
		Long: "Create a save from a clean mask image. With --layers the layer rasters are\n" +
			"restored from a layer array; otherwise layers are rebuilt from the mask colors.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read mask: %w", err)
			}
			doc := &codec.Document{Mask: codec.DataURL(data)}
			if layersPath != "" {
				layers, err := os.ReadFile(layersPath)
				if err != nil {
					return fmt.Errorf("read layers: %w", err)
				}
				doc.Layers = string(layers)
			}
			if basePath != "" {
				base, err := os.ReadFile(basePath)
				if err != nil {
					return fmt.Errorf("read base image: %w", err)
				}
				doc.Base = codec.DataURL(base)
			}
			if doc.Prompts, err = parsePromptFlags(prompts); err != nil {
				return err
			}

			st, err := codec.DecodeDocument(cmd.Context(), doc)
			if err != nil {
				return err
			}
			normalized, err := codec.Encode(st.Snapshot()).Document()
			if err != nil {
				return err
			}

			store, err := ctx.store()
			if err != nil {
				return err
			}
			saved, err := store.Save(cmd.Context(), saves.Request{
				Name:           name,
				Document:       normalized,
				BasePrompt:     basePrompt,
				NegativePrompt: negative,
			})
			if err != nil {
				return err
			}
			how := "restored"
			if st.Reconstructed {
				how = "rebuilt from mask colors"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s with %d layers (%s)\n", saved, st.Layers.Len(), how)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Save name (default: timestamp auto-save)")
	cmd.Flags().StringVar(&layersPath, "layers", "", "JSON layer array to restore layers from")
	cmd.Flags().StringVar(&basePath, "base", "", "Base image")
	cmd.Flags().StringVar(&basePrompt, "base-prompt", "", "Base prompt")
	cmd.Flags().StringVar(&negative, "negative", "", "Negative prompt")
	cmd.Flags().StringArrayVarP(&prompts, "prompt", "p", nil, "Layer prompt as N=text (1-based, repeatable)")
	return cmd
}

// parsePromptFlags turns "N=text" flags into a prompt map keyed by 1-based
// layer position.
func parsePromptFlags(flags []string) (map[string]string, error) {
	m := make(map[string]string, len(flags))
	for _, f := range flags {
		k, v, ok := strings.Cut(f, "=")
		n, err := strconv.Atoi(strings.TrimSpace(k))
		if !ok || err != nil || n < 1 {
			return nil, fmt.Errorf("invalid prompt %q: want N=text", f)
		}
		m[strconv.Itoa(n)] = v
	}
	return m, nil
}
