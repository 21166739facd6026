package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/rmask/regional"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saves, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No saves yet")
				return nil
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				kind := "auto"
				if e.Custom {
					kind = "custom"
				}
				rows = append(rows, []string{e.Name, kind, formatBytes(e.Size), e.ModTime.Format(time.DateTime)})
			}
			writeTable(out, []string{"NAME", "KIND", "SIZE", "MODIFIED"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many saves")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show the layers and prompts of a save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, st, err := ctx.loadState(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			w, h := st.Layers.Size()
			kind := "custom"
			if rec.IsAuto {
				kind = "auto"
			}
			fmt.Fprintf(out, "Name:      %s (%s)\n", rec.Name, kind)
			fmt.Fprintf(out, "Canvas:    %dx%d\n", w, h)
			fmt.Fprintf(out, "Base:      %t\n", st.Base != nil)
			if st.Reconstructed {
				fmt.Fprintln(out, "Layers:    rebuilt from mask colors")
			}
			fmt.Fprintf(out, "Prompt:    %s\n", rec.BasePrompt)
			fmt.Fprintf(out, "Negative:  %s\n", rec.NegativePrompt)
			fmt.Fprintln(out)

			rows := make([][]string, 0, st.Layers.Len())
			for i, l := range st.Layers.Layers() {
				rows = append(rows, []string{
					strconv.Itoa(i + 1), l.Name, l.Color.Hex,
					strconv.Itoa(l.Raster.CountOpaque()), l.Prompt,
				})
			}
			writeTable(out, []string{"#", "LAYER", "COLOR", "PIXELS", "PROMPT"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft})
			return nil
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME...",
		Short: "Delete saves",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			for _, name := range args {
				if err := store.Delete(cmd.Context(), name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", name)
			}
			return nil
		},
	}
}

func newPruneCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete the oldest auto-saves beyond the limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			if limit < 0 {
				limit = store.Limit()
			}
			removed, err := store.Prune(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			sort.Strings(removed)
			for _, name := range removed {
				fmt.Fprintf(out, "Deleted %s\n", name)
			}
			fmt.Fprintf(out, "Pruned %d auto-saves\n", len(removed))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "keep", -1, "Auto-saves to keep (default from configuration)")
	return cmd
}

func newRegionsCommand(ctx *commandContext) *cobra.Command {
	var (
		fallback int
		outDir   string
	)
	cmd := &cobra.Command{
		Use:   "regions NAME",
		Short: "Print the combined prompt and the regions of a save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			rec, err := store.Load(args[0])
			if err != nil {
				return err
			}
			mask, err := decodeMask(rec.Document.Mask)
			if err != nil {
				return err
			}
			plan := regional.NewPlan(mask, rec.BasePrompt, rec.NegativePrompt, regional.PromptMap(rec.Document.Prompts), fallback)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Prompt:   %s\n", plan.Prompt)
			if plan.NegativePrompt != "" {
				fmt.Fprintf(out, "Negative: %s\n", plan.NegativePrompt)
			}
			fmt.Fprintf(out, "Regions:  %d of %d layers\n\n", plan.Regions.Len(), plan.LayerCount)

			rows := make([][]string, 0, plan.Regions.Len())
			for _, r := range plan.Regions.Layers {
				rows = append(rows, []string{strconv.Itoa(r.Layer + 1), r.Color.Hex, strconv.Itoa(r.Pixels)})
			}
			writeTable(out, []string{"LAYER", "COLOR", "PIXELS"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignRight})

			if outDir != "" {
				files, err := writeRegions(outDir, plan.Regions)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %d region images to %s\n", files, outDir)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&fallback, "layers", 0, "Layer count when the save has no prompts")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Write region masks as PNG files to this directory")
	return cmd
}
