package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"predictd/internal/registry"
)

// newCheckCmd validates the configuration and loads every artifact in the
// models directory without starting the server.
func newCheckCmd(getenv func(string) string) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:     "check",
		Short:   "Validate config and model artifacts, then exit",
		Example: "  predictd check --models-dir ./models",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, getenv)
			if err != nil {
				return err
			}
			loader, err := registry.NewFileLoader(cfg.ModelsDir)
			if err != nil {
				return err
			}
			ids, err := loader.Available()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			reg := registry.New(loader, registry.Options{BaseContext: ctx, LoadTimeout: cfg.LoadTimeout()})
			_ = reg.Preload(ctx, ids...)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODEL\tSTATUS\tDETAIL")
			failed := 0
			var summaries []string
			for _, st := range reg.Snapshot() {
				if st.State != string(registry.StateReady) {
					failed++
					fmt.Fprintf(tw, "%s\tinvalid\t%s\n", st.ID, st.Error)
					continue
				}
				h, err := reg.Resolve(ctx, st.ID)
				if err != nil {
					return err
				}
				m := h.Model
				fmt.Fprintf(tw, "%s\tok\t%s %dx%d grid %d\n", st.ID, m.Kind, m.Input.Width, m.Input.Height, m.Input.Grid)
				summaries = append(summaries, m.Summary())
			}
			for _, id := range []string{cfg.TongueModel, cfg.NailModel} {
				if id != "" && !contains(ids, id) {
					failed++
					fmt.Fprintf(tw, "%s\tmissing\trequired for screening\n", id)
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if verbose {
				for _, s := range summaries {
					fmt.Fprintln(cmd.OutOrStdout())
					fmt.Fprint(cmd.OutOrStdout(), s)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d model(s) missing or invalid in %s", failed, cfg.ModelsDir)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the full summary of every model")
	return cmd
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
