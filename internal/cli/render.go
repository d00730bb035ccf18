package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/migrant-map/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const keyOutDir = "out-dir"

func newRenderCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "render",
		Short:   "Write the map, histogram and page to files",
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindLocal(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := rangeFromFlags(v)
			if err != nil {
				return err
			}
			d, err := loadDashboard(cmd.Context(), v, cmd)
			if err != nil {
				return err
			}
			if sel != nil {
				if _, err := d.SetSelection(cmd.Context(), sel); err != nil {
					return err
				}
			}
			return writeViews(cmd, d, v.GetString(keyOutDir))
		},
	}
	addRangeFlags(cmd)
	cmd.Flags().StringP(keyOutDir, "o", ".", "Directory to write view.svg, map.svg, histogram.svg and index.html into")
	return cmd
}

func writeViews(cmd *cobra.Command, d *pipeline.Dashboard, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	views := []struct {
		name   string
		render func() (string, error)
	}{
		{"view.svg", d.ViewSVG},
		{"map.svg", d.MapSVG},
		{"histogram.svg", d.HistogramSVG},
		{"index.html", func() (string, error) {
			page, err := d.Page()
			return string(page), err
		}},
	}

	for _, view := range views {
		body, err := view.render()
		if err != nil {
			return fmt.Errorf("render %s: %w", view.name, err)
		}
		path := filepath.Join(dir, view.name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil { //nolint:gosec // rendered output is public
			return fmt.Errorf("write %s: %w", view.name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okColor.Sprint("wrote"), path)
	}
	return nil
}
