// Package cli implements mapctl, the offline companion to mapd: it runs the
// same load, bucket and filter pipeline against URLs or local files.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/migrant-map/internal/adapter/source"
	"github.com/couchcryptid/migrant-map/internal/config"
	"github.com/couchcryptid/migrant-map/internal/domain"
	"github.com/couchcryptid/migrant-map/internal/observability"
	"github.com/couchcryptid/migrant-map/internal/pipeline"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Viper keys shared by every command.
const (
	keyDataset  = "dataset"
	keyTopology = "topology"
	keyTimeout  = "timeout"
	keyVerbose  = "verbose"
	keyFrom     = "from"
	keyTo       = "to"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.FgHiBlack)
)

// NewRootCmd builds the mapctl command tree. Flags can also be set through
// MAPCTL_* environment variables, e.g. MAPCTL_DATASET.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("MAPCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "mapctl",
		Short:         "Inspect and render the migrant mortality map offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String(keyDataset, config.DefaultDatasetURL, "Dataset CSV URL or path")
	root.PersistentFlags().String(keyTopology, config.DefaultTopologyURL, "World atlas TopoJSON URL or path")
	root.PersistentFlags().Duration(keyTimeout, 30*time.Second, "Fetch timeout")
	root.PersistentFlags().BoolP(keyVerbose, "v", false, "Log pipeline progress to stderr")
	cobra.CheckErr(v.BindPFlags(root.PersistentFlags()))

	root.AddCommand(
		newBucketsCmd(v),
		newRenderCmd(v),
		newValidateCmd(v),
		newWatchCmd(v),
	)
	return root
}

// addRangeFlags registers --from/--to, an optional selection in any
// accepted date layout.
func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().String(keyFrom, "", "Selection start (exclusive)")
	cmd.Flags().String(keyTo, "", "Selection end (exclusive)")
}

// bindLocal binds cmd's own flags to v. It runs when the command does, so
// commands sharing a flag name do not overwrite each other's binding.
func bindLocal(cmd *cobra.Command, v *viper.Viper) error {
	return v.BindPFlags(cmd.Flags())
}

// rangeFromFlags returns the selection named by --from/--to, or nil.
func rangeFromFlags(v *viper.Viper) (*domain.Selection, error) {
	from, to := v.GetString(keyFrom), v.GetString(keyTo)
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("--%s and --%s must be set together", keyFrom, keyTo)
	}
	start, err := domain.ParseDate(from)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", keyFrom, err)
	}
	end, err := domain.ParseDate(to)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", keyTo, err)
	}
	sel, err := domain.NewSelection(start, end)
	if err != nil {
		return nil, fmt.Errorf("--%s/--%s: %w", keyFrom, keyTo, err)
	}
	return &sel, nil
}

func newLogger(v *viper.Viper, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if v.GetBool(keyVerbose) {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newClient(v *viper.Viper, logger *slog.Logger) *source.Client {
	return source.NewClient(v.GetString(keyDataset), v.GetString(keyTopology), v.GetDuration(keyTimeout), logger)
}

// loadDashboard runs both loaders and returns a populated dashboard.
func loadDashboard(ctx context.Context, v *viper.Viper, cmd *cobra.Command) (*pipeline.Dashboard, error) {
	logger := newLogger(v, cmd.ErrOrStderr())
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())
	client := newClient(v, logger)

	dashboard := pipeline.NewDashboard(pipeline.DefaultOptions(), logger, metrics)
	loader := pipeline.NewLoader(client, client, dashboard, logger, metrics)
	loader.Start(ctx)
	if err := loader.Wait(ctx); err != nil {
		return nil, err
	}
	return dashboard, nil
}
