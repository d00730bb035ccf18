package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/couchcryptid/migrant-map/internal/adapter/kafka"
	"github.com/couchcryptid/migrant-map/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	keyBrokers = "brokers"
	keyTopic   = "topic"
	keyGroup   = "group"
)

func newWatchCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Follow selection events published by mapd",
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindLocal(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw := v.GetString(keyBrokers)
			if raw == "" {
				return errors.New("--brokers is required")
			}
			brokers := sharedcfg.ParseBrokers(raw)
			logger := newLogger(v, cmd.ErrOrStderr())
			reader := kafka.NewReader(brokers, v.GetString(keyTopic), v.GetString(keyGroup), logger)
			defer reader.Close() //nolint:errcheck // best-effort on exit

			return watch(cmd.Context(), reader, cmd.OutOrStdout())
		},
	}
	cmd.Flags().String(keyBrokers, "localhost:9092", "Comma-separated Kafka brokers")
	cmd.Flags().String(keyTopic, "map-selection-events", "Selection event topic")
	cmd.Flags().String(keyGroup, "", "Consumer group; empty follows the latest events without committing")
	return cmd
}

type selectionReader interface {
	ReadSelection(ctx context.Context) (domain.SelectionEvent, error)
}

// watch prints events until ctx ends.
func watch(ctx context.Context, r selectionReader, w io.Writer) error {
	for {
		event, err := r.ReadSelection(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fmt.Fprintln(w, formatEvent(event))
	}
}

func formatEvent(e domain.SelectionEvent) string {
	scope := "cleared"
	if e.Selection != nil {
		scope = e.Selection.From.Format(bucketDateFormat) + " to " + e.Selection.To.Format(bucketDateFormat)
	}
	return fmt.Sprintf("%s %-5s %s: %d incidents, %d dead and missing",
		dimColor.Sprint(e.ChangedAt.Format(time.RFC3339)), e.Kind(), scope, e.Active, e.Severity)
}
