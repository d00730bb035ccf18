package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/migrant-map/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const bucketDateFormat = "2006-01-02"

func newBucketsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buckets",
		Short: "Print the monthly histogram buckets",
		Long: "Print one row per month of the niced date domain with its record count " +
			"and Total Dead and Missing. With --from/--to, buckets overlapping the " +
			"selection are marked and the active subset is summarized.",
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
			buckets, err := d.Buckets()
			if err != nil {
				return err
			}
			active, err := d.Active()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := printBuckets(out, buckets, sel); err != nil {
				return err
			}
			return printSummary(out, active, sel)
		},
	}
	addRangeFlags(cmd)
	return cmd
}

// printBuckets renders buckets as a table. A bucket is marked when it
// overlaps sel.
func printBuckets(w io.Writer, buckets []domain.Bucket, sel *domain.Selection) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Start", "End", "Records", "Dead and Missing", "Selected"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(buckets))
	for _, b := range buckets {
		mark := ""
		if sel != nil && sel.From.Before(b.End) && b.Start.Before(sel.To) {
			mark = "*"
		}
		data = append(data, []string{
			b.Start.Format(bucketDateFormat),
			b.End.Format(bucketDateFormat),
			strconv.Itoa(b.Count),
			strconv.Itoa(b.SeveritySum),
			mark,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printSummary(w io.Writer, active []domain.Incident, sel *domain.Selection) error {
	scope := "all records"
	if sel != nil {
		scope = fmt.Sprintf("%s to %s", sel.From.Format(bucketDateFormat), sel.To.Format(bucketDateFormat))
	}
	_, err := fmt.Fprintf(w, "%s %d incidents, %d dead and missing %s\n",
		okColor.Sprint("active:"), len(active), domain.TotalSeverity(active), dimColor.Sprintf("(%s)", scope))
	return err
}
