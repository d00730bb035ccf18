package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/couchcryptid/migrant-map/internal/domain"
	"github.com/couchcryptid/migrant-map/internal/topology"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const keyStrict = "strict"

// errDefects is returned by validate --strict when any row was dropped.
var errDefects = errors.New("dataset has defective rows")

// defectReport groups dropped rows by the first defective field.
type defectReport struct {
	rows    int
	byField map[string][]*domain.RowDefect
}

func (r defectReport) total() int {
	n := 0
	for _, d := range r.byField {
		n += len(d)
	}
	return n
}

func newValidateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "validate",
		Short:   "Check that the dataset and topology load cleanly",
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindLocal(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client := newClient(v, newLogger(v, cmd.ErrOrStderr()))
			out := cmd.OutOrStdout()

			rows, err := client.FetchDataset(ctx)
			if err != nil {
				return err
			}
			report := validateRows(rows)
			if err := printDefects(out, report); err != nil {
				return err
			}

			data, err := client.FetchTopology(ctx)
			if err != nil {
				return err
			}
			world, err := topology.LoadWorld(data)
			if err != nil {
				fmt.Fprintf(out, "%-10s %s\n", "topology", failColor.Sprint("FAIL"))
				return err
			}
			b := world.Bound()
			fmt.Fprintf(out, "%-10s %s %d land features, %d border lines, lon %.1f..%.1f lat %.1f..%.1f\n",
				"topology", okColor.Sprint("PASS"), len(world.Land), len(world.Borders),
				b.Min.Lon(), b.Max.Lon(), b.Min.Lat(), b.Max.Lat())

			if v.GetBool(keyStrict) && report.total() > 0 {
				return errDefects
			}
			return nil
		},
	}
	cmd.Flags().Bool(keyStrict, false, "Fail when any dataset row is dropped")
	return cmd
}

func validateRows(rows []domain.RawRow) defectReport {
	report := defectReport{rows: len(rows), byField: map[string][]*domain.RowDefect{}}
	for _, raw := range rows {
		_, err := domain.ParseRow(raw)
		var defect *domain.RowDefect
		if errors.As(err, &defect) {
			report.byField[defect.Field] = append(report.byField[defect.Field], defect)
		}
	}
	return report
}

func printDefects(w io.Writer, r defectReport) error {
	status := okColor.Sprint("PASS")
	if r.total() > 0 {
		status = failColor.Sprintf("%d of %d rows dropped", r.total(), r.rows)
	}
	fmt.Fprintf(w, "%-10s %s %d rows\n", "dataset", status, r.rows)
	if r.total() == 0 {
		return nil
	}

	fields := make([]string, 0, len(r.byField))
	for f := range r.byField {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Field", "Rows", "First Line", "Example"})
	data := make([][]string, 0, len(fields))
	for _, f := range fields {
		first := r.byField[f][0]
		data = append(data, []string{
			f,
			strconv.Itoa(len(r.byField[f])),
			strconv.Itoa(first.Line),
			fmt.Sprintf("%q: %v", first.Value, first.Err),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
