package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/csiro-hydroinformatics/efts-io/efts"
	"github.com/csiro-hydroinformatics/efts-io/internal/export"
)

var (
	exportVariables []string
	exportFormat    string
	exportOutDir    string
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export data variables as CSV or InfluxDB line protocol files",
	Long: "Export streams each data variable of an EFTS netCDF file into a text " +
		"file in the output directory, one record per ensemble member, station " +
		"and lead time. Variables are exported concurrently.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := args[0]
		format := export.Format(exportFormat)

		variables := exportVariables
		if len(variables) == 0 {
			var err error
			variables, err = efts.DataVariableNames(file)
			if err != nil {
				return err
			}
		}
		if len(variables) == 0 {
			return fmt.Errorf("no data variables to export in %s", file)
		}
		if err := os.MkdirAll(exportOutDir, 0o755); err != nil {
			return err
		}

		g, _ := errgroup.WithContext(cmd.Context())
		g.SetLimit(cnf.Concurrency)
		for _, variable := range variables {
			variable := variable
			g.Go(func() error {
				return exportVariable(file, variable, format)
			})
		}
		return g.Wait()
	},
}

func exportVariable(file, variable string, format export.Format) error {
	s, err := efts.NewScanner(file, variable)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", variable, err)
	}
	defer s.Close()
	logger.Infow("exporting", s.Summary()...)

	outPath := filepath.Join(exportOutDir, variable+outExt(format))
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	ew, err := export.NewWriter(bw, format, variable)
	if err != nil {
		return err
	}

	var exported, total float64
	total = float64(s.TotalRecCount())
	start := time.Now()
	for s.Scan() {
		recs := s.Records()
		n := len(recs)
		for i := 0; i < n; i += cnf.BatchSize {
			limit := i + cnf.BatchSize
			if limit > n {
				limit = n
			}
			if err := ew.Write(recs[i:limit]); err != nil {
				return err
			}
		}
		exported += float64(n)
		logger.Debugw("progress",
			"variable", variable,
			"exported", fmt.Sprintf("%.2f%%", 100*exported/total),
			"in", time.Since(start).Round(1*time.Second))
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("scanning %s: %w", variable, err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	logger.Infow("exported", "variable", variable, "file", outPath,
		"records", int(exported), "in", time.Since(start).Round(1*time.Millisecond))
	return nil
}

func outExt(format export.Format) string {
	if format == export.Influx {
		return ".lp"
	}
	return ".csv"
}

func init() {
	exportCmd.Flags().StringSliceVar(&exportVariables, "variables", nil, "data variables to export (default: all)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or influx")
	exportCmd.Flags().StringVar(&exportOutDir, "out", ".", "output directory")
}
