package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/csiro-hydroinformatics/efts-io/conventions"
	"github.com/csiro-hydroinformatics/efts-io/efts"
)

var (
	statsVariable  string
	statsStation   int32
	statsIssueTime string
	statsQuantiles []float64
)

var statsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Summarize an ensemble for one station",
	Long: "Stats prints the mean, spread and quantiles of an ensemble variable " +
		"for one station: per lead time for a forecast variable, per time step " +
		"for an ensemble series.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := efts.Read(args[0])
		if err != nil {
			return err
		}
		v, err := d.Variable(statsVariable)
		if err != nil {
			return err
		}

		var stats []efts.Statistics
		var offsetHeader string
		switch v.Def.Kind {
		case conventions.EnsembleForecast:
			issueTime := d.IssueTimes[0]
			if statsIssueTime != "" {
				issueTime, err = time.Parse(time.RFC3339, statsIssueTime)
				if err != nil {
					return fmt.Errorf("parsing --time: %w", err)
				}
			}
			stats, err = d.ForecastStatistics(statsVariable, statsStation, issueTime, statsQuantiles)
			offsetHeader = "LEAD TIME"
		case conventions.EnsembleSeries:
			stats, err = d.SeriesStatistics(statsVariable, statsStation, statsQuantiles)
			offsetHeader = "TIME STEP"
		default:
			return fmt.Errorf("variable %s has no ensemble dimension", statsVariable)
		}
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintf(w, "%s\tCOUNT\tMEAN\tSTDDEV\tMIN\tMAX", offsetHeader)
		for _, p := range statsQuantiles {
			fmt.Fprintf(w, "\tQ%g", 100*p)
		}
		fmt.Fprintln(w)
		for _, s := range stats {
			fmt.Fprintf(w, "%g\t%d\t%.4g\t%.4g\t%.4g\t%.4g", s.Offset, s.Count, s.Mean, s.StdDev, s.Min, s.Max)
			for _, q := range s.Quantiles {
				fmt.Fprintf(w, "\t%.4g", q)
			}
			fmt.Fprintln(w)
		}
		return w.Flush()
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsVariable, "variable", "", "data variable to summarize")
	statsCmd.Flags().Int32Var(&statsStation, "station", 0, "station identifier")
	statsCmd.Flags().StringVar(&statsIssueTime, "time", "", "forecast issue time, RFC 3339 (default: first)")
	statsCmd.Flags().Float64SliceVar(&statsQuantiles, "quantiles", []float64{0.05, 0.5, 0.95}, "quantile probabilities")
	statsCmd.MarkFlagRequired("variable")
	statsCmd.MarkFlagRequired("station")
}
