package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/csiro-hydroinformatics/efts-io/efts"
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Print a summary of an EFTS netCDF file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := efts.Read(args[0])
		if err != nil {
			return err
		}
		logger.Infow("data set summary", d.Summary()...)

		fmt.Printf("title:       %s\n", d.Attrs.Title)
		fmt.Printf("institution: %s\n", d.Attrs.Institution)
		fmt.Printf("catchment:   %s\n", d.Attrs.Catchment)
		fmt.Printf("issue times: %d (%s to %s)\n", len(d.IssueTimes),
			d.IssueTimes[0].UTC().Format(time.RFC3339),
			d.IssueTimes[len(d.IssueTimes)-1].UTC().Format(time.RFC3339))
		fmt.Printf("stations:    %d\n", d.StationCount())
		fmt.Printf("members:     %d\n", d.EnsembleSize())
		fmt.Printf("lead times:  %d (%s)\n", d.LeadTimeCount(), d.LeadTimeStep)

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "VARIABLE\tDIMS\tUNITS\tLONG NAME")
		for _, name := range d.VariableNames() {
			v, err := d.Variable(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", name, v.Def.Kind, v.Def.Units, v.Def.LongName)
		}
		return w.Flush()
	},
}
