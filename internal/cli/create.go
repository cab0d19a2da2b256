package cli

import (
	"github.com/spf13/cobra"

	"github.com/csiro-hydroinformatics/efts-io/efts"
	"github.com/csiro-hydroinformatics/efts-io/internal/config"
)

var createSchema string

var createCmd = &cobra.Command{
	Use:   "create --schema <schema.yaml> <file>",
	Short: "Create an empty EFTS netCDF file from a YAML schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.LoadSchema(createSchema)
		if err != nil {
			return err
		}
		d, err := s.Dataset()
		if err != nil {
			return err
		}
		if err := efts.Write(args[0], d); err != nil {
			return err
		}
		logger.Infow("created", append([]any{"file", args[0]}, d.Summary()...)...)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createSchema, "schema", "", "path to the YAML schema of the data set")
	createCmd.MarkFlagRequired("schema")
}
