package cli

import (
	"github.com/spf13/cobra"

	"github.com/csiro-hydroinformatics/efts-io/efts"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check files against the STF 2.0 convention",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var failed error
		for _, path := range args {
			if err := efts.ValidateFile(path); err != nil {
				logger.Errorw("invalid file", "file", path, "err", err)
				failed = err
				continue
			}
			logger.Infow("valid file", "file", path)
		}
		return failed
	},
}
