// Package cli implements the efts command line tool.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/csiro-hydroinformatics/efts-io/internal/config"
)

var (
	cfgFile  string
	logLevel string

	cnf    *config.Config
	logger *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:           "efts",
	Short:         "Work with ensemble forecast time series netCDF files",
	Long:          "efts reads, creates, validates and exports netCDF files holding ensemble forecast time series in the STF 2.0 convention.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cnf, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cnf.LogLevel = logLevel
		}
		logger, err = newLogger(cnf.LogLevel)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.AddCommand(infoCmd, validateCmd, createCmd, exportCmd, statsCmd)
}

func newLogger(level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// Execute runs the tool and returns its exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Errorw("command failed", "err", err)
		} else {
			rootCmd.PrintErrln("Error:", err)
		}
		return 1
	}
	return 0
}
