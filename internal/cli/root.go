// Package cli holds the zpack command tree.
package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/deflatekit/pack/internal/config"
)

var (
	cfgFile string
	envFile string
	debug   bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "zpack",
	Short:         "Compress and decompress files as raw DEFLATE, zlib or gzip",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile, envFile)
		if err != nil {
			return err
		}
		cfg = c

		level, err := logrus.ParseLevel(c.Runtime.LogLevel)
		if err != nil {
			level = logrus.InfoLevel
		}
		if debug {
			level = logrus.DebugLevel
		}
		logrus.SetOutput(os.Stderr)
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logrus.SetLevel(level)
		logrus.Debugf("config: level=%d container=%s strategy=%s concurrency=%d",
			c.Level(), c.Container(), c.Compress.Strategy, c.Runtime.Concurrency)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Path to a .env file, ignored if missing")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.Error(err)
		stop()
		os.Exit(1)
	}
}
