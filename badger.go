package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var myBuild string

var (
	cfgFile string
	cfg     *Config
)

var rootCmd = &cobra.Command{
	Use:   "badger",
	Short: "badger - RFID badge and label kiosk",
	Long: `badger watches an RFID reader and prints name badges, storage passes and
general labels for the tags it sees. Unknown tags are enrolled on the edit page.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cfgFile)
		if err != nil {
			return err
		}
		setupLogging(os.Stderr, cfg.logLevel(), false)
		return nil
	},
	RunE: runKiosk,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the kiosk (default)",
	RunE:  runKiosk,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "cfg", "badger.cfg", "Config file")
	rootCmd.AddCommand(runCmd, consoleCmd, tagCmd, labelCmd)
}

func setupLogging(w io.Writer, level slog.Level, noColor bool) {
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.StampMilli,
			NoColor:    noColor,
		}),
	))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
