package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"badger/console"
	"badger/eventpipe"
)

var consoleLog string

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run the kiosk with an operator console in the terminal",
	Long: `Run the kiosk as "run" does, with a terminal view of the pages. Commands
typed at the prompt use the event pipe syntax. Logs go to a file while the
console owns the terminal.`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func init() {
	consoleCmd.Flags().StringVar(&consoleLog, "log", "badger.log", "Log file")
}

func runConsole(cmd *cobra.Command, args []string) error {
	if cfg.ClientID == "" {
		return errors.New("client_id missing in config file")
	}

	f, err := os.OpenFile(consoleLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	setupLogging(f, cfg.logLevel(), true)
	slog.Info("badger console starting", "build", myBuild, "client_id", cfg.ClientID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app := newApp(ctx, cfg)
	defer app.shutdown()

	model := console.New(func(line string) error {
		c, err := eventpipe.ParseLine(line)
		if err != nil {
			return err
		}
		app.submit(c)
		return nil
	})
	// Nothing else touches the book until the loop starts.
	model.Update(console.SnapshotMsg(console.Take(app.book, "")))

	app.ui = tea.NewProgram(model, tea.WithAltScreen())

	loop := make(chan error, 1)
	go func() {
		loop <- app.run(ctx)
		app.ui.Quit()
	}()

	if _, err := app.ui.Run(); err != nil {
		cancel()
		<-loop
		return fmt.Errorf("console: %w", err)
	}
	cancel()
	return <-loop
}
