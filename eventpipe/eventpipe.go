package eventpipe

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"

	"badger/controller"
	"badger/tag"
)

// Config holds configuration for the event pipe.
type Config struct {
	Path string `yaml:"path"` // Path to named pipe (e.g., "/tmp/badger-events")
}

// CommandHandler is called for each command read from the pipe.
type CommandHandler func(controller.Command)

// EventPipe listens for kiosk commands on a named pipe.
type EventPipe struct {
	path    string
	handler CommandHandler
	ctx     context.Context
	cancel  context.CancelFunc
	log     *slog.Logger
}

// New creates a new EventPipe. Returns nil if path is empty.
func New(cfg Config, handler CommandHandler) (*EventPipe, error) {
	if cfg.Path == "" {
		return nil, nil
	}

	// Remove a stale pipe from a previous run
	os.Remove(cfg.Path)

	if err := syscall.Mkfifo(cfg.Path, 0666); err != nil {
		return nil, fmt.Errorf("create named pipe %s: %w", cfg.Path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &EventPipe{
		path:    cfg.Path,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		log:     slog.Default().With("component", "eventpipe"),
	}, nil
}

// Start begins listening for commands on the pipe.
// This should be called as a goroutine.
func (ep *EventPipe) Start() {
	ep.log.Info("listening", "path", ep.path)

	for {
		if ep.ctx.Err() != nil {
			return
		}

		// Blocks until a writer connects
		file, err := os.OpenFile(ep.path, os.O_RDONLY, 0)
		if err != nil {
			if ep.ctx.Err() != nil {
				return
			}
			ep.log.Error("open", "error", err)
			return
		}

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			if ep.ctx.Err() != nil {
				file.Close()
				return
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			cmd, err := ParseLine(line)
			if err != nil {
				ep.log.Warn("parse", "line", line, "error", err)
				continue
			}
			if ep.handler != nil {
				ep.handler(cmd)
			}
		}

		file.Close()
		// Writer closed the pipe, loop back to wait for next writer
	}
}

// Close stops the listener and removes the pipe.
func (ep *EventPipe) Close() error {
	ep.cancel()
	// Wake a reader blocked in open; fails harmlessly if nobody is waiting.
	if w, err := os.OpenFile(ep.path, os.O_WRONLY|syscall.O_NONBLOCK, 0); err == nil {
		w.Close()
	}
	return os.Remove(ep.path)
}

// ParseLine parses one operator command line into a Command.
// Command format:
//
//	tag <hex> [button]          - Simulated tap (button defaults to 0, print)
//	rfid <hex> [button]         - Alias for tag
//	print                       - Print the selected page
//	next | prev                 - Move between pages
//	rotary <+1|-1|press>        - Encoder turn or press
//	save <hex> <name>|<comment> - Write a record
//	general <text>              - Set the general label text
//	reset                       - Blank every page
func ParseLine(line string) (controller.Command, error) {
	line = strings.TrimSpace(line)
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return controller.Command{}, fmt.Errorf("empty command")
	}

	switch cmd := strings.ToLower(parts[0]); cmd {
	case "tag", "rfid":
		if len(parts) < 2 {
			return controller.Command{}, fmt.Errorf("%s requires a tag", cmd)
		}
		t, err := tag.Parse(parts[1])
		if err != nil || t.IsZero() {
			return controller.Command{}, fmt.Errorf("invalid tag: %s", parts[1])
		}
		button := tag.Print
		if len(parts) > 2 {
			n, err := strconv.Atoi(parts[2])
			if err != nil {
				return controller.Command{}, fmt.Errorf("invalid button: %s", parts[2])
			}
			button = tag.Button(n)
		}
		return controller.Command{Type: controller.CmdTap, Tag: t, Button: button}, nil

	case "print":
		return controller.Command{Type: controller.CmdPrint}, nil

	case "next":
		return controller.Command{Type: controller.CmdNextPage}, nil

	case "prev":
		return controller.Command{Type: controller.CmdPrevPage}, nil

	case "rotary":
		if len(parts) < 2 {
			return controller.Command{}, fmt.Errorf("rotary requires delta or 'press'")
		}
		if strings.ToLower(parts[1]) == "press" {
			return controller.Command{Type: controller.CmdPrint}, nil
		}
		delta, err := strconv.Atoi(parts[1])
		if err != nil || delta == 0 {
			return controller.Command{}, fmt.Errorf("invalid rotary delta: %s", parts[1])
		}
		if delta > 0 {
			return controller.Command{Type: controller.CmdNextPage}, nil
		}
		return controller.Command{Type: controller.CmdPrevPage}, nil

	case "save":
		if len(parts) < 3 {
			return controller.Command{}, fmt.Errorf("save requires <tag> <name>|<comment>")
		}
		t, err := tag.Parse(parts[1])
		if err != nil || t.IsZero() {
			return controller.Command{}, fmt.Errorf("invalid tag: %s", parts[1])
		}
		rest := strings.TrimSpace(strings.SplitN(line, parts[1], 2)[1])
		name, comment, _ := strings.Cut(rest, "|")
		return controller.Command{
			Type:    controller.CmdSave,
			Tag:     t,
			Name:    strings.TrimSpace(name),
			Comment: strings.TrimSpace(comment),
		}, nil

	case "general":
		text := strings.TrimSpace(line[len(parts[0]):])
		return controller.Command{Type: controller.CmdSetGeneral, Text: text}, nil

	case "reset":
		return controller.Command{Type: controller.CmdResetAll}, nil

	default:
		return controller.Command{}, fmt.Errorf("unknown command: %s", cmd)
	}
}
