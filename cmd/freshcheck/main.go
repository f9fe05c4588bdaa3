// Package main is freshcheck, a headless smoke-test CLI for the engine:
// it opens a buffer, opens a split onto it, renders one frame, and
// optionally writes out a session file, without needing a real terminal.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pm100/fresh/internal/app"
	"github.com/pm100/fresh/internal/engine/buffer"
	"github.com/pm100/fresh/internal/engine/engine"
	"github.com/pm100/fresh/internal/engine/render"
	"github.com/pm100/fresh/internal/engine/session"
)

func main() {
	os.Exit(run())
}

type options struct {
	File     string
	Rows     int
	Cols     int
	Wrap     bool
	SavePath string
	LogLevel string
}

func run() int {
	opts := parseFlags()

	logger := app.NewLogger(app.LoggerConfig{
		Level:  app.ParseLogLevel(opts.LogLevel),
		Output: os.Stderr,
		Prefix: "freshcheck",
	})

	eng := engine.New(engine.WithLogger(logger))

	bufID, err := openBuffer(eng, opts.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open buffer: %v\n", err)
		return 1
	}

	splitID, err := eng.CreateSplit(bufID, uint32(opts.Rows), uint32(opts.Cols), opts.Wrap)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create split: %v\n", err)
		return 1
	}

	drainEvents(eng, logger)

	if err := renderFrame(eng, splitID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to render: %v\n", err)
		return 1
	}

	if opts.SavePath != "" {
		if err := saveSession(eng, bufID, splitID, opts.File, opts.SavePath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to save session: %v\n", err)
			return 1
		}
		logger.Info("freshcheck: wrote session to %s", opts.SavePath)
	}

	return 0
}

func openBuffer(eng *engine.Engine, path string) (engine.BufferID, error) {
	if path == "" {
		return eng.OpenString("", buffer.KindVirtual, ""), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return eng.OpenReader(f, path)
}

// drainEvents empties the engine's event channel without blocking, logging
// each notification — the same role a terminal UI's main loop plays, shrunk
// to a one-shot drain since freshcheck issues no further commands after
// startup.
func drainEvents(eng *engine.Engine, logger *app.Logger) {
	for {
		select {
		case ev := <-eng.Events():
			logger.Debug("event: %s buffer=%d split=%d", ev.Kind, ev.BufferID, ev.SplitID)
		default:
			return
		}
	}
}

func renderFrame(eng *engine.Engine, splitID engine.SplitID) error {
	grid, err := eng.Render(splitID, noOverlays, nil)
	if err != nil {
		return err
	}

	for row := 0; row < grid.Rows; row++ {
		line := make([]rune, 0, grid.Cols)
		for col := 0; col < grid.Cols; col++ {
			c := grid.Cells[row][col]
			if c.IsContinuation() {
				continue
			}
			line = append(line, c.Rune)
		}
		fmt.Println(string(line))
	}
	return nil
}

func noOverlays(_, _ buffer.ByteOffset) []render.Overlay { return nil }

func saveSession(eng *engine.Engine, bufID engine.BufferID, splitID engine.SplitID, path, savePath string) error {
	vs, _, err := eng.SplitView(splitID)
	if err != nil {
		return err
	}

	kind := session.BufferKindVirtual
	if path != "" {
		kind = session.BufferKindFile
	}

	var cursors []session.CursorState
	for _, s := range vs.Cursors.All() {
		cursors = append(cursors, session.CursorState{
			Anchor:  int64(s.Anchor),
			Head:    int64(s.Head),
			Primary: s.Primary,
		})
	}

	state := &session.State{
		Buffers: []session.BufferState{{Path: path, Kind: kind}},
		Splits: []session.SplitState{{
			BufferIndex: 0,
			TopByte:     int64(vs.Viewport.TopByte),
			LeftColumn:  vs.Viewport.LeftColumn,
			Rows:        vs.Viewport.Rows,
			Cols:        vs.Viewport.Cols,
			Wrap:        vs.Viewport.Wrap,
			Cursors:     cursors,
		}},
		ActiveSplit: 0,
	}
	_ = bufID
	return session.SaveToFile(savePath, state)
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.File, "file", "", "Path to a file to open (empty for a scratch buffer)")
	flag.IntVar(&opts.Rows, "rows", 24, "Split height in rows")
	flag.IntVar(&opts.Cols, "cols", 80, "Split width in columns")
	flag.BoolVar(&opts.Wrap, "wrap", false, "Wrap long lines instead of clipping")
	flag.StringVar(&opts.SavePath, "save", "", "Path to write a session snapshot to (empty to skip)")
	flag.StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "freshcheck - headless smoke test for the engine\n\n")
		fmt.Fprintf(os.Stderr, "Usage: freshcheck [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	return opts
}
