package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rojanmagar2001/reeltally/internal/app"
	"github.com/rojanmagar2001/reeltally/internal/model"
)

const usage = `usage: reeltally <command> [flags]

commands:
  serve    run the message server (add -source to watch a feed as well)
  watch    observe a feed page and track the reels on it
  export   write the tracked reels, sorted by views, to a file
  clear    delete all tracked reels
  sort     reorder the reels of a saved page by views (-page)

Run "reeltally <command> -h" for flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.String("config", "", "YAML config file")

	// The config file supplies the flag defaults, so it is loaded before
	// the remaining flags are parsed.
	cfg, err := app.Load(findConfig(args))
	if err != nil {
		return err
	}
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	log, err := app.NewLogger(stderr, cfg)
	if err != nil {
		return err
	}

	switch cmd {
	case "serve":
		return app.Serve(ctx, cfg, stdout, log)
	case "watch":
		return app.Watch(ctx, cfg, stdout, log)
	case "export":
		return app.Do(ctx, cfg, model.ActionDownloadData, stdout, log)
	case "clear":
		return app.Do(ctx, cfg, model.ActionClearData, stdout, log)
	case "sort":
		return app.Do(ctx, cfg, model.ActionSortReels, stdout, log)
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// findConfig returns the value of -config/--config from args, if any.
func findConfig(args []string) string {
	for i, a := range args {
		name, val, hasVal := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasVal {
			return val
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
