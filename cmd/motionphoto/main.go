// Package main provides the motionphoto command, which converts between
// still+video live photos and single-file motion photos.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/maauso/motionphoto/internal/bootstrap"
	"github.com/maauso/motionphoto/internal/config"
	"github.com/maauso/motionphoto/internal/convert"
	"github.com/maauso/motionphoto/internal/runid"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// options are the per-invocation flag values not carried by config.Config.
type options struct {
	upload bool
	json   bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}
	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stdout)
		return exitOK
	}

	cmd, ok := lookupCommand(args[0])
	if !ok {
		fmt.Fprintf(stderr, "error: unknown command %q\n\n", args[0])
		printUsage(stderr)
		return exitUsage
	}

	cfg, err := config.LoadContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}

	var opts options
	fs := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: motionphoto %s [flags] %s\n\n%s\n\nflags:\n", cmd.name, cmd.args, cmd.summary)
		fs.PrintDefaults()
	}
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")
	fs.StringVar(&cfg.FFmpegPath, "ffmpeg", cfg.FFmpegPath, "path to the ffmpeg binary")
	fs.StringVar(&cfg.ImageExt, "image-ext", cfg.ImageExt, "extension of extracted still images")
	fs.StringVar(&cfg.VideoExt, "video-ext", cfg.VideoExt, "extension of extracted videos")
	if cmd.upload {
		fs.BoolVar(&opts.upload, "upload", false, "upload outputs to the configured S3 bucket")
	}
	if cmd.name == "inspect" {
		fs.BoolVar(&opts.json, "json", false, "print the report as JSON")
	}

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() != cmd.nargs {
		fmt.Fprintf(stderr, "error: %s expects %d arguments, got %d\n", cmd.name, cmd.nargs, fs.NArg())
		fs.Usage()
		return exitUsage
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	logger := cfg.NewLoggerTo(stderr).With(
		slog.String("run_id", runid.Generate()),
		slog.String("command", cmd.name),
	)
	logger.Debug("starting", slog.String("config", cfg.String()))

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: initialize dependencies: %v\n", err)
		return exitFailure
	}

	if err := cmd.run(ctx, deps.Service, fs.Args(), opts, stdout); err != nil {
		logger.Debug("command failed", slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "error: %v\n", err)
		if convert.IsUsageError(err) {
			return exitUsage
		}
		return exitFailure
	}
	return exitOK
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: motionphoto <command> [flags] <args>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.args)
		fmt.Fprintf(w, "           %s\n", c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "aliases:")
	for _, a := range aliases {
		fmt.Fprintf(w, "  %-12s = %s\n", a.alias, a.name)
	}
}
