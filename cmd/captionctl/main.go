// Command captionctl resolves the caption of a single post and prints it.
//
//	captionctl [-strategies static,composite] [-json] <url>
//
// Exit status is 0 when a caption was found, 2 when none was found and 1 on
// any other error.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"clippilot/internal/config"
	"clippilot/internal/domain"
	"clippilot/internal/pkg/logger"
	"clippilot/internal/service/pipeline"
)

const (
	exitFound    = 0
	exitError    = 1
	exitNotFound = 2
)

func main() {
	asJSON := flag.Bool("json", false, "Print the result as JSON")

	// Load configuration; parses -strategies and -log-level as well
	cfg := config.Load()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: captionctl [flags] <url>")
		flag.PrintDefaults()
		os.Exit(exitError)
	}

	if err := cfg.ValidateForAPI(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(exitError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := run(ctx, cfg, flag.Arg(0), *asJSON, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run resolves rawURL and writes the caption to stdout. Logs go to stderr.
func run(ctx context.Context, cfg *config.Config, rawURL string, asJSON bool, stdout, stderr io.Writer) int {
	log := logger.NewWithWriter(stderr, cfg.LogLevel)

	captions, err := pipeline.Build(cfg, log, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer captions.Close()

	result, err := captions.Resolver.ExtractCaption(ctx, rawURL)
	switch {
	case err == nil && result.Found():
	case err == nil || domain.IsNotFound(err):
		fmt.Fprintln(stderr, domain.NotFoundMessage)
		return exitNotFound
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		return exitFound
	}

	fmt.Fprintln(stdout, result.Caption)
	return exitFound
}
