package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pearllabs/lolo/internal/domain/ingest"
	"github.com/pearllabs/lolo/internal/infra/config"
	"github.com/pearllabs/lolo/internal/infra/llm"
	"github.com/pearllabs/lolo/internal/infra/vecstore"
	"github.com/pearllabs/lolo/internal/server"
	"github.com/pearllabs/lolo/internal/telemetry"
	"github.com/pearllabs/lolo/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("lolo", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}
	if *showHelp {
		printHelp(out)
		return 0
	}

	switch fs.Arg(0) {
	case "", "serve":
		return serve(out)
	case "ingest":
		if fs.Arg(1) == "" {
			fmt.Fprintln(out, "ingest: missing directory argument") //nolint:errcheck
			return 2
		}
		return runIngest(out, fs.Arg(1))
	default:
		fmt.Fprintf(out, "unknown command %q\n", fs.Arg(0)) //nolint:errcheck
		printHelp(out)
		return 2
	}
}

func serve(out io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(out, err) //nolint:errcheck
		return 1
	}
	log := telemetry.Init(telemetry.Config{
		Level:   cfg.Log.Level,
		Console: cfg.Log.Console,
		File:    cfg.LogFile(),
	})

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		log.Error().Err(err).Msg("server failed")
		return 1
	}
	return 0
}

func runIngest(out io.Writer, dir string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(out, err) //nolint:errcheck
		return 1
	}

	store, err := vecstore.Open(cfg.RAGDBPath())
	if err != nil {
		fmt.Fprintln(out, err) //nolint:errcheck
		return 1
	}
	defer store.Close()

	embedder := llm.NewOllamaClient(cfg.LLM.URL, cfg.LLM.PrimaryModel, cfg.LLM.EmbedModel, cfg.LLM.Timeout())
	svc := ingest.New(store, embedder, nil)

	n, err := svc.IngestDir(context.Background(), dir)
	if err != nil {
		fmt.Fprintln(out, err) //nolint:errcheck
		return 1
	}
	fmt.Fprintf(out, "ingested %d chunks from %s\n", n, dir) //nolint:errcheck
	return 0
}

func printHelp(out io.Writer) {
	helpText := `lolo - local-first AI task router

Usage:
  lolo [options] [command]

Options:
  --version    Show version information
  --help       Show this help message

Commands:
  serve        Start the HTTP server (default)
  ingest DIR   Index .txt and .md files under DIR into the retrieval corpus

Examples:
  lolo --version
  lolo serve
  lolo ingest ~/notes`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
