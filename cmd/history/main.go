package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"solana-perp-history/internal/fetch"
	"solana-perp-history/internal/pipeline"
	"solana-perp-history/internal/report"
	"solana-perp-history/internal/solana"
)

func main() {
	wallet := flag.String("wallet", "", "Wallet address to reconstruct (required)")
	rpcURL := flag.String("rpc-url", "", "Solana RPC endpoint (defaults to SOLANA_RPC_URL)")
	fromStr := flag.String("from", "", "Inclusive start date (YYYY-MM-DD)")
	toStr := flag.String("to", "", "Exclusive end date (YYYY-MM-DD)")
	jsonOut := flag.String("json-out", "", "Write the JSON report to this file instead of stdout")
	markdown := flag.Bool("markdown", false, "Print a Markdown summary to stdout")
	concurrency := flag.Int("concurrency", fetch.DefaultConcurrency, "Maximum in-flight RPC requests")
	pageLimit := flag.Int("page-limit", 0, "Signature page size (default 300)")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall run timeout")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	// .env is optional; flags and real env vars win.
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *wallet == "" {
		fmt.Fprintln(os.Stderr, "Error: --wallet is required")
		flag.Usage()
		os.Exit(1)
	}

	endpoint := *rpcURL
	if endpoint == "" {
		endpoint = os.Getenv("SOLANA_RPC_URL")
	}
	if endpoint == "" {
		fmt.Fprintln(os.Stderr, "Error: --rpc-url or SOLANA_RPC_URL is required")
		os.Exit(1)
	}

	from, err := parseDate(*fromStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid --from: %v\n", err)
		os.Exit(1)
	}
	to, err := parseDate(*toStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid --to: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ex := fetch.NewExecutor(
		fetch.WithConcurrency(*concurrency),
		fetch.WithPolicy(fetch.DefaultPolicy(solana.IsRetriable)),
		fetch.WithLogger(log),
	)

	rep, err := pipeline.Run(ctx, *wallet, pipeline.Options{
		RPC:       solana.NewHTTPClient(endpoint),
		Executor:  ex,
		From:      from,
		To:        to,
		PageLimit: *pageLimit,
		Logger:    log,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidInput) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	encoded, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding report: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut != "" {
		if err := os.WriteFile(*jsonOut, append(encoded, '\n'), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *jsonOut, err)
			os.Exit(1)
		}
		log.WithField("path", *jsonOut).Info("report written")
	} else if !*markdown {
		fmt.Println(string(encoded))
	}

	if *markdown {
		fmt.Print(report.RenderMarkdown(rep))
	}
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
