// Command triagectl is an operator tool for a running trustgate service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/trustgate/internal/client"
	"github.com/okian/trustgate/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	app := &cli.App{
		Name:   "triagectl",
		Usage:  "submit, rate and inspect content on a trustgate service",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:9080", Usage: "service base URL", EnvVars: []string{"TRIAGECTL_URL"}},
			&cli.StringFlag{Name: "ingest-secret", Usage: "X-Ingest-Secret for submissions", EnvVars: []string{"TRIAGE_INGEST_SECRET"}},
			&cli.StringFlag{Name: "curator-secret", Usage: "X-Curator-Secret for curator commands", EnvVars: []string{"TRIAGE_CURATOR_SECRET"}},
			&cli.StringFlag{Name: "rater-id", Usage: "stable rater identity sent as X-Rater-Id"},
			&cli.StringFlag{Name: "rater-proxy-secret", Usage: "X-Rater-Proxy-Secret that vouches for --rater-id", EnvVars: []string{"TRIAGE_RATER_PROXY_SECRET"}},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "per-request timeout"},
			&cli.UintFlag{Name: "retries", Value: 4, Usage: "batch submission retries"},
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "debug, info, warn or error"},
		},
		Before: func(cctx *cli.Context) error {
			if err := logger.Init(logger.WithOutput(cctx.App.ErrWriter)); err != nil {
				return err
			}
			return logger.SetLevelString(cctx.String("log-level"))
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:      "submit",
			Usage:     "submit a JSON array of items (or {\"events\": [...]}) from a file or stdin",
			ArgsUsage: "[file]",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "batch-size", Value: 100, Usage: "items per request"},
			},
			Action: runSubmit,
		},
		{
			Name:  "load",
			Usage: "generate synthetic items and submit them concurrently",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "items", Value: 1000, Usage: "items to generate"},
				&cli.IntFlag{Name: "batch-size", Value: 50, Usage: "items per request"},
				&cli.IntFlag{Name: "workers", Value: runtime.NumCPU(), Usage: "concurrent requests"},
				&cli.Float64Flag{Name: "dup-rate", Value: 0.1, Usage: "share of cosmetic duplicates"},
			},
			Action: runLoad,
		},
		{
			Name:      "rate",
			Usage:     "rate an entry from 1 to 5",
			ArgsUsage: "<entry-id> <rating>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "feedback", Usage: "optional feedback text"},
				&cli.BoolFlag{Name: "update", Usage: "replace your latest rating instead"},
				&cli.BoolFlag{Name: "delete", Usage: "remove your ratings on the entry"},
			},
			Action: runRate,
		},
		{
			Name:      "entry",
			Usage:     "show an entry and its score history",
			ArgsUsage: "<entry-id>",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "history", Usage: "include score history"},
			},
			Action: runEntry,
		},
		{
			Name:  "reviews",
			Usage: "list review items",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "status", Value: "pending", Usage: "pending, approved or rejected"},
			},
			Action: runReviews,
		},
		{
			Name:      "resolve",
			Usage:     "approve or reject a review",
			ArgsUsage: "<review-id> <approve|reject>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "curator", Required: true, Usage: "curator name for the audit trail"},
			},
			Action: runResolve,
		},
	}
	return app
}

func newClient(cctx *cli.Context) (*client.Client, error) {
	return client.New(cctx.String("url"),
		client.WithTimeout(cctx.Duration("timeout")),
		client.WithIngestSecret(cctx.String("ingest-secret")),
		client.WithCuratorSecret(cctx.String("curator-secret")),
		client.WithRaterID(cctx.String("rater-id")),
		client.WithRaterProxySecret(cctx.String("rater-proxy-secret")),
		client.WithRetry(0, uint64(cctx.Uint("retries"))),
	)
}

func printJSON(cctx *cli.Context, v any) error {
	enc := json.NewEncoder(cctx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runSubmit(cctx *cli.Context) error {
	c, err := newClient(cctx)
	if err != nil {
		return err
	}
	in := io.Reader(os.Stdin)
	if path := cctx.Args().First(); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	items, err := readItems(in)
	if err != nil {
		return err
	}

	size := max(cctx.Int("batch-size"), 1)
	total := client.IngestReport{Success: true}
	for i := 0; i < len(items); i += size {
		rep, err := c.Ingest(cctx.Context, items[i:min(i+size, len(items))])
		if err != nil {
			return fmt.Errorf("batch starting at item %d: %w", i, err)
		}
		total.Results = append(total.Results, rep.Results...)
		total.Stats.Total += rep.Stats.Total
		total.Stats.AutoApproved += rep.Stats.AutoApproved
		total.Stats.ReviewQuick += rep.Stats.ReviewQuick
		total.Stats.ReviewDeep += rep.Stats.ReviewDeep
		total.Stats.Duplicates += rep.Stats.Duplicates
		total.Stats.Failed += rep.Stats.Failed
		total.Stats.ProcessingTimeMs += rep.Stats.ProcessingTimeMs
	}
	return printJSON(cctx, total)
}

// readItems accepts a bare array or the /ingest request body.
func readItems(r io.Reader) ([]client.Item, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var items []client.Item
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}
	var body struct {
		Events []client.Item `json:"events"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("input is neither an item array nor {\"events\": [...]}: %w", err)
	}
	return body.Events, nil
}

func runLoad(cctx *cli.Context) error {
	c, err := newClient(cctx)
	if err != nil {
		return err
	}
	if err := c.Healthy(cctx.Context); err != nil {
		return fmt.Errorf("service not healthy: %w", err)
	}
	stats, err := client.RunLoad(cctx.Context, c, client.LoadConfig{
		Items:     cctx.Int("items"),
		BatchSize: cctx.Int("batch-size"),
		Workers:   cctx.Int("workers"),
		DupRate:   cctx.Float64("dup-rate"),
		Progress:  5 * time.Second,
	})
	if err != nil {
		return err
	}
	return printJSON(cctx, map[string]any{
		"batches":        stats.Batches,
		"failedBatches":  stats.FailedBatches,
		"items":          stats.Items,
		"duration":       stats.Duration.String(),
		"itemsPerSecond": stats.ItemsPerSecond(),
	})
}

func runRate(cctx *cli.Context) error {
	entryID := cctx.Args().Get(0)
	if entryID == "" {
		return fmt.Errorf("need an entry id")
	}
	c, err := newClient(cctx)
	if err != nil {
		return err
	}
	if cctx.Bool("delete") {
		s, err := c.DeleteRatings(cctx.Context, entryID)
		if err != nil {
			return err
		}
		return printJSON(cctx, s)
	}

	var rating int
	if _, err := fmt.Sscan(cctx.Args().Get(1), &rating); err != nil {
		return fmt.Errorf("need a rating from 1 to 5")
	}
	write := c.Rate
	if cctx.Bool("update") {
		write = c.UpdateRating
	}
	s, err := write(cctx.Context, entryID, rating, cctx.String("feedback"))
	if err != nil {
		return err
	}
	return printJSON(cctx, s)
}

func runEntry(cctx *cli.Context) error {
	id := cctx.Args().First()
	if id == "" {
		return fmt.Errorf("need an entry id")
	}
	c, err := newClient(cctx)
	if err != nil {
		return err
	}
	e, err := c.Entry(cctx.Context, id)
	if err != nil {
		return err
	}
	if !cctx.Bool("history") {
		return printJSON(cctx, e)
	}
	h, err := c.History(cctx.Context, id)
	if err != nil {
		return err
	}
	return printJSON(cctx, map[string]any{"entry": e, "history": h})
}

func runReviews(cctx *cli.Context) error {
	c, err := newClient(cctx)
	if err != nil {
		return err
	}
	r, err := c.Reviews(cctx.Context, cctx.String("status"))
	if err != nil {
		return err
	}
	return printJSON(cctx, r)
}

func runResolve(cctx *cli.Context) error {
	id, decision := cctx.Args().Get(0), cctx.Args().Get(1)
	if id == "" || decision == "" {
		return fmt.Errorf("need a review id and a decision")
	}
	c, err := newClient(cctx)
	if err != nil {
		return err
	}
	r, err := c.Resolve(cctx.Context, id, decision, cctx.String("curator"))
	if err != nil {
		return err
	}
	return printJSON(cctx, r)
}
