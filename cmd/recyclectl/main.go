package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"

	"recyclectl/internal/app"
	"recyclectl/internal/logger"
	"recyclectl/internal/model"
	"recyclectl/internal/recycle"
)

type cleanCommand struct {
	DryRun bool `long:"dry-run" description:"Compute and record the run without touching the filesystem"`
	Args   struct {
		Paths []string `positional-arg-name:"path" description:"Explicit paths to recycle; scans configured roots when omitted"`
	} `positional-args:"yes"`
}

func (c *cleanCommand) Execute([]string) error {
	application, err := app.New()
	if err != nil {
		return err
	}

	summary, err := application.Clean(context.Background(), c.Args.Paths, c.DryRun)
	if err != nil {
		return err
	}

	fmt.Printf("batch %s: %d recycled, %d skipped, %d failed, %s reclaimed\n",
		summary.BatchID, summary.SuccessCount, summary.SkippedCount, summary.FailedCount,
		humanize.IBytes(uint64(summary.BytesReclaimed)))
	for _, failure := range summary.Failures {
		fmt.Printf("  failed %s (%s): %s\n", failure.Path, failure.Kind, failure.Message)
	}
	return nil
}

type batchesCommand struct{}

func (c *batchesCommand) Execute([]string) error {
	application, err := app.New()
	if err != nil {
		return err
	}

	batches, err := application.Batches()
	if err != nil {
		return err
	}

	if len(batches) == 0 {
		fmt.Println("nothing to restore")
		return nil
	}

	for _, batch := range batches {
		fmt.Printf("%s  %s  %d entries  %s\n",
			batch.ID, humanize.Time(batch.FirstTime), len(batch.Entries),
			humanize.IBytes(uint64(batch.TotalBytes)))
	}
	return nil
}

type restoreCommand struct {
	DryRun     bool   `long:"dry-run" description:"Compute and record the run without touching the filesystem"`
	OnConflict string `long:"on-conflict" choice:"prompt" choice:"skip" choice:"overwrite" choice:"rename" default:"prompt" description:"What to do when a restore destination already exists"`
	Args       struct {
		BatchID string `positional-arg-name:"batch-id" required:"yes"`
	} `positional-args:"yes"`
}

func (c *restoreCommand) Execute([]string) error {
	application, err := app.New()
	if err != nil {
		return err
	}

	onConflict := fixedConflict(c.OnConflict)
	if c.OnConflict == "prompt" {
		onConflict = promptConflict(os.Stdin, os.Stdout)
	}

	summary, err := application.Restore(c.Args.BatchID, c.DryRun, onConflict, progressPrinter(os.Stdout))
	if err != nil {
		return err
	}

	fmt.Printf("batch %s: %d restored, %d skipped, %d failed, %s restored\n",
		summary.BatchID, summary.SuccessCount, summary.SkippedCount, summary.FailedCount,
		humanize.IBytes(uint64(summary.BytesRestored)))
	for _, failure := range summary.Failures {
		fmt.Printf("  failed %s (%s): %s\n", failure.Path, failure.Kind, failure.Message)
	}
	return nil
}

type maintainCommand struct {
	DryRun bool `long:"dry-run" description:"Compute the selection and byte estimate without deleting"`
}

func (c *maintainCommand) Execute([]string) error {
	application, err := app.New()
	if err != nil {
		return err
	}

	if !application.Config().Retention.Enabled {
		fmt.Println("retention is disabled (RETENTION_ENABLED=false)")
		return nil
	}

	summary, err := application.Maintain(c.DryRun)
	if err != nil {
		return err
	}

	verb := "deleted"
	if summary.DryRun {
		verb = "would delete"
	}
	fmt.Printf("%s %d of %d batches (%s), %d failed, %d batches (%s) remain\n",
		verb, summary.DeletedBatches, summary.BeforeBatches,
		humanize.IBytes(uint64(summary.DeletedBytes)), summary.FailedBatches,
		summary.RemainingBatches, humanize.IBytes(uint64(summary.RemainingBytes)))
	for _, failure := range summary.Failures {
		fmt.Printf("  failed %s (%s): %s\n", failure.Path, failure.Kind, failure.Message)
	}
	return nil
}

type serveCommand struct{}

func (c *serveCommand) Execute([]string) error {
	application, err := app.New()
	if err != nil {
		return err
	}

	return application.Serve()
}

func fixedConflict(action string) recycle.ConflictFunc {
	return func(entry model.BatchEntry, destination string) recycle.ConflictDecision {
		return recycle.ConflictDecision{Action: action}
	}
}

func main() {
	logHandler := logger.NewPrettyHandler(os.Stderr, &slog.HandlerOptions{
		Level: logger.ParseLevel(os.Getenv("LOG_LEVEL")),
	})
	slog.SetDefault(slog.New(logHandler))

	parser := flags.NewParser(nil, flags.Default)
	mustAddCommand(parser, "clean", "Recycle cache directories", "Move cache directories into the recycle area as one restorable batch.", &cleanCommand{})
	mustAddCommand(parser, "batches", "List restorable batches", "Replay the audit log and list every batch that can still be restored.", &batchesCommand{})
	mustAddCommand(parser, "restore", "Restore a recycled batch", "Move a batch's contents back to their original locations.", &restoreCommand{})
	mustAddCommand(parser, "maintain", "Apply the retention policy", "Permanently delete old recycled batches under the configured retention rules.", &maintainCommand{})
	mustAddCommand(parser, "serve", "Run the report server", "Serve restorable batches and audit queries over HTTP for the selection UI.", &serveCommand{})

	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func mustAddCommand(parser *flags.Parser, name string, short string, long string, command interface{}) {
	if _, err := parser.AddCommand(name, short, long, command); err != nil {
		panic(err)
	}
}
