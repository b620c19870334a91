// Package app wires configuration, the audit log, and the recycle subsystem
// together, and guards every mutating top-level operation with the process
// lock for the state directory.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recyclectl/internal/audit"
	"recyclectl/internal/config"
	"recyclectl/internal/handler"
	"recyclectl/internal/lock"
	"recyclectl/internal/model"
	"recyclectl/internal/recycle"
	"recyclectl/internal/router"
	"recyclectl/internal/scan"
	"recyclectl/internal/storage"
)

type App struct {
	cfg *config.Config
	log *audit.Log
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewWithConfig(cfg)
}

func NewWithConfig(cfg *config.Config) (*App, error) {
	log, err := audit.New(cfg.AuditLogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit log: %w", err)
	}

	return &App{cfg: cfg, log: log}, nil
}

func (a *App) Config() *config.Config {
	return a.cfg
}

// Clean soft-deletes the given paths, or every discovered cache directory
// when no paths are given. The lock is held for the whole run; failing to
// acquire it is fatal before anything is logged.
func (a *App) Clean(ctx context.Context, paths []string, dryRun bool) (model.CleanupSummary, error) {
	held, err := lock.Acquire(a.cfg.StateRoot, "cleanup")
	if err != nil {
		return model.CleanupSummary{}, err
	}
	defer held.Release()

	targets, err := a.resolveTargets(ctx, paths)
	if err != nil {
		return model.CleanupSummary{}, err
	}

	allowed, err := storage.NewRootSet(a.cfg.ScanRoots...)
	if err != nil {
		return model.CleanupSummary{}, err
	}

	store := recycle.NewStore(a.log, a.cfg.RecycleRoot, allowed)
	summary, err := store.Clean(targets, recycle.CleanOptions{
		DryRun: dryRun,
		Scope:  model.ScopeProfile,
	})
	if err != nil {
		return summary, err
	}

	slog.Info("cleanup finished",
		"batch", summary.BatchID,
		"success", summary.SuccessCount,
		"skipped", summary.SkippedCount,
		"failed", summary.FailedCount,
		"bytes", summary.BytesReclaimed,
		"dry_run", dryRun,
	)
	return summary, nil
}

// Batches lists what can still be restored. Read-only, so no lock is taken.
func (a *App) Batches() ([]model.Batch, error) {
	return recycle.RestorableBatches(a.log)
}

// Restore replays one batch under the lock.
func (a *App) Restore(batchID string, dryRun bool, onConflict recycle.ConflictFunc, onProgress recycle.ProgressFunc) (model.RestoreSummary, error) {
	held, err := lock.Acquire(a.cfg.StateRoot, "restore")
	if err != nil {
		return model.RestoreSummary{}, err
	}
	defer held.Release()

	batch, err := recycle.FindBatch(a.log, batchID)
	if err != nil {
		return model.RestoreSummary{}, err
	}

	profileRoots, err := storage.NewRootSet(a.cfg.AllowedRestoreRoots()...)
	if err != nil {
		return model.RestoreSummary{}, err
	}

	governanceRoots, err := storage.NewRootSet(a.cfg.GovernanceRoots...)
	if err != nil {
		return model.RestoreSummary{}, err
	}

	restorer := recycle.NewRestorer(a.log, a.cfg.RecycleRoot)
	summary, err := restorer.Restore(batch, recycle.RestoreOptions{
		DryRun:          dryRun,
		ProfileRoots:    profileRoots,
		GovernanceRoots: governanceRoots,
		OnConflict:      onConflict,
		OnProgress:      onProgress,
	})
	if err != nil {
		return summary, err
	}

	slog.Info("restore finished",
		"batch", summary.BatchID,
		"success", summary.SuccessCount,
		"skipped", summary.SkippedCount,
		"failed", summary.FailedCount,
		"bytes", summary.BytesRestored,
		"dry_run", dryRun,
	)
	return summary, nil
}

// Maintain runs the retention policy under the lock.
func (a *App) Maintain(dryRun bool) (model.MaintainSummary, error) {
	held, err := lock.Acquire(a.cfg.StateRoot, "recycle_maintain")
	if err != nil {
		return model.MaintainSummary{}, err
	}
	defer held.Release()

	maintainer := recycle.NewMaintainer(a.log, a.cfg.RecycleRoot)
	summary, err := maintainer.Maintain(a.cfg.Retention, dryRun, time.Now())
	if err != nil {
		return summary, err
	}

	slog.Info("retention finished",
		"deleted_batches", summary.DeletedBatches,
		"deleted_bytes", summary.DeletedBytes,
		"failed_batches", summary.FailedBatches,
		"remaining_batches", summary.RemainingBatches,
		"dry_run", dryRun,
	)
	return summary, nil
}

// Serve runs the read-only report server until interrupted. It takes no lock:
// it never mutates the log or the recycle root.
func (a *App) Serve() error {
	reportHandler := handler.NewReportHandler(a.log)

	server := &http.Server{
		Addr:              a.cfg.ServerBind + ":" + a.cfg.ServerPort,
		Handler:           router.New(a.cfg, reportHandler),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("report server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown report server: %w", err)
	}

	return <-errCh
}

func (a *App) resolveTargets(ctx context.Context, paths []string) ([]model.Target, error) {
	if len(paths) == 0 {
		scanner := scan.New(a.cfg.ScanRoots, a.cfg.CacheDirNames, a.cfg.ScanMaxDepth, a.cfg.ScanTimeout)
		return scanner.Targets(ctx)
	}

	targets := make([]model.Target, 0, len(paths))
	for _, path := range paths {
		target, err := scan.Stat(path)
		if err != nil {
			// Missing explicit paths still get a target so the run records a
			// skipped_missing_source outcome instead of dropping it silently.
			targets = append(targets, model.Target{Path: path, Scope: model.ScopeProfile})
			continue
		}
		targets = append(targets, target)
	}

	return targets, nil
}
