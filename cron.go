package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// WatchScheduler re-runs batch analysis of a directory on a cron
// schedule, the way a long-lived indexing service would keep a code
// intelligence graph up to date without a human re-invoking the CLI.
type WatchScheduler struct {
	cron *cron.Cron
	run  func(ctx context.Context, runID string) error
}

// NewWatchScheduler builds a scheduler that calls run once per
// schedule tick, each time with a freshly generated run ID for log
// correlation.
func NewWatchScheduler(schedule string, logger *logrus.Logger, run func(ctx context.Context, runID string) error) (*WatchScheduler, error) {
	c := cron.New()
	w := &WatchScheduler{cron: c, run: run}
	_, err := c.AddFunc(schedule, func() {
		runID := uuid.NewString()
		logger.WithField("run_id", runID).Info("starting scheduled re-index")
		if err := run(context.Background(), runID); err != nil {
			logger.WithField("run_id", runID).WithError(err).Error("scheduled re-index failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", schedule, err)
	}
	return w, nil
}

// Start begins running the schedule in the background. Call Stop to
// shut it down cleanly.
func (w *WatchScheduler) Start() { w.cron.Start() }

// Stop waits for any in-flight tick to finish, then halts the
// scheduler.
func (w *WatchScheduler) Stop() { <-w.cron.Stop().Done() }

// discoverTextprotoFiles walks dir for *.textproto / *.textpb files to
// analyze, used by -watch-dir mode to decide what a given tick should
// cover.
func discoverTextprotoFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".textproto") || strings.HasSuffix(path, ".textpb") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return files, nil
}
