// Package cleanup removes uploaded files that no project references any more, such as
// leftovers from an upload whose database write failed after the file was stored.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"pixelforge/internal/storage"
)

// FilenameSource lists every stored filename that a project still references.
type FilenameSource interface {
	DocumentFilenames(ctx context.Context) ([]string, error)
}

// FileStore is the part of the upload directory the sweeper needs.
type FileStore interface {
	List() ([]storage.FileInfo, error)
	Remove(name string) error
}

// Sweeper deletes unreferenced files older than the grace period. The grace period covers
// uploads that are on disk but not yet recorded on their project.
type Sweeper struct {
	projects FilenameSource
	files    FileStore
	logger   *slog.Logger
	grace    time.Duration
	now      func() time.Time
}

func NewSweeper(projects FilenameSource, files FileStore, logger *slog.Logger, grace time.Duration) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if grace < 0 {
		grace = 0
	}
	return &Sweeper{
		projects: projects,
		files:    files,
		logger:   logger,
		grace:    grace,
		now:      time.Now,
	}
}

// Start runs a sweep immediately and then every interval until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("orphan sweeper started",
		slog.Duration("interval", interval),
		slog.Duration("grace", s.grace),
	)

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("orphan sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("orphan sweep failed", slog.String("error", err.Error()))
	}
}

// RunOnce performs a single sweep and returns how many files were removed.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	// Files are listed before references so that a file recorded mid-sweep is seen as referenced.
	files, err := s.files.List()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, nil
	}

	names, err := s.projects.DocumentFilenames(ctx)
	if err != nil {
		return 0, err
	}
	referenced := make(map[string]struct{}, len(names))
	for _, n := range names {
		referenced[n] = struct{}{}
	}

	cutoff := s.now().Add(-s.grace)
	removed := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if _, ok := referenced[f.Name]; ok {
			continue
		}
		if f.ModTime.After(cutoff) {
			continue
		}
		if err := s.files.Remove(f.Name); err != nil {
			s.logger.Warn("failed to remove orphaned file",
				slog.String("file", f.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		removed++
		s.logger.Info("removed orphaned file",
			slog.String("file", f.Name),
			slog.Int64("size", f.Size),
		)
	}

	if removed > 0 {
		s.logger.Info("orphan sweep finished", slog.Int("removed", removed), slog.Int("scanned", len(files)))
	}
	return removed, nil
}
