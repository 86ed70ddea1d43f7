package cleanup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pixelforge/internal/models"
	"pixelforge/internal/storage"
	"pixelforge/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, disk *storage.Disk, name string, age time.Duration) {
	t.Helper()
	_, err := disk.Save(name, strings.NewReader("%PDF-1.4 data"), 1<<10)
	require.NoError(t, err)
	p, err := disk.Path(name)
	require.NoError(t, err)
	mod := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(p, mod, mod))
}

func fileNames(t *testing.T, disk *storage.Disk) []string {
	t.Helper()
	files, err := disk.List()
	require.NoError(t, err)
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names
}

func setup(t *testing.T) (*storage.Disk, *testutil.ProjectStore) {
	t.Helper()
	disk, err := storage.NewDisk(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	projects := testutil.NewProjectStore()

	p := testutil.SeedProject(t, projects, "Atlas", primitive.NewObjectID())
	_, err = projects.AddDocument(context.Background(), p.ID, models.Document{
		Filename:     "1700000000000-aaaaaaaa.pdf",
		OriginalName: "design.pdf",
	})
	require.NoError(t, err)
	return disk, projects
}

func TestSweeper_RunOnce(t *testing.T) {
	disk, projects := setup(t)

	writeFile(t, disk, "1700000000000-aaaaaaaa.pdf", 2*time.Hour) // referenced
	writeFile(t, disk, "1700000000001-bbbbbbbb.pdf", 2*time.Hour) // orphan, old
	writeFile(t, disk, "1700000000002-cccccccc.docx", time.Minute) // orphan, within grace

	s := NewSweeper(projects, disk, quietLogger(), time.Hour)
	removed, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.ElementsMatch(t, []string{"1700000000000-aaaaaaaa.pdf", "1700000000002-cccccccc.docx"}, fileNames(t, disk))

	// Once the grace period has passed the young orphan goes too.
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	removed, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"1700000000000-aaaaaaaa.pdf"}, fileNames(t, disk))
}

func TestSweeper_EmptyDirectory(t *testing.T) {
	disk, projects := setup(t)
	projects.Err = errors.New("should not be called")

	removed, err := NewSweeper(projects, disk, quietLogger(), 0).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSweeper_ReferenceLookupFails(t *testing.T) {
	disk, projects := setup(t)
	writeFile(t, disk, "1700000000001-bbbbbbbb.pdf", 2*time.Hour)
	projects.Err = errors.New("mongo unavailable")

	_, err := NewSweeper(projects, disk, quietLogger(), 0).RunOnce(context.Background())
	require.Error(t, err)
	assert.Len(t, fileNames(t, disk), 1, "nothing may be removed without the reference list")
}

func TestSweeper_Start(t *testing.T) {
	disk, projects := setup(t)
	writeFile(t, disk, "1700000000001-bbbbbbbb.pdf", 2*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewSweeper(projects, disk, quietLogger(), time.Hour).Start(ctx, 10*time.Millisecond)
	}()

	assert.Eventually(t, func() bool {
		files, err := disk.List()
		return err == nil && len(files) == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
