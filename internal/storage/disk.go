// Package storage keeps uploaded document files in a flat directory on local disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrTooLarge is returned by Save when the content exceeds the byte limit.
	ErrTooLarge = errors.New("file exceeds size limit")
	// ErrInvalidName is returned for names that are empty, hidden or contain a path separator.
	ErrInvalidName = errors.New("invalid file name")
)

type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Disk stores files directly under dir. Names are generated by the caller and never
// contain directories.
type Disk struct {
	dir string
}

// NewDisk creates dir if needed.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{dir: dir}, nil
}

func (d *Disk) Dir() string {
	return d.dir
}

func validName(name string) bool {
	return name != "" &&
		!strings.HasPrefix(name, ".") &&
		!strings.ContainsAny(name, `/\`) &&
		filepath.Base(name) == name
}

// Path returns the on-disk path of name.
func (d *Disk) Path(name string) (string, error) {
	if !validName(name) {
		return "", ErrInvalidName
	}
	return filepath.Join(d.dir, name), nil
}

// Save writes r to name, refusing more than limit bytes. The file only appears under its
// final name once fully written.
func (d *Disk) Save(name string, r io.Reader, limit int64) (int64, error) {
	dst, err := d.Path(name)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, io.LimitReader(r, limit+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("write upload: %w", err)
	}
	if n > limit {
		return 0, ErrTooLarge
	}

	if err := os.Rename(tmpName, dst); err != nil {
		return 0, fmt.Errorf("commit upload: %w", err)
	}
	committed = true
	return n, nil
}

// Remove deletes name. A missing file is not an error.
func (d *Disk) Remove(name string) error {
	p, err := d.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (d *Disk) Exists(name string) (bool, error) {
	p, err := d.Path(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// List returns the regular files in the directory, skipping hidden temp files.
func (d *Disk) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, err
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		files = append(files, FileInfo{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return files, nil
}
