// Package artifact stores produced artifacts on disk and serves them back
// for download. The directory is the only state: nothing outlives a sweep,
// and no index is kept across restarts.
package artifact

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/use-agent/speedsheet/models"
)

// Store writes artifacts under a single directory with timestamped names.
type Store struct {
	dir string
}

// NewStore creates the backing directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string {
	return s.dir
}

// Put writes data under a fresh timestamped name and returns the full path.
// A short random suffix keeps same-second artifacts from colliding.
func (s *Store) Put(data []byte, ext string) (string, error) {
	name := fmt.Sprintf("speedtest_results_%s_%s.%s",
		time.Now().Format("20060102_150405"), randomSuffix(), ext)
	full := filepath.Join(s.dir, name)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return full, nil
}

// Open opens a stored artifact by bare file name. Names carrying path
// separators, traversal segments, or a leading dot are treated as unknown.
func (s *Store) Open(fileName string) (*os.File, os.FileInfo, error) {
	if fileName == "" || fileName != filepath.Base(fileName) || strings.HasPrefix(fileName, ".") {
		return nil, nil, models.NewProcessError(models.ErrCodeArtifactNotFound, "File not found", nil)
	}

	f, err := os.Open(filepath.Join(s.dir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, models.NewProcessError(models.ErrCodeArtifactNotFound, "File not found", err)
		}
		return nil, nil, fmt.Errorf("open artifact: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat artifact: %w", err)
	}
	return f, fi, nil
}

// Sweep removes artifacts older than maxAge and reports how many went.
func (s *Store) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read artifact dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// StartJanitor sweeps expired artifacts on the given interval until ctx is
// canceled.
func (s *Store) StartJanitor(ctx context.Context, interval, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.Sweep(ttl)
				if err != nil {
					slog.Error("artifact sweep failed", "error", err)
					continue
				}
				if n > 0 {
					slog.Info("artifact sweep", "removed", n)
				}
			}
		}
	}()
}

// randomSuffix returns a short hex string.
func randomSuffix() string {
	b := make([]byte, 3)
	rand.Read(b)
	return hex.EncodeToString(b)
}
