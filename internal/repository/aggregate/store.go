// Package aggregate persists the query dataset as a single resumable JSON file.
package aggregate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/querygen/internal/domain"
	"github.com/kailas-cloud/querygen/internal/metrics"
)

const (
	backupSuffix = ".backup"
	dirPerm      = 0o755
	filePerm     = 0o644
)

// Store reads and atomically writes the aggregate file.
type Store struct {
	path   string
	model  string
	now    func() time.Time
	logger *zap.Logger
}

// New creates a store for path. defaultModel stamps freshly initialized aggregates.
func New(path, defaultModel string, logger *zap.Logger) *Store {
	return &Store{
		path:   filepath.Clean(path),
		model:  defaultModel,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock overrides the time source used for fresh aggregates.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Path returns the aggregate file path.
func (s *Store) Path() string { return s.path }

// BackupPath returns where a corrupt aggregate file is moved.
func BackupPath(path string) string { return path + backupSuffix }

// Load returns the persisted aggregate, or a fresh one when the file is absent.
// A file that does not decode is renamed to BackupPath (best-effort) and a fresh
// aggregate is returned. Other read errors wrap domain.ErrPersistence.
func (s *Store) Load() (*domain.Aggregate, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("No aggregate file, starting fresh", zap.String("path", s.path))
		return domain.NewAggregate(s.model, s.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrPersistence, s.path, err)
	}

	agg, err := Decode(data)
	if err != nil {
		backup := BackupPath(s.path)
		s.logger.Warn("Aggregate file is corrupt, starting fresh",
			zap.String("path", s.path),
			zap.String("backup", backup),
			zap.Error(err),
		)
		if rerr := os.Rename(s.path, backup); rerr != nil {
			s.logger.Warn("Failed to back up corrupt aggregate", zap.String("path", s.path), zap.Error(rerr))
		}
		return domain.NewAggregate(s.model, s.now()), nil
	}

	s.logger.Info("Resuming from aggregate",
		zap.String("path", s.path),
		zap.Int("items", len(agg.Items)),
		zap.Int("completed_keywords", agg.RecomputeCompletedKeywords()),
	)
	return agg, nil
}

// Read decodes the aggregate without side effects. Absent and corrupt files are errors.
func (s *Store) Read() (*domain.Aggregate, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read aggregate %s: %w", s.path, err)
	}
	agg, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode aggregate %s: %w", s.path, err)
	}
	return agg, nil
}

// Save writes agg to a temp file in the target directory and renames it over the target,
// so readers never observe a partial file. Errors wrap domain.ErrPersistence.
func (s *Store) Save(agg *domain.Aggregate) error {
	start := time.Now()
	err := s.save(agg)
	metrics.ObserveCheckpoint(time.Since(start), err)
	return err
}

func (s *Store) save(agg *domain.Aggregate) (err error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("%w: create dir %s: %w", domain.ErrPersistence, dir, err)
	}

	data, err := Encode(agg)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", domain.ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp: %w", domain.ErrPersistence, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrPersistence, tmp.Name(), err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", domain.ErrPersistence, tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", domain.ErrPersistence, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", domain.ErrPersistence, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: rename to %s: %w", domain.ErrPersistence, s.path, err)
	}
	return nil
}

// Encode renders agg as indented JSON with literal non-ASCII and HTML characters.
func Encode(agg *domain.Aggregate) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(agg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses and normalizes an aggregate file. Meta and item fields of an unexpected
// type are tolerated. Only invalid JSON, a non-object document or a non-array "items" fail.
func Decode(data []byte) (*domain.Aggregate, error) {
	var agg domain.Aggregate
	if err := json.Unmarshal(data, &agg); err != nil {
		return nil, err
	}
	agg.Normalize()
	return &agg, nil
}
