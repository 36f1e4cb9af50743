// Package storage persists propagation runs on disk. Each run is a
// directory holding metadata.json and rows.csv.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/orbprop/internal/propagate"
)

var ErrRunNotFound = errors.New("storage: run not found")

const (
	metadataFile = "metadata.json"
	rowsFile     = "rows.csv"
)

type Store struct {
	baseDir string
	log     zerolog.Logger
}

func New(baseDir string, log zerolog.Logger) *Store {
	return &Store{baseDir: baseDir, log: log.With().Str("component", "storage").Logger()}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID        string             `json:"id"`
	Label     string             `json:"label,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Backend   string             `json:"backend"`
	Origin    string             `json:"origin,omitempty"`
	TimeScale string             `json:"time_scale"`
	Orbits    int                `json:"orbits"`
	Rows      int                `json:"rows"`
	Options   propagate.Options  `json:"options"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// Save writes res under a fresh run directory and returns the run id.
func (s *Store) Save(label string, res *propagate.Result, metrics map[string]float64) (string, error) {
	if res == nil {
		return "", errors.New("storage: nil result")
	}
	now := time.Now().UTC()
	prefix := label
	if prefix == "" {
		prefix = res.Resolved.Backend.String()
	}
	runID := fmt.Sprintf("%s_%d", prefix, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Label:     label,
		Timestamp: now,
		Backend:   res.Resolved.Backend.String(),
		TimeScale: res.Resolved.TimeScale,
		Orbits:    countIDs(res.Table),
		Rows:      len(res.Table),
		Options:   res.Resolved.Options,
		Metrics:   metrics,
	}
	if res.Resolved.Origin.Valid() {
		meta.Origin = res.Resolved.Origin.String()
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, rowsFile))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := WriteCSV(f, res.Table); err != nil {
		return "", err
	}

	s.log.Debug().Str("run", runID).Int("rows", meta.Rows).Msg("saved run")
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func countIDs(rows []propagate.Row) int {
	seen := make(map[int]struct{})
	for _, r := range rows {
		seen[r.OrbitID] = struct{}{}
	}
	return len(seen)
}

// List returns stored runs, oldest first. Unreadable directories are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			s.log.Warn().Err(err).Str("dir", entry.Name()).Msg("skipping run")
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadRows(runID string) ([]propagate.Row, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, rowsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
