// Package training owns the human-feedback corpus: an append-only JSONL log
// of rated (prompt, completion) pairs with export to a fine-tuning-ready
// format. It is a terminal sink; nothing here reads back into detection.
package training

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/tracepulse/backend/internal/shared/id"
	"github.com/tracepulse/backend/internal/shared/types"
)

// Store is the append-only training example log. When a path is configured
// the log is durable JSONL, loaded fully at startup; with an empty path it is
// memory-only (tests, ephemeral deployments).
type Store struct {
	mu       sync.Mutex
	path     string
	examples []types.TrainingExample
}

// NewStore opens (or creates) the log at path. An empty path yields a
// memory-only store.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		return s, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create training log dir: %w", err)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read training log: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var ex types.TrainingExample
		if err := sonic.UnmarshalString(line, &ex); err != nil {
			return nil, fmt.Errorf("parse training log entry: %w", err)
		}
		s.examples = append(s.examples, ex)
	}
	return s, nil
}

// AddExample validates and appends one feedback entry. Malformed feedback is
// rejected at this boundary with no partial write.
func (s *Store) AddExample(anom types.AnomalySummary, prompt, completion string, rating types.Rating, correction, notes string) (types.TrainingExample, error) {
	if anom.AnomalyID == "" && anom.TraceID == "" {
		return types.TrainingExample{}, fmt.Errorf("feedback requires anomaly context")
	}
	if prompt == "" {
		return types.TrainingExample{}, fmt.Errorf("feedback requires the original prompt")
	}
	if completion == "" {
		return types.TrainingExample{}, fmt.Errorf("feedback requires the rated completion")
	}
	if !rating.Valid() {
		return types.TrainingExample{}, fmt.Errorf("rating must be %q or %q", types.RatingGood, types.RatingBad)
	}

	ex := types.TrainingExample{
		ID:         id.NewExampleID().String(),
		Timestamp:  time.Now().UTC(),
		Anomaly:    anom,
		Prompt:     prompt,
		Completion: completion,
		Rating:     rating,
		Correction: correction,
		Notes:      notes,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		if err := s.appendLocked(ex); err != nil {
			return types.TrainingExample{}, err
		}
	}
	s.examples = append(s.examples, ex)
	return ex, nil
}

func (s *Store) appendLocked(ex types.TrainingExample) error {
	line, err := sonic.Marshal(ex)
	if err != nil {
		return fmt.Errorf("encode training example: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open training log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append training example: %w", err)
	}
	return nil
}

// GetStats derives the corpus summary by scanning the log.
func (s *Store) GetStats() types.TrainingStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := types.TrainingStats{UniqueServices: []string{}}
	services := make(map[string]struct{})

	for _, ex := range s.examples {
		stats.TotalExamples++
		switch ex.Rating {
		case types.RatingGood:
			stats.GoodExamples++
		case types.RatingBad:
			stats.BadExamples++
		}
		if ex.Anomaly.Service != "" {
			services[ex.Anomaly.Service] = struct{}{}
		}
		if ex.Timestamp.After(stats.LastUpdated) {
			stats.LastUpdated = ex.Timestamp
		}
	}

	for svc := range services {
		stats.UniqueServices = append(stats.UniqueServices, svc)
	}
	sort.Strings(stats.UniqueServices)
	return stats
}

// exportRecord is the fine-tuning wire shape: one JSON object per line.
type exportRecord struct {
	Prompt             string `json:"prompt"`
	Completion         string `json:"completion"`
	OriginalCompletion string `json:"original_completion,omitempty"`
}

// ExportJSONL renders the corpus for fine-tuning. Good examples export as
// {prompt, completion}; bad examples with a correction export the correction
// as the completion and keep the original; bad examples without a correction
// carry no positive signal and are excluded.
func (s *Store) ExportJSONL() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	for _, ex := range s.examples {
		var rec exportRecord
		switch {
		case ex.Rating == types.RatingGood:
			rec = exportRecord{Prompt: ex.Prompt, Completion: ex.Completion}
		case ex.Rating == types.RatingBad && ex.Correction != "":
			rec = exportRecord{Prompt: ex.Prompt, Completion: ex.Correction, OriginalCompletion: ex.Completion}
		default:
			continue
		}

		line, err := sonic.Marshal(rec)
		if err != nil {
			return "", fmt.Errorf("encode export record: %w", err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// Delete removes a single entry by ID, reporting whether it existed.
func (s *Store) Delete(exampleID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, ex := range s.examples {
		if ex.ID == exampleID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	remaining := append(append([]types.TrainingExample{}, s.examples[:idx]...), s.examples[idx+1:]...)
	if err := s.rewriteLocked(remaining); err != nil {
		return false, err
	}
	s.examples = remaining
	return true, nil
}

// Clear empties the log. Administrative operation, not part of normal flow.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rewriteLocked(nil); err != nil {
		return err
	}
	s.examples = nil
	return nil
}

func (s *Store) rewriteLocked(examples []types.TrainingExample) error {
	if s.path == "" {
		return nil
	}

	var b strings.Builder
	for _, ex := range examples {
		line, err := sonic.Marshal(ex)
		if err != nil {
			return fmt.Errorf("encode training example: %w", err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write training log: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace training log: %w", err)
	}
	return nil
}
