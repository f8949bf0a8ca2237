package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const DefaultStatePath = "~/.comanda/import-state.json"

// State tracks progress for resumable import runs.
type State struct {
	StartedAt       time.Time         `json:"started_at"`
	LastProcessedAt time.Time         `json:"last_processed_at"`
	Files           map[string]string `json:"files"`  // path -> file content hash
	Hashes          map[string]bool   `json:"hashes"` // message content hashes already ingested
	OrdersStored    int               `json:"orders_stored"`
	OrdersEmpty     int               `json:"orders_empty"`
	Duplicates      int               `json:"duplicates"`
	Errors          []string          `json:"errors"`

	path string
}

// LoadState reads the state file at path, or starts a new state when it does
// not exist.
func LoadState(path string) (*State, error) {
	p := expandHome(path)

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return newState(p), nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	s := newState(p)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if s.Files == nil {
		s.Files = make(map[string]string)
	}
	if s.Hashes == nil {
		s.Hashes = make(map[string]bool)
	}
	return s, nil
}

func newState(path string) *State {
	return &State{
		StartedAt: time.Now().UTC(),
		Files:     make(map[string]string),
		Hashes:    make(map[string]bool),
		path:      path,
	}
}

// Save writes the state through a temporary file so a crash never leaves a
// truncated state behind.
func (s *State) Save() error {
	s.LastProcessedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *State) Path() string {
	return s.path
}

// IsProcessed reports whether path was already imported with the same
// content.
func (s *State) IsProcessed(path, fileHash string) bool {
	return s.Files[path] == fileHash
}

func (s *State) MarkProcessed(path, fileHash string) {
	s.Files[path] = fileHash
}

// HasMessage reports whether a message with this hash was already ingested.
func (s *State) HasMessage(hash string) bool {
	return s.Hashes[hash]
}

func (s *State) MarkMessage(hash string) {
	s.Hashes[hash] = true
}

func (s *State) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
