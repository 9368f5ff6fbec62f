package scene

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rcliao/story-history/internal/isoduration"
	"github.com/rcliao/story-history/internal/model"
)

// Load reads a scene from a JSON file.
func Load(path string) (*Scene, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	s := New("")
	if err := json.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	s.normalize()
	return s, nil
}

// Save writes the scene to a JSON file, creating parent directories.
func (s *Scene) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create scene dir: %w", err)
	}
	s.normalize()
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write scene: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *Scene) normalize() {
	if s.TS == "" {
		s.TS = isoduration.Zero
	}
	if s.History == nil {
		s.History = []model.Message{}
	}
	if s.ArchivedHistory == nil {
		s.ArchivedHistory = []model.ArchiveEntry{}
	}
	if s.LayeredHistory == nil {
		s.LayeredHistory = [][]model.LayeredArchiveEntry{}
	}
}
