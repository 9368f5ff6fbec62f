// Package scene holds the mutable narrative state the history engine works
// on: the raw transcript, the archive, the layered history and the entity
// graph that context ids point into.
package scene

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/rcliao/story-history/internal/isoduration"
	"github.com/rcliao/story-history/internal/model"
)

// Character is a participant of the scene.
type Character struct {
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	IsPlayer        bool              `json:"is_player,omitempty"`
	Attributes      map[string]string `json:"attributes,omitempty"`
	Details         map[string]string `json:"details,omitempty"`
	ExampleDialogue []string          `json:"example_dialogue,omitempty"`
}

// WorldEntry is a piece of hand-written world lore.
type WorldEntry struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Story holds the story-level configuration.
type Story struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Intro       string `json:"intro,omitempty"`
}

// Scene owns the transcript and both history representations. All history
// lists are mutated in place; callers serialize mutation with Lock/Unlock.
type Scene struct {
	mu sync.Mutex

	Name            string                        `json:"name"`
	TS              string                        `json:"ts"`
	History         []model.Message               `json:"history"`
	ArchivedHistory []model.ArchiveEntry          `json:"archived_history"`
	LayeredHistory  [][]model.LayeredArchiveEntry `json:"layered_history"`
	Characters      []Character                   `json:"characters,omitempty"`
	WorldEntries    []WorldEntry                  `json:"world_entries,omitempty"`
	Story           Story                         `json:"story"`
}

// New returns an empty scene at time zero.
func New(name string) *Scene {
	return &Scene{
		Name:            name,
		TS:              isoduration.Zero,
		History:         []model.Message{},
		ArchivedHistory: []model.ArchiveEntry{},
		LayeredHistory:  [][]model.LayeredArchiveEntry{},
	}
}

// Lock acquires the scene's mutation lock.
func (s *Scene) Lock() { s.mu.Lock() }

// Unlock releases the scene's mutation lock.
func (s *Scene) Unlock() { s.mu.Unlock() }

// Push appends messages to the transcript, assigning ids to those without one.
func (s *Scene) Push(msgs ...model.Message) []model.Message {
	next := 1
	for _, m := range s.History {
		if m.ID >= next {
			next = m.ID + 1
		}
	}
	for i := range msgs {
		if msgs[i].ID == 0 {
			msgs[i].ID = next
			next++
		}
		s.History = append(s.History, msgs[i])
	}
	return msgs
}

// CharacterNames returns the names of all characters in scene order.
func (s *Scene) CharacterNames() []string {
	names := make([]string, 0, len(s.Characters))
	for _, c := range s.Characters {
		names = append(names, c.Name)
	}
	return names
}

// Character returns the named character or nil.
func (s *Scene) Character(name string) *Character {
	for i := range s.Characters {
		if s.Characters[i].Name == name {
			return &s.Characters[i]
		}
	}
	return nil
}

// WorldEntry returns the world entry with the given id or nil.
func (s *Scene) WorldEntry(id string) *WorldEntry {
	for i := range s.WorldEntries {
		if s.WorldEntries[i].ID == id {
			return &s.WorldEntries[i]
		}
	}
	return nil
}

// ArchiveIndex returns the position of the archive entry with the given id,
// or -1.
func (s *Scene) ArchiveIndex(id string) int {
	for i, e := range s.ArchivedHistory {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// LayeredIndex returns the position of the entry with the given id in
// layered history list layer, or -1.
func (s *Scene) LayeredIndex(layer int, id string) int {
	if layer < 0 || layer >= len(s.LayeredHistory) {
		return -1
	}
	for i, e := range s.LayeredHistory[layer] {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// SyncTime recomputes TS from the last archive entry plus every time passage
// recorded in the transcript after it.
func (s *Scene) SyncTime() {
	ts := isoduration.Zero
	start := 0
	if n := len(s.ArchivedHistory); n > 0 {
		last := s.ArchivedHistory[n-1]
		if last.TS != "" {
			ts = last.TS
		}
		if last.End != nil {
			start = *last.End + 1
		}
	}
	for i := start; i < len(s.History); i++ {
		m := s.History[i]
		if !m.IsTimePassage() {
			continue
		}
		next, err := isoduration.Add(ts, m.TS, false)
		if err != nil {
			log.Warn().Err(err).Int("message", m.ID).Msg("skipping malformed time passage")
			continue
		}
		ts = next
	}
	s.TS = ts
}
