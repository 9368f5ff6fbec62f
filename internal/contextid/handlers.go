package contextid

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rcliao/story-history/internal/history"
	"github.com/rcliao/story-history/internal/model"
	"github.com/rcliao/story-history/internal/scene"
)

func builtinHandlers() []Handler {
	return []Handler{
		HandlerFunc{Kind: TypeCharacterDescription, Fn: resolveCharacterDescription},
		HandlerFunc{Kind: TypeCharacterAttribute, Fn: resolveCharacterMap(func(c *scene.Character) map[string]string { return c.Attributes })},
		HandlerFunc{Kind: TypeCharacterDetail, Fn: resolveCharacterMap(func(c *scene.Character) map[string]string { return c.Details })},
		HandlerFunc{Kind: TypeCharacterExampleDialogue, Fn: resolveExampleDialogue},
		HandlerFunc{Kind: TypeCharacterList, Fn: resolveCharacterList},
		HandlerFunc{Kind: TypeStaticHistoryEntry, Fn: resolveHistoryEntry(0, true)},
		HandlerFunc{Kind: TypeArchivedHistoryEntry, Fn: resolveHistoryEntry(0, false)},
		HandlerFunc{Kind: TypeLayeredHistoryEntry, Fn: resolveLayeredHistoryEntry},
		HandlerFunc{Kind: TypeWorldEntryManual, Fn: resolveWorldEntry},
		HandlerFunc{Kind: TypeStoryConfiguration, Fn: resolveStoryConfiguration},
	}
}

func character(sc *scene.Scene, name string) (*scene.Character, error) {
	c := sc.Character(name)
	if c == nil {
		return nil, fmt.Errorf("character %q: %w", name, ErrItemNotFound)
	}
	return c, nil
}

func resolveCharacterDescription(env Env, id ID) (*Item, error) {
	name := id.Path
	if _, err := character(env.Scene, name); err != nil {
		return nil, err
	}
	return &Item{
		ID:   CharacterDescription(name),
		Name: name + " description",
		get: func() (string, error) {
			c, err := character(env.Scene, name)
			if err != nil {
				return "", err
			}
			return c.Description, nil
		},
		set: func(_ context.Context, v string) error {
			c, err := character(env.Scene, name)
			if err != nil {
				return err
			}
			c.Description = v
			return nil
		},
	}, nil
}

// resolveCharacterMap finds the character map key whose hash matches the
// path. The item keeps addressing that key by name.
func resolveCharacterMap(field func(*scene.Character) map[string]string) func(Env, ID) (*Item, error) {
	return func(env Env, id ID) (*Item, error) {
		for _, c := range env.Scene.Characters {
			for key := range field(&c) {
				if Hash(c.Name, key) != id.Path {
					continue
				}
				name := c.Name
				return &Item{
					ID:   ID{Type: id.Type, Path: id.Path},
					Name: name + " " + key,
					get: func() (string, error) {
						c, err := character(env.Scene, name)
						if err != nil {
							return "", err
						}
						v, ok := field(c)[key]
						if !ok {
							return "", fmt.Errorf("%s of %s: %w", key, name, ErrItemNotFound)
						}
						return v, nil
					},
					set: func(_ context.Context, v string) error {
						c, err := character(env.Scene, name)
						if err != nil {
							return err
						}
						m := field(c)
						if m == nil {
							return fmt.Errorf("%s of %s: %w", key, name, ErrItemNotFound)
						}
						m[key] = v
						return nil
					},
				}, nil
			}
		}
		return nil, ErrItemNotFound
	}
}

func resolveExampleDialogue(env Env, id ID) (*Item, error) {
	name := id.Path
	if _, err := character(env.Scene, name); err != nil {
		return nil, err
	}
	return &Item{
		ID:   CharacterExampleDialogue(name),
		Name: name + " example dialogue",
		get: func() (string, error) {
			c, err := character(env.Scene, name)
			if err != nil {
				return "", err
			}
			return strings.Join(c.ExampleDialogue, "\n"), nil
		},
	}, nil
}

func resolveCharacterList(env Env, id ID) (*Item, error) {
	if id.Path != "all" {
		return nil, ErrItemNotFound
	}
	return &Item{
		ID:   CharacterList(),
		Name: "characters",
		get: func() (string, error) {
			return strings.Join(env.Scene.CharacterNames(), ", "), nil
		},
	}, nil
}

func resolveHistoryEntry(layer int, static bool) func(Env, ID) (*Item, error) {
	return func(env Env, id ID) (*Item, error) {
		entry, err := history.FindEntry(env.Scene, layer, id.Path)
		if err != nil || entry.IsStatic() != static {
			return nil, fmt.Errorf("history entry %q: %w", id.Path, ErrItemNotFound)
		}
		return historyItem(env, HistoryEntry(entry), layer, id.Path), nil
	}
}

func resolveLayeredHistoryEntry(env Env, id ID) (*Item, error) {
	layerStr, entryID, ok := strings.Cut(id.Path, ".")
	layer, err := strconv.Atoi(layerStr)
	if !ok || err != nil || layer < 1 {
		return nil, ErrInvalidIDString
	}
	entry, err := history.FindEntry(env.Scene, layer, entryID)
	if err != nil {
		return nil, fmt.Errorf("history entry %q: %w", id.Path, ErrItemNotFound)
	}
	return historyItem(env, HistoryEntry(entry), layer, entryID), nil
}

func historyItem(env Env, id ID, layer int, entryID string) *Item {
	lookup := func() (model.HistoryEntry, error) {
		entry, err := history.FindEntry(env.Scene, layer, entryID)
		if err != nil {
			return entry, fmt.Errorf("history entry %q: %w", entryID, ErrItemNotFound)
		}
		return entry, nil
	}
	return &Item{
		ID:   id,
		Name: fmt.Sprintf("history entry %s (layer %d)", entryID, layer),
		get: func() (string, error) {
			entry, err := lookup()
			return entry.Text, err
		},
		set: func(ctx context.Context, v string) error {
			entry, err := lookup()
			if err != nil {
				return err
			}
			entry.Text = v
			if env.History != nil {
				return env.History.UpdateHistoryEntry(ctx, env.Scene, entry)
			}
			if layer == 0 {
				env.Scene.ArchivedHistory[entry.Index].Text = v
			} else {
				env.Scene.LayeredHistory[layer-1][entry.Index].Text = v
			}
			return nil
		},
	}
}

func resolveWorldEntry(env Env, id ID) (*Item, error) {
	if env.Scene.WorldEntry(id.Path) == nil {
		return nil, ErrItemNotFound
	}
	lookup := func() (*scene.WorldEntry, error) {
		w := env.Scene.WorldEntry(id.Path)
		if w == nil {
			return nil, fmt.Errorf("world entry %q: %w", id.Path, ErrItemNotFound)
		}
		return w, nil
	}
	return &Item{
		ID:   WorldEntryManual(id.Path),
		Name: "world entry " + id.Path,
		get: func() (string, error) {
			w, err := lookup()
			if err != nil {
				return "", err
			}
			return w.Text, nil
		},
		set: func(_ context.Context, v string) error {
			w, err := lookup()
			if err != nil {
				return err
			}
			w.Text = v
			return nil
		},
	}, nil
}

func resolveStoryConfiguration(env Env, id ID) (*Item, error) {
	var field func(*scene.Story) *string
	switch id.Path {
	case "title":
		field = func(s *scene.Story) *string { return &s.Title }
	case "description":
		field = func(s *scene.Story) *string { return &s.Description }
	case "intro":
		field = func(s *scene.Story) *string { return &s.Intro }
	default:
		return nil, ErrItemNotFound
	}
	return &Item{
		ID:   StoryConfiguration(id.Path),
		Name: "story " + id.Path,
		get: func() (string, error) {
			return *field(&env.Scene.Story), nil
		},
		set: func(_ context.Context, v string) error {
			*field(&env.Scene.Story) = v
			return nil
		},
	}, nil
}
