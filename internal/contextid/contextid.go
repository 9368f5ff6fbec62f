// Package contextid gives pieces of scene state stable string addresses of
// the form "<type>:<path>", resolves them back to live get/set handles and
// finds them in free text.
package contextid

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rcliao/story-history/internal/model"
)

var (
	ErrInvalidIDString = errors.New("invalid context id")
	ErrNoHandlerFound  = errors.New("no handler for context id type")
	ErrItemNotFound    = errors.New("context id item not found")
	ErrItemReadOnly    = errors.New("context id item is read-only")
)

// Error ties a context id failure to the id string that caused it.
type Error struct {
	ID  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

const (
	TypeCharacterDescription     = "character.description"
	TypeCharacterAttribute       = "character.attribute"
	TypeCharacterDetail          = "character.detail"
	TypeCharacterExampleDialogue = "character.example_dialogue"
	TypeCharacterList            = "character_list"
	TypeStaticHistoryEntry       = "history_entry.static"
	TypeArchivedHistoryEntry     = "history_entry.archived"
	TypeLayeredHistoryEntry      = "history_entry.layered"
	TypeWorldEntryManual         = "world_entry.manual"
	TypeStoryConfiguration       = "story_configuration"
)

var typePattern = regexp.MustCompile(`^[a-z_]+(\.[a-z_]+)*$`)

// ID is a parsed context id.
type ID struct {
	Type string
	Path string
}

func (id ID) String() string {
	return id.Type + ":" + id.Path
}

// Segments splits the path on dots.
func (id ID) Segments() []string {
	return strings.Split(id.Path, ".")
}

// Parse splits s into type and path. The type is everything before the
// first colon.
func Parse(s string) (ID, error) {
	typ, path, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || !typePattern.MatchString(typ) || path == "" {
		return ID{}, &Error{ID: s, Err: ErrInvalidIDString}
	}
	return ID{Type: typ, Path: path}, nil
}

// Hash returns the 12 character digest used to address map entries.
func Hash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(sum[:])[:12]
}

func CharacterDescription(name string) ID {
	return ID{Type: TypeCharacterDescription, Path: name}
}

func CharacterAttribute(name, attribute string) ID {
	return ID{Type: TypeCharacterAttribute, Path: Hash(name, attribute)}
}

func CharacterDetail(name, detail string) ID {
	return ID{Type: TypeCharacterDetail, Path: Hash(name, detail)}
}

func CharacterExampleDialogue(name string) ID {
	return ID{Type: TypeCharacterExampleDialogue, Path: name}
}

func CharacterList() ID {
	return ID{Type: TypeCharacterList, Path: "all"}
}

func WorldEntryManual(id string) ID {
	return ID{Type: TypeWorldEntryManual, Path: id}
}

// StoryConfiguration addresses a story field: title, description or intro.
func StoryConfiguration(field string) ID {
	return ID{Type: TypeStoryConfiguration, Path: field}
}

// HistoryEntry returns the id of a history entry view.
func HistoryEntry(e model.HistoryEntry) ID {
	switch {
	case e.IsStatic():
		return ID{Type: TypeStaticHistoryEntry, Path: e.ID}
	case e.Layer == 0:
		return ID{Type: TypeArchivedHistoryEntry, Path: e.ID}
	default:
		return ID{Type: TypeLayeredHistoryEntry, Path: strconv.Itoa(e.Layer) + "." + e.ID}
	}
}
