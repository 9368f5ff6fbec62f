package history

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcliao/story-history/internal/model"
	"github.com/rcliao/story-history/internal/scene"
)

func TestCharacterActivity(t *testing.T) {
	sc := sceneWith(line("Alice", 0), line("Bob", 1), passage("PT1H"), line("Carol", 3), line("Alice", 4))
	sc.Characters = []scene.Character{{Name: "Alice"}, {Name: "Bob"}, {Name: "Carol"}, {Name: "Dave"}}

	got := CharacterActivity(sc, false)
	assert.Equal(t, []string{"Alice", "Carol", "Bob", "Dave"}, got.Characters)
	assert.False(t, got.NoneHaveActed)

	got = CharacterActivity(sc, true)
	assert.Equal(t, []string{"Alice", "Carol", "Bob", "Dave"}, got.Characters)

	sc.Push(passage("PT5M"))
	got = CharacterActivity(sc, true)
	assert.True(t, got.NoneHaveActed)
	assert.Equal(t, []string{"Alice", "Bob", "Carol", "Dave"}, got.Characters)
}

func TestCharacterActivityWindow(t *testing.T) {
	sc := sceneWith(line("Bob", 0))
	for i := 0; i < activityWindow; i++ {
		sc.Push(model.Message{Type: model.MessageNarrator, Text: "rain falls"})
	}
	sc.Characters = []scene.Character{{Name: "Alice"}, {Name: "Bob"}}

	got := CharacterActivity(sc, false)
	assert.True(t, got.NoneHaveActed, "Bob spoke outside the window")
	assert.Equal(t, []string{"Alice", "Bob"}, got.Characters)
}
