package model

import "fmt"

// MessageType discriminates transcript messages.
type MessageType string

const (
	MessageCharacter            MessageType = "character"
	MessagePlayer               MessageType = "player"
	MessageNarrator             MessageType = "narrator"
	MessageDirector             MessageType = "director"
	MessageContextInvestigation MessageType = "context_investigation"
	MessageReinforcement        MessageType = "reinforcement"
	MessageTimePassage          MessageType = "time"
)

// Message is one raw transcript message as persisted in the scene file.
type Message struct {
	ID        int         `json:"id"`
	Type      MessageType `json:"typ"`
	Character string      `json:"character,omitempty"`
	Text      string      `json:"text,omitempty"`
	// TS is the amount of time that passes; only set on time-passage messages.
	TS string `json:"ts,omitempty"`
}

// IsMeta reports whether the message steers the story instead of being part
// of it. Meta messages are never summarized.
func (m Message) IsMeta() bool {
	switch m.Type {
	case MessageDirector, MessageContextInvestigation, MessageReinforcement:
		return true
	}
	return false
}

// IsTimePassage reports whether the message marks a jump in scene time.
func (m Message) IsTimePassage() bool {
	return m.Type == MessageTimePassage
}

// Speaker returns the acting character, if any.
func (m Message) Speaker() string {
	if m.Type == MessageCharacter || m.Type == MessagePlayer {
		return m.Character
	}
	return ""
}

func (m Message) String() string {
	switch m.Type {
	case MessageCharacter, MessagePlayer:
		if m.Character != "" {
			return fmt.Sprintf("%s: %s", m.Character, m.Text)
		}
	case MessageTimePassage:
		return fmt.Sprintf("[time passed: %s]", m.TS)
	case MessageDirector:
		return fmt.Sprintf("[director: %s]", m.Text)
	}
	return m.Text
}
