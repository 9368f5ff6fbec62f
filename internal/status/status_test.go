package status

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestBusDropsWhenFull(t *testing.T) {
	b := NewBus(1)
	b.Emit(Event{Status: Busy, Message: "first"})
	b.Emit(Event{Status: Busy, Message: "second"})

	got := <-b.Subscribe()
	assert.Equal(t, "first", got.Message)
	select {
	case evt := <-b.Subscribe():
		t.Fatalf("unexpected event %v", evt)
	default:
	}
}

func TestLoggerAndMulti(t *testing.T) {
	var buf bytes.Buffer
	rec := &Recorder{}
	m := Multi{Logger{Log: zerolog.New(&buf)}, rec}
	m.Emit(Event{Status: Error, Message: "Layered history update failed."})
	m.Emit(Event{Status: Info, Message: "cancelled"})

	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "Layered history update failed.")
	assert.Len(t, rec.Events(), 2)

	last, ok := rec.Last(Error)
	assert.True(t, ok)
	assert.Equal(t, "Layered history update failed.", last.Message)

	_, ok = rec.Last(Success)
	assert.False(t, ok)
}

func TestBusClose(t *testing.T) {
	b := NewBus(4)
	b.Emit(Event{Status: Busy, Message: "working"})
	b.Close()
	b.Close()
	b.Emit(Event{Status: Success, Message: "late"})

	var got []string
	for evt := range b.Subscribe() {
		got = append(got, evt.Message)
	}
	assert.Equal(t, []string{"working"}, got)
}
