package chunker

import (
	"strings"
	"testing"
)

func words(s string) int { return len(strings.Fields(s)) }

func TestChunk_EmptyInput(t *testing.T) {
	result := Chunk("", DefaultOptions())
	if result != nil {
		t.Errorf("expected nil, got %v", result)
	}
}

func TestChunk_ShortContent(t *testing.T) {
	text := "The castle fell at dawn."
	result := Chunk(text, DefaultOptions())
	if len(result) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(result))
	}
	if result[0].Text != text {
		t.Errorf("expected %q, got %q", text, result[0].Text)
	}
	if result[0].StartLine != 1 {
		t.Errorf("expected StartLine 1, got %d", result[0].StartLine)
	}
}

func TestChunk_SplitsOnParagraphs(t *testing.T) {
	para := strings.Repeat("word ", 30)
	text := para + "\n\n" + para + "\n\n" + para

	opts := Options{TargetSize: 40, MaxSize: 50, Size: words}
	result := Chunk(text, opts)
	if len(result) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(result))
	}
	if result[1].StartLine != 3 {
		t.Errorf("expected second chunk to start on line 3, got %d", result[1].StartLine)
	}
}

func TestChunk_HardSplitsLongParagraph(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, "one two three four five")
	}
	text := strings.Join(lines, "\n") // 100 words, no blank lines

	opts := Options{TargetSize: 20, MaxSize: 30, Size: words}
	result := Chunk(text, opts)
	if len(result) != 5 {
		t.Fatalf("expected 5 chunks, got %d", len(result))
	}
	for _, r := range result {
		if words(r.Text) > 20 {
			t.Errorf("chunk exceeds target: %d words", words(r.Text))
		}
	}
}

func TestChunk_MergesSmallBlocks(t *testing.T) {
	text := "Short.\n\nAlso short."
	opts := Options{TargetSize: 400, MaxSize: 600}
	result := Chunk(text, opts)
	if len(result) != 1 {
		t.Errorf("expected 1 merged chunk, got %d", len(result))
	}
}

func TestGroup(t *testing.T) {
	texts := []string{"a b c", "d e", "f g h i", "j", "k l m n o p q r s t u v"}
	groups := Group(texts, 6, words)
	want := [][]int{{0, 1}, {2, 3}, {4}}
	if len(groups) != len(want) {
		t.Fatalf("expected %d groups, got %v", len(want), groups)
	}
	for i := range want {
		if len(groups[i]) != len(want[i]) {
			t.Fatalf("group %d: expected %v, got %v", i, want[i], groups[i])
		}
		for j := range want[i] {
			if groups[i][j] != want[i][j] {
				t.Fatalf("group %d: expected %v, got %v", i, want[i], groups[i])
			}
		}
	}
}

func TestGroup_NoBudget(t *testing.T) {
	groups := Group([]string{"a", "b", "c"}, 0, nil)
	if len(groups) != 1 || len(groups[0]) != 3 {
		t.Fatalf("expected a single group, got %v", groups)
	}
}
