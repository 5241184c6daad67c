package embedding

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestBatchesSplitAndTruncate(t *testing.T) {
	limits := Limits{BatchSize: 2, MaxTextLen: 5}.withDefaults()

	texts := []string{"aaaaaaa", "bb", "cc", "dd", "ee"}
	batches := limits.batches(texts)

	if len(batches) != 3 {
		t.Fatalf("len(batches) = %d, want 3", len(batches))
	}
	if len(batches[0]) != 2 || len(batches[2]) != 1 {
		t.Errorf("batch sizes = %d/%d/%d, want 2/2/1", len(batches[0]), len(batches[1]), len(batches[2]))
	}
	if batches[0][0] != "aaaaa" {
		t.Errorf("first text = %q, want truncated to 5 bytes", batches[0][0])
	}
	if batches[0][1] != "bb" {
		t.Errorf("short text = %q, must pass through", batches[0][1])
	}
}

func TestTruncateKeepsUTF8Boundaries(t *testing.T) {
	// "é" is two bytes; a cut through the middle must drop the whole
	// rune, never leave an orphaned lead byte.
	text := "abé"
	got := truncate(text, 3)
	if got != "ab" {
		t.Errorf("truncate = %q, want %q", got, "ab")
	}
	if truncate("abc", 10) != "abc" {
		t.Error("text under the limit must be unchanged")
	}
	if !strings.HasPrefix(text, truncate(text, 2)) {
		t.Error("truncation must be a prefix")
	}
	for max := 1; max <= 4; max++ {
		if cut := truncate("aé€", max); !utf8.ValidString(cut) {
			t.Errorf("truncate(%d) = %q, invalid UTF-8", max, cut)
		}
	}
}

func TestWithDefaults(t *testing.T) {
	limits := Limits{}.withDefaults()
	if limits.BatchSize != 32 || limits.MaxTextLen != 9000 || limits.MaxRetries != 5 {
		t.Errorf("defaults = %+v", limits)
	}
	if limits.BaseDelay != time.Second || limits.Timeout != 30*time.Second {
		t.Errorf("duration defaults = %v/%v", limits.BaseDelay, limits.Timeout)
	}
}
