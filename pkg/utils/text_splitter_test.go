package utils

import (
	"strings"
	"testing"
)

func TestSplitText(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		chunkSize  int
		overlap    int
		wantChunks int
	}{
		{
			name:       "short text stays whole",
			text:       "hello world",
			chunkSize:  100,
			overlap:    10,
			wantChunks: 1,
		},
		{
			name:       "even split without overlap",
			text:       strings.Repeat("a", 200),
			chunkSize:  100,
			overlap:    0,
			wantChunks: 2,
		},
		{
			name:       "overlap increases chunk count",
			text:       strings.Repeat("a", 200),
			chunkSize:  100,
			overlap:    50,
			wantChunks: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SplitText(tt.text, tt.chunkSize, tt.overlap)
			if len(chunks) != tt.wantChunks {
				t.Errorf("chunks = %d, want %d", len(chunks), tt.wantChunks)
			}
			for i, c := range chunks {
				if len(c) > tt.chunkSize {
					t.Errorf("chunk %d length = %d exceeds size %d", i, len(c), tt.chunkSize)
				}
			}
		})
	}
}

func TestSplitText_OverlapGreaterThanSizeStillTerminates(t *testing.T) {
	chunks := SplitText(strings.Repeat("a", 300), 100, 150)
	if len(chunks) != 3 {
		t.Errorf("chunks = %d, want 3 with fallback step", len(chunks))
	}
}

func TestSplitText_PrefersParagraphBreak(t *testing.T) {
	text := strings.Repeat("a", 95) + "\n\n" + strings.Repeat("b", 103)
	chunks := SplitText(text, 100, 0)
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want at least 2", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "\n\n") {
		t.Errorf("first chunk %q does not end at the paragraph break", chunks[0])
	}
}

func TestSplitText_MultiByteParagraphBreak(t *testing.T) {
	// Accented runes are three bytes each; the break position must be
	// computed in runes, not bytes, or the cut lands mid-word.
	text := strings.Repeat("ế", 95) + "\n\n" + strings.Repeat("b", 103)
	chunks := SplitText(text, 100, 0)
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want at least 2", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "\n\n") {
		t.Errorf("first chunk %q does not end at the paragraph break", chunks[0])
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > 100 {
			t.Errorf("chunk %d rune length = %d exceeds size 100", i, n)
		}
	}
}

func TestSplitText_MultiByteBreakAtTextEnd(t *testing.T) {
	// A trailing paragraph break preceded by multi-byte runes used to push
	// the cut past the end of the text.
	text := strings.Repeat("a", 36) + "ếế\n\n"
	chunks := SplitText(text, 40, 5)
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("chunk = %q, want the full text", chunks[0])
	}
}
