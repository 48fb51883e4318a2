package watch

import (
	"path/filepath"
	"testing"
)

func TestClassify(t *testing.T) {
	sources := filepath.Join("/vault", "01_Sources")
	shadow := filepath.Join("/vault", "99_Shadow_Library")

	tests := []struct {
		path string
		want EventKind
	}{
		{filepath.Join(sources, "Projects", "note.md"), EventSource},
		{filepath.Join(sources, "note.md"), EventSource},
		{filepath.Join(sources, "README.md"), EventIgnore},
		{filepath.Join(sources, "Projects", "readme.md"), EventIgnore},
		{filepath.Join(sources, ".obsidian", "workspace.md"), EventIgnore},
		{filepath.Join(sources, ".hidden.md"), EventIgnore},
		{filepath.Join(sources, "image.png"), EventIgnore},
		{filepath.Join(shadow, "L1", "Projects", "[L1] note.md"), EventShadow},
		{filepath.Join(shadow, "L1", "Projects", "Reviews", "[L1] note.review.md"), EventReview},
		{filepath.Join(shadow, "L2", "Projects", "Reviews", "[L2] Insight.review.md"), EventReview},
		{filepath.Join(shadow, "L2", "Projects", "[L2] Insight.md"), EventIgnore},
		{filepath.Join("/vault", "stray.md"), EventIgnore},
	}
	for _, tt := range tests {
		if got := Classify(tt.path, sources, shadow); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
