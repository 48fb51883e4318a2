package watch

import (
	"path/filepath"
	"strings"

	"github.com/untoldecay/Distillery/internal/vaultpath"
)

// EventKind is the closed set of things a filesystem event can mean to the
// pipeline. Classification happens once per event; handlers never re-inspect
// the path.
type EventKind int

const (
	EventIgnore EventKind = iota
	EventSource           // a source note changed
	EventReview           // a review companion changed
	EventShadow           // a generated L1 shadow file changed
)

func (k EventKind) String() string {
	switch k {
	case EventSource:
		return "source"
	case EventReview:
		return "review"
	case EventShadow:
		return "shadow"
	default:
		return "ignore"
	}
}

// Classify maps an absolute event path to its kind given the two watched
// roots. Shadow-tree paths win over source-tree paths when the roots nest.
func Classify(path, sourcesRoot, shadowRoot string) EventKind {
	if rel, ok := under(path, shadowRoot); ok {
		switch {
		case vaultpath.IsReviewFile(rel):
			return EventReview
		case vaultpath.IsShadowSummary(rel):
			return EventShadow
		default:
			return EventIgnore
		}
	}
	if rel, ok := under(path, sourcesRoot); ok && isSourceNote(rel) {
		return EventSource
	}
	return EventIgnore
}

// isSourceNote applies the ignore rules for the sources tree: markdown only,
// no dotfiles or dot-directories, and README files are navigation, not notes.
func isSourceNote(rel string) bool {
	base := filepath.Base(rel)
	if !strings.HasSuffix(base, ".md") {
		return false
	}
	if strings.EqualFold(base, "README.md") {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") {
			return false
		}
	}
	return true
}

func under(path, root string) (string, bool) {
	if root == "" {
		return "", false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
