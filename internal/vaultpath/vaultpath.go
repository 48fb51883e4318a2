// Package vaultpath maps pipeline artifacts to their locations in the vault:
// where a source's shadow summary lives, where review companions go, and how
// categories fall out of the folder layout.
package vaultpath

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	l1Prefix     = "[L1] "
	l2Prefix     = "[L2] "
	reviewDir    = "Reviews"
	reviewSuffix = ".review.md"
)

// Paths resolves artifact locations under a single shadow root.
type Paths struct {
	shadowRoot string
}

func New(shadowRoot string) *Paths {
	return &Paths{shadowRoot: shadowRoot}
}

func (p *Paths) ShadowRoot() string { return p.shadowRoot }

// L1Path returns the shadow summary location for a source note. The source's
// directory structure under the sources root is mirrored under L1/, and the
// filename gains the tier prefix.
func (p *Paths) L1Path(relSource string) string {
	dir, name := filepath.Split(filepath.ToSlash(relSource))
	return filepath.Join(p.shadowRoot, "L1", filepath.FromSlash(dir), l1Prefix+name)
}

// L2Path returns the insight location for a category and title.
func (p *Paths) L2Path(category, title string) string {
	return filepath.Join(p.shadowRoot, "L2", category, l2Prefix+SafeTitle(title)+".md")
}

// ReviewPath returns the review companion for a shadow file: a Reviews/
// subfolder next to it, with the .md extension swapped for .review.md.
func ReviewPath(shadowPath string) string {
	dir := filepath.Dir(shadowPath)
	name := strings.TrimSuffix(filepath.Base(shadowPath), ".md")
	return filepath.Join(dir, reviewDir, name+reviewSuffix)
}

// IsReviewFile reports whether a path names a review companion.
func IsReviewFile(path string) bool {
	return strings.HasSuffix(filepath.Base(path), reviewSuffix)
}

// IsShadowSummary reports whether a path names a generated L1 shadow file.
func IsShadowSummary(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, l1Prefix) && strings.HasSuffix(base, ".md") && !strings.HasSuffix(base, reviewSuffix)
}

// Category returns the grouping for a source note: its first directory
// segment under the sources root, or "General" for notes at the top level.
// The second return is the full directory chain, used for hierarchical
// prompt lookup.
func Category(relSource string) (string, []string) {
	dir := filepath.ToSlash(filepath.Dir(relSource))
	if dir == "." || dir == "" {
		return "General", nil
	}
	segments := strings.Split(dir, "/")
	return segments[0], segments
}

// SafeTitle reduces a model-produced title to a filename-safe form. Only
// letters, digits, spaces, dashes, and underscores survive.
func SafeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	if len(out) > 80 {
		out = strings.TrimSpace(out[:80])
	}
	if out == "" {
		return "Untitled"
	}
	return out
}

// EnsureParent creates the directory a file is about to be written into.
func EnsureParent(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
