// Package frontmatter reads and writes the YAML header block that source
// notes, shadow summaries, and review files all carry.
package frontmatter

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Parse splits a markdown document into its YAML frontmatter and body.
// Documents without a leading frontmatter block, or with YAML that fails to
// parse, yield an empty metadata map and the full content as body. Malformed
// headers must never stop the pipeline from seeing the text.
func Parse(content string) (map[string]any, string) {
	trimmed := strings.TrimLeft(content, "\ufeff")
	if !strings.HasPrefix(trimmed, delimiter) {
		return map[string]any{}, content
	}
	parts := strings.SplitN(trimmed, delimiter, 3)
	if len(parts) < 3 {
		return map[string]any{}, content
	}
	meta := map[string]any{}
	if err := yaml.Unmarshal([]byte(parts[1]), &meta); err != nil {
		return map[string]any{}, content
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return meta, strings.TrimLeft(parts[2], "\n")
}

// Render serializes header and body back into a frontmatter document. The
// header may be any yaml-marshalable value; structs keep field order stable
// across rebuilds.
func Render(header any, body string) (string, error) {
	raw, err := yaml.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}
	var b strings.Builder
	b.WriteString(delimiter)
	b.WriteString("\n")
	b.Write(raw)
	b.WriteString(delimiter)
	b.WriteString("\n\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	return b.String(), nil
}

// GetString reads a string field, tolerating absent keys and non-string
// scalars.
func GetString(meta map[string]any, key string) string {
	switch v := meta[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// GetBool reads a boolean field. String forms of true ("true", "yes") count,
// since hand-edited YAML is loose about types.
func GetBool(meta map[string]any, key string) bool {
	switch v := meta[key].(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "true" || s == "yes"
	default:
		return false
	}
}

// GetStringList reads a list field, accepting both a YAML sequence and a
// single scalar.
func GetStringList(meta map[string]any, key string) []string {
	switch v := meta[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s := strings.TrimSpace(fmt.Sprintf("%v", item))
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		return []string{s}
	default:
		return nil
	}
}

// GetMap reads a nested mapping field.
func GetMap(meta map[string]any, key string) map[string]any {
	switch v := meta[key].(type) {
	case map[string]any:
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprintf("%v", k)] = val
		}
		return out
	default:
		return nil
	}
}

var keywordsLine = regexp.MustCompile(`(?im)^\s*[-*]?\s*\**keywords\**\s*:\s*(.*)$`)
var bulletLine = regexp.MustCompile(`^\s*[-*]\s+(.*)$`)

// ExtractTags pulls keyword tags out of generated summary text. It looks for
// a "keywords:" line and collects either the inline comma-separated values or
// the bullet list that follows it.
func ExtractTags(body string) []string {
	loc := keywordsLine.FindStringSubmatchIndex(body)
	if loc == nil {
		return nil
	}
	var tags []string
	inline := strings.TrimSpace(body[loc[2]:loc[3]])
	if inline != "" {
		for _, t := range strings.Split(inline, ",") {
			if t = normalizeTag(t); t != "" {
				tags = append(tags, t)
			}
		}
		return tags
	}
	rest := body[loc[1]:]
	for _, line := range strings.Split(rest, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := bulletLine.FindStringSubmatch(line)
		if m == nil {
			break
		}
		if t := normalizeTag(m[1]); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func normalizeTag(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*`\"'")
	s = strings.NewReplacer("[", "", "]", "").Replace(s)
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(s, " ", "_")
}

// Quote prefixes every line with "> ", the blockquote form review files use
// to embed the summary under review.
func Quote(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + line
		}
	}
	return strings.Join(lines, "\n")
}
