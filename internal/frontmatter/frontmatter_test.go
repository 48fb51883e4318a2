package frontmatter

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	type header struct {
		ID    string   `yaml:"id"`
		Draft bool     `yaml:"draft"`
		Tags  []string `yaml:"tags"`
	}
	rendered, err := Render(header{ID: "abc", Draft: true, Tags: []string{"go", "notes"}}, "Body text.\n")
	if err != nil {
		t.Fatal(err)
	}
	meta, body := Parse(rendered)
	if got := GetString(meta, "id"); got != "abc" {
		t.Errorf("id = %q", got)
	}
	if !GetBool(meta, "draft") {
		t.Error("draft not parsed")
	}
	if got := GetStringList(meta, "tags"); !reflect.DeepEqual(got, []string{"go", "notes"}) {
		t.Errorf("tags = %v", got)
	}
	if strings.TrimSpace(body) != "Body text." {
		t.Errorf("body = %q", body)
	}
}

func TestParseNoFrontmatter(t *testing.T) {
	meta, body := Parse("just a note\n")
	if len(meta) != 0 {
		t.Errorf("meta = %v", meta)
	}
	if body != "just a note\n" {
		t.Errorf("body = %q", body)
	}
}

func TestParseBrokenYAMLFallsThrough(t *testing.T) {
	content := "---\n: [broken\n---\nbody\n"
	meta, body := Parse(content)
	if len(meta) != 0 {
		t.Errorf("meta = %v", meta)
	}
	if body != content {
		t.Errorf("body = %q", body)
	}
}

func TestGetBoolStringForms(t *testing.T) {
	meta := map[string]any{"a": "yes", "b": "True", "c": "no", "d": 1}
	if !GetBool(meta, "a") || !GetBool(meta, "b") {
		t.Error("string truthy forms not accepted")
	}
	if GetBool(meta, "c") || GetBool(meta, "d") {
		t.Error("false forms misread")
	}
}

func TestExtractTagsInline(t *testing.T) {
	got := ExtractTags("Summary.\n\nKeywords: task queues, [scheduling], Go runtime\n")
	want := []string{"task_queues", "scheduling", "Go_runtime"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tags = %v, want %v", got, want)
	}
}

func TestExtractTagsBulletList(t *testing.T) {
	body := "Summary.\n\n**Keywords**:\n- distributed systems\n- consensus\n\nTrailing prose.\n"
	got := ExtractTags(body)
	want := []string{"distributed_systems", "consensus"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tags = %v, want %v", got, want)
	}
}

func TestExtractTagsMissingSection(t *testing.T) {
	if got := ExtractTags("no keyword block here"); got != nil {
		t.Errorf("tags = %v, want nil", got)
	}
}

func TestQuote(t *testing.T) {
	got := Quote("line one\n\nline two\n")
	want := "> line one\n>\n> line two"
	if got != want {
		t.Errorf("Quote = %q, want %q", got, want)
	}
}
