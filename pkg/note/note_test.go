package note

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbedText(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		snippet  string
		web      string
		expected string
	}{
		{
			name:     "content only",
			content:  "remember the milk",
			expected: "remember the milk",
		},
		{
			name:     "content and snippet",
			content:  "login handler is broken",
			snippet:  "func Login() {}",
			expected: "login handler is broken\nCode Context: func Login() {}",
		},
		{
			name:     "content and web context",
			content:  "see bug report",
			web:      "page text",
			expected: "see bug report\nWeb Context: page text",
		},
		{
			name:     "all parts in order",
			content:  "c",
			snippet:  "s",
			web:      "w",
			expected: "c\nCode Context: s\nWeb Context: w",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EmbedText(tt.content, tt.snippet, tt.web))
		})
	}
}

func TestIngestEmbedText(t *testing.T) {
	got := IngestEmbedText("/tmp/a.go", "package a")
	assert.Equal(t, "[Local File Context from /tmp/a.go]\n\npackage a", got)
}

func TestClassifyTask(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{"TODO: fix login bug", true},
		{"todo buy milk", true},
		{"FIXME handle nil case", true},
		{"Meeting with Sara at 3pm", true},
		{"this is a task for tomorrow", true},
		{"Action Item: follow up with ops", true},
		{"just a plain thought about rivers", false},
		{"", false},
		{"multitasking is overrated", true}, // substring match is deliberate
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyTask(tt.content), "content: %q", tt.content)
	}
}

func TestFindFirstURL(t *testing.T) {
	assert.Equal(t, "https://example.com/bug", FindFirstURL("see https://example.com/bug for details"))
	assert.Equal(t, "http://a.io/x", FindFirstURL("one http://a.io/x two https://b.io/y"))
	assert.Equal(t, "", FindFirstURL("no links here"))
}

func TestHasEmbedding(t *testing.T) {
	n := &Note{}
	assert.False(t, n.HasEmbedding())
	n.Embedding = []float32{0.1, 0.2}
	assert.True(t, n.HasEmbedding())
}
