package note

import (
	"regexp"
	"strings"
)

// taskKeywords marks a note as actionable when any of them appears in the
// raw content. Matching is case-insensitive and runs once, at creation.
var taskKeywords = []string{"todo", "fixme", "meeting", "task", "action item"}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// ClassifyTask reports whether the given content looks like an actionable
// item. It is a pure function over the pre-enrichment content.
func ClassifyTask(content string) bool {
	lower := strings.ToLower(content)
	for _, kw := range taskKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// FindFirstURL returns the first URL-shaped substring in content, or ""
// when none is present.
func FindFirstURL(content string) string {
	return urlPattern.FindString(content)
}
