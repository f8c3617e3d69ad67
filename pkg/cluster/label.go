package cluster

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z]{3,}`)

// stopWords are dropped before term-frequency counting so labels come from
// topical vocabulary rather than filler.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "this": true,
	"that": true, "with": true, "have": true, "from": true, "they": true,
	"will": true, "would": true, "there": true, "their": true, "what": true,
	"about": true, "which": true, "when": true, "been": true, "were": true,
	"into": true, "more": true, "some": true, "than": true, "then": true,
	"them": true, "these": true, "your": true, "just": true, "like": true,
	"todo": true, "fixme": true, "http": true, "https": true, "com": true,
	"www": true,
}

// Label derives a cluster name from its members' content: the two most
// frequent non-stop-word alphabetic tokens, title-cased and joined. A
// cluster with no surviving tokens falls back to "Topic <index>" using the
// 0-based cluster index.
func Label(contents []string, index int) string {
	freq := make(map[string]int)
	for _, content := range contents {
		for _, tok := range tokenPattern.FindAllString(strings.ToLower(content), -1) {
			if stopWords[tok] {
				continue
			}
			freq[tok]++
		}
	}

	if len(freq) == 0 {
		return fmt.Sprintf("Topic %d", index)
	}

	tokens := make([]string, 0, len(freq))
	for tok := range freq {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if freq[tokens[i]] != freq[tokens[j]] {
			return freq[tokens[i]] > freq[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})

	if len(tokens) > 2 {
		tokens = tokens[:2]
	}
	for i, tok := range tokens {
		tokens[i] = strings.ToUpper(tok[:1]) + tok[1:]
	}
	return strings.Join(tokens, " ")
}
