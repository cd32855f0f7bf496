package textmatch

import (
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// KeywordSet finds which of a fixed list of keywords occur as substrings of a
// text, case-insensitively, in a single pass.
type KeywordSet struct {
	keywords []string

	mu      sync.Mutex // ahocorasick.Matcher keeps per-call state
	matcher *ahocorasick.Matcher
}

// NewKeywordSet builds a matcher over keywords. Blank and repeated keywords are dropped.
func NewKeywordSet(keywords []string) *KeywordSet {
	seen := make(map[string]bool, len(keywords))
	var kws []string
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		kws = append(kws, kw)
	}

	ks := &KeywordSet{keywords: kws}
	if len(kws) > 0 {
		ks.matcher = ahocorasick.NewStringMatcher(kws)
	}
	return ks
}

// Len is the number of distinct keywords in the set.
func (k *KeywordSet) Len() int {
	return len(k.keywords)
}

// Keywords returns the normalized keyword list.
func (k *KeywordSet) Keywords() []string {
	return append([]string(nil), k.keywords...)
}

// Found returns the keywords that occur in text, in keyword-list order.
func (k *KeywordSet) Found(text string) []string {
	hits := k.hits(text)
	if len(hits) == 0 {
		return nil
	}
	present := make([]bool, len(k.keywords))
	for _, i := range hits {
		if i >= 0 && i < len(present) {
			present[i] = true
		}
	}
	var out []string
	for i, ok := range present {
		if ok {
			out = append(out, k.keywords[i])
		}
	}
	return out
}

// Count returns how many distinct keywords occur in text.
func (k *KeywordSet) Count(text string) int {
	return len(k.Found(text))
}

// Any reports whether at least one keyword occurs in text.
func (k *KeywordSet) Any(text string) bool {
	return len(k.hits(text)) > 0
}

func (k *KeywordSet) hits(text string) []int {
	if k == nil || k.matcher == nil || text == "" {
		return nil
	}
	lower := []byte(strings.ToLower(text))

	k.mu.Lock()
	defer k.mu.Unlock()
	return k.matcher.Match(lower)
}
