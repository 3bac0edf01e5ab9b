package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Strategy parses a raw response into a canonical value. Absence of a match
// is a normal outcome, reported through ok=false, never an error.
type Strategy interface {
	Name() string
	Extract(response string) (value string, ok bool)
}

// Initializer is the optional lifecycle of strategies that hold resources,
// such as compiled matchers. Setup must be safe to roll back via Teardown.
type Initializer interface {
	Setup() error
	Teardown() error
}

// BoxedStrategy finds the outermost balanced \boxed{...} in the response
// and returns its trimmed contents. When several top-level matches exist
// the last one is authoritative, since derivations commonly restate the
// boxed value near the end.
type BoxedStrategy struct{}

// Name returns the strategy identifier.
func (BoxedStrategy) Name() string { return "boxed" }

// Extract scans for the last balanced \boxed{...} group.
func (BoxedStrategy) Extract(response string) (string, bool) {
	const marker = `\boxed{`

	var last string
	found := false
	for i := 0; i+len(marker) <= len(response); {
		idx := strings.Index(response[i:], marker)
		if idx < 0 {
			break
		}
		start := i + idx + len(marker)

		depth := 1
		end := -1
		for j := start; j < len(response); j++ {
			switch response[j] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					end = j
				}
			}
			if end >= 0 {
				break
			}
		}
		if end < 0 {
			// Unbalanced tail; nothing further can match.
			break
		}

		if v := strings.TrimSpace(response[start:end]); v != "" {
			last = v
			found = true
		}
		i = end + 1
	}

	return last, found
}

// TagStrategy matches the last occurrence of <tag>...</tag> and returns the
// trimmed inner text. The matcher is compiled in Setup.
type TagStrategy struct {
	Tag string

	re *regexp.Regexp
}

// NewAnswerTagStrategy matches <answer>...</answer> blocks.
func NewAnswerTagStrategy() *TagStrategy {
	return &TagStrategy{Tag: "answer"}
}

// Name returns the strategy identifier.
func (s *TagStrategy) Name() string {
	return "tag_" + strings.TrimSpace(s.Tag)
}

// Setup compiles the tag matcher.
func (s *TagStrategy) Setup() error {
	tag := strings.TrimSpace(s.Tag)
	if tag == "" {
		return fmt.Errorf("extract: tag strategy: empty tag")
	}
	re, err := regexp.Compile(`(?s)<` + regexp.QuoteMeta(tag) + `>(.*?)</` + regexp.QuoteMeta(tag) + `>`)
	if err != nil {
		return fmt.Errorf("extract: tag strategy %q: %w", tag, err)
	}
	s.re = re
	return nil
}

// Teardown releases the compiled matcher.
func (s *TagStrategy) Teardown() error {
	s.re = nil
	return nil
}

// Extract returns the contents of the last matching tag pair.
func (s *TagStrategy) Extract(response string) (string, bool) {
	if s == nil || s.re == nil {
		return "", false
	}
	matches := s.re.FindAllStringSubmatch(response, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		if v := strings.TrimSpace(matches[i][1]); v != "" {
			return v, true
		}
	}
	return "", false
}

// LastNumberStrategy extracts the last number appearing in the response,
// with thousands separators removed.
type LastNumberStrategy struct{}

// Name returns the strategy identifier.
func (LastNumberStrategy) Name() string { return "last_number" }

// Extract scans backwards for the final numeric token.
func (LastNumberStrategy) Extract(response string) (string, bool) {
	s := strings.TrimSpace(response)
	if s == "" {
		return "", false
	}

	start := -1
	end := -1
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' || c == ',' {
			end = i + 1
			start = i
			for start > 0 {
				pc := s[start-1]
				if (pc >= '0' && pc <= '9') || pc == '.' || pc == ',' || pc == '-' {
					start--
					continue
				}
				break
			}
			break
		}
	}
	if start < 0 || end < 0 || start >= end {
		return "", false
	}

	raw := strings.TrimSpace(s[start:end])
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.Trim(raw, ".")
	if raw == "" || raw == "-" {
		return "", false
	}
	return raw, true
}

// CodeFenceStrategy returns the contents of a ``` fenced block, dropping an
// optional language tag on the opening fence.
type CodeFenceStrategy struct{}

// Name returns the strategy identifier.
func (CodeFenceStrategy) Name() string { return "code_fence" }

// Extract strips the outer fence and returns the trimmed body.
func (CodeFenceStrategy) Extract(response string) (string, bool) {
	s := strings.TrimSpace(response)
	if !strings.HasPrefix(s, "```") {
		return "", false
	}

	s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		first := strings.TrimSpace(s[:i])
		if first != "" && !strings.ContainsAny(first, " \t") {
			s = s[i+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// CanonicalAnswer applies the default canonicalization rule used for ground
// truths: unwrap a boxed answer when present, otherwise trim.
func CanonicalAnswer(s string) string {
	if v, ok := (BoxedStrategy{}).Extract(s); ok {
		return v
	}
	return strings.TrimSpace(s)
}
