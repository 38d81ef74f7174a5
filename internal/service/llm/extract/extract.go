// Package extract normalizes the model's structured streaming output into
// plain chapter text.
//
// Chapter generation asks the model for one JSON object:
//
//	{"content": "...chapter text...", "summary": "...", "options": [...]}
//
// While the response is still streaming, the accumulated raw buffer is an
// incomplete JSON fragment. Content pulls the chapter text out of that
// fragment with a regular expression so deltas can be forwarded long before
// the document is parseable. Parse handles the finished document.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf16"
)

// contentPattern matches the content field's string value up to the last
// complete escape sequence, tolerating an unterminated string.
var contentPattern = regexp.MustCompile(`"content"\s*:\s*"((?:[^"\\]|\\.)*)`)

// Content extracts the plain-text content field from a possibly incomplete
// JSON fragment. Returns "" when the field has not appeared yet.
//
// The result grows monotonically as the fragment grows, which is what lets
// callers compute deltas against the previous extraction.
func Content(fragment string) string {
	m := contentPattern.FindStringSubmatch(fragment)
	if m == nil {
		return ""
	}
	return unescape(m[1])
}

// unescape decodes JSON string escapes in a single pass, matching what the
// final Parse of the complete document will produce. A \uXXXX escape that is
// still incomplete at the end of the fragment is held back entirely; emitting
// a partial decode now and a different one later would break monotonicity.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '"':
			b.WriteByte('"')
		case '/':
			b.WriteByte('/')
		case '\\':
			b.WriteByte('\\')
		case 'u':
			r, size, incomplete, ok := decodeUnicodeEscape(s[i:])
			if incomplete {
				return b.String()
			}
			if !ok {
				b.WriteByte(s[i])
				b.WriteByte(s[i+1])
				break
			}
			b.WriteRune(r)
			i += size - 1
			continue
		default:
			b.WriteByte(s[i])
			b.WriteByte(s[i+1])
		}
		i++
	}
	return b.String()
}

// decodeUnicodeEscape decodes a \uXXXX escape at the start of s, consuming a
// following low surrogate escape when the first names a high surrogate. size
// is the byte length consumed. incomplete reports that the fragment ended
// mid-escape, so nothing can be emitted yet; !ok with !incomplete means the
// hex digits are malformed and the escape should pass through verbatim.
// Unpaired surrogates decode to U+FFFD one escape at a time, exactly as
// encoding/json does for the finished document.
func decodeUnicodeEscape(s string) (r rune, size int, incomplete, ok bool) {
	if len(s) < 6 {
		return 0, 0, true, false
	}
	r1, valid := parseHex4(s[2:6])
	if !valid {
		return 0, 0, false, false
	}
	if !utf16.IsSurrogate(r1) {
		return r1, 6, false, true
	}
	if r1 >= 0xDC00 {
		// Low surrogate with no preceding high surrogate.
		return unicode.ReplacementChar, 6, false, true
	}
	if len(s) >= 7 && s[6] != '\\' {
		return unicode.ReplacementChar, 6, false, true
	}
	if len(s) >= 8 && s[7] != 'u' {
		return unicode.ReplacementChar, 6, false, true
	}
	if len(s) < 12 {
		return 0, 0, true, false
	}
	r2, valid := parseHex4(s[8:12])
	if !valid || r2 < 0xDC00 || r2 > 0xDFFF {
		return unicode.ReplacementChar, 6, false, true
	}
	return utf16.DecodeRune(r1, r2), 12, false, true
}

func parseHex4(s string) (rune, bool) {
	var r rune
	for i := 0; i < 4; i++ {
		c := s[i]
		switch {
		case '0' <= c && c <= '9':
			r = r<<4 | rune(c-'0')
		case 'a' <= c && c <= 'f':
			r = r<<4 | rune(c-'a'+10)
		case 'A' <= c && c <= 'F':
			r = r<<4 | rune(c-'A'+10)
		default:
			return 0, false
		}
	}
	return r, true
}

// Option is a branching option as the model emits it.
type Option struct {
	Text          string             `json:"text"`
	ImpactHint    string             `json:"impact_hint"`
	Tags          map[string]string  `json:"tags"`
	WeightFactors map[string]float64 `json:"weight_factors"`
}

// Result is the complete chapter payload.
type Result struct {
	Content string   `json:"content"`
	Summary string   `json:"summary"`
	Options []Option `json:"options"`
}

// Parse decodes the finished response document. The model occasionally wraps
// the JSON in a markdown fence; that wrapper is stripped before decoding.
func Parse(document string) (*Result, error) {
	trimmed := strings.TrimSpace(document)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var result Result
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		return nil, fmt.Errorf("decode chapter document: %w", err)
	}

	if result.Content == "" {
		return nil, fmt.Errorf("chapter document has empty content")
	}

	return &result, nil
}
