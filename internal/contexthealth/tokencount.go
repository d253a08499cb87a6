package contexthealth

import (
	"math"
	"regexp"
	"strings"
)

var codeSignals = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^import\b`),
	regexp.MustCompile(`(?m)^export\b`),
	regexp.MustCompile(`(?m)^function\b`),
	regexp.MustCompile(`(?m)^class\b`),
	regexp.MustCompile(`(?m)^(const|let|var)\b`),
	regexp.MustCompile(`(?m)//.*$`),
	regexp.MustCompile(`/\*`),
	regexp.MustCompile(`[{}\[\];]`),
	regexp.MustCompile(`=>`),
}

var jsonLikePattern = regexp.MustCompile(`(?s)^\s*[\{\[].*[\}\]]\s*$`)
var xmlLikePattern = regexp.MustCompile(`<[^>]+>`)

// countTokens is a heuristic character-based token estimator: base
// chars/4, scaled up for code-looking and JSON/XML-looking content,
// plus a whitespace-ratio overhead term.
func countTokens(content string) int {
	if content == "" {
		return 0
	}

	base := float64(len(content)) / 4.0

	if looksLikeCode(content) {
		base /= 0.85
	}
	if looksLikeJSONOrXML(content) {
		base /= 0.75
	}

	wsRatio := whitespaceRatio(content)
	if wsRatio > 0.2 {
		base *= 1 + 0.5*(wsRatio-0.2)
	}

	return int(math.Ceil(base))
}

func looksLikeCode(content string) bool {
	hits := 0
	for _, re := range codeSignals {
		if re.MatchString(content) {
			hits++
			if hits >= 3 {
				return true
			}
		}
	}
	return false
}

func looksLikeJSONOrXML(content string) bool {
	trimmed := strings.TrimSpace(content)
	return jsonLikePattern.MatchString(trimmed) || xmlLikePattern.MatchString(trimmed)
}

func whitespaceRatio(content string) float64 {
	if len(content) == 0 {
		return 0
	}
	ws := 0
	for _, r := range content {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			ws++
		}
	}
	return float64(ws) / float64(len([]rune(content)))
}

// truncateToTokens trims text to approximately max tokens, preferring a
// word boundary, and appends ellipsis if truncation occurred.
func truncateToTokens(text string, max int, ellipsis string) string {
	if countTokens(text) <= max {
		return text
	}

	approxChars := max * 4
	if approxChars >= len(text) {
		approxChars = len(text) - 1
	}
	if approxChars < 0 {
		approxChars = 0
	}

	cut := approxChars
	if idx := strings.LastIndexAny(text[:cut], " \n\t"); idx > 0 {
		cut = idx
	}

	return strings.TrimRight(text[:cut], " \n\t") + ellipsis
}

// splitIntoChunks splits text into pieces no longer than maxChars,
// preferring paragraph breaks, then sentence breaks, then a hard cut.
func splitIntoChunks(text string, maxChars int) []string {
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, p := range paragraphs {
		if len(p) > maxChars {
			flush()
			chunks = append(chunks, splitBySentence(p, maxChars)...)
			continue
		}
		if current.Len()+len(p)+2 > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	flush()

	return chunks
}

var sentenceBoundary = regexp.MustCompile(`([.!?])\s+`)

func splitBySentence(text string, maxChars int) []string {
	sentences := splitKeepingDelimiter(text)
	var chunks []string
	var current strings.Builder

	for _, s := range sentences {
		if current.Len()+len(s)+1 > maxChars {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
		}
		if len(s) > maxChars {
			chunks = append(chunks, hardSplit(s, maxChars)...)
			continue
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(s)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitKeepingDelimiter splits text into sentences on ./!/? followed by
// whitespace, keeping the terminal punctuation attached to each sentence
// (RE2 has no lookbehind, so the boundary regex captures the delimiter
// and this re-attaches it manually).
func splitKeepingDelimiter(text string) []string {
	locs := sentenceBoundary.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}

	var out []string
	prev := 0
	for _, loc := range locs {
		out = append(out, text[prev:loc[1]])
		prev = loc[1]
	}
	if prev < len(text) {
		out = append(out, text[prev:])
	}
	return out
}

func hardSplit(text string, maxChars int) []string {
	var chunks []string
	for len(text) > maxChars {
		chunks = append(chunks, text[:maxChars])
		text = text[maxChars:]
	}
	if len(text) > 0 {
		chunks = append(chunks, text)
	}
	return chunks
}
