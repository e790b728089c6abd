package features

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// "On Mon, Jan 2, 2006 at 3:04 PM Jane <jane@example.com> wrote:"
	replyHeader = regexp.MustCompile(`(?i)^on .{3,200} wrote:?$`)
	// Outlook style separators and forwarded blocks.
	originalMessage = regexp.MustCompile(`(?i)^-{2,}\s*(original message|forwarded message)\s*-{2,}$`)
	outlookHeader   = regexp.MustCompile(`(?i)^from:\s.+`)
	subjectPrefix   = regexp.MustCompile(`(?i)^\s*(re|fw|fwd|aw|wg|sv|tr)\s*(\[\d+\])?\s*:\s*`)
	mobileSignature = regexp.MustCompile(`(?i)^sent from my \w+`)
)

// NormalizeSubject strips any chain of reply/forward prefixes and collapses
// whitespace.
func NormalizeSubject(subject string) string {
	for {
		stripped := subjectPrefix.ReplaceAllString(subject, "")
		if stripped == subject {
			break
		}
		subject = stripped
	}
	return strings.Join(strings.Fields(subject), " ")
}

// StripQuoted removes quoted reply text and signature blocks from a body
// excerpt. Everything from the first reply header, original-message
// separator or signature delimiter onward is dropped, as are lines quoted
// with '>'.
func StripQuoted(body string) string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if line == "-- " || trimmed == "--" || trimmed == "__" {
			break
		}
		if replyHeader.MatchString(trimmed) || originalMessage.MatchString(trimmed) || mobileSignature.MatchString(trimmed) {
			break
		}
		// A bare "From: x" line following a blank line starts an inline
		// forwarded or Outlook-quoted header block.
		if outlookHeader.MatchString(trimmed) && i > 0 && strings.TrimSpace(lines[i-1]) == "" {
			break
		}
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// tokenize lower-cases s and splits it into letter/digit runs, dropping
// short tokens, pure numbers and stop words.
func tokenize(s string, stop map[string]struct{}) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < minTokenLen || isNumeric(f) {
			continue
		}
		if _, ok := stop[f]; ok {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// defaultStopWords are common English function words plus mail boilerplate
// that carries no topic.
var defaultStopWords = []string{
	"the", "and", "for", "are", "but", "not", "you", "your", "yours", "all",
	"any", "can", "had", "her", "was", "one", "our", "out", "has", "have",
	"him", "his", "how", "its", "may", "new", "now", "see", "two", "way",
	"who", "did", "get", "got", "let", "she", "too", "use", "with", "this",
	"that", "from", "they", "them", "then", "than", "there", "their", "what",
	"when", "where", "which", "while", "will", "would", "should", "could",
	"about", "into", "over", "just", "also", "been", "were", "more", "most",
	"some", "such", "only", "very", "here", "each", "other", "these", "those",
	"after", "before", "because", "being", "both", "does", "doing", "down",
	"few", "off", "once", "own", "same", "why", "yes", "yet", "via",
	"re", "fwd", "hello", "dear", "thanks", "thank", "regards", "best",
	"please", "email", "mail", "message", "today", "week", "http", "https",
	"www", "com", "html",
}

func buildStopSet(extra []string) map[string]struct{} {
	stop := make(map[string]struct{}, len(defaultStopWords)+len(extra))
	for _, w := range defaultStopWords {
		stop[w] = struct{}{}
	}
	for _, w := range extra {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			stop[w] = struct{}{}
		}
	}
	return stop
}

// IsStopWord reports whether w is in the built-in stop-word list.
func IsStopWord(w string) bool {
	_, ok := builtinStop[strings.ToLower(w)]
	return ok
}

var builtinStop = buildStopSet(nil)
