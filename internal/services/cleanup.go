package services

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// FallbackErrorText replaces the reply whenever the request fails.
	FallbackErrorText = "Sorry, there was an error. Please try again."
	// EmptyReplyText replaces a reply that is missing or blank.
	EmptyReplyText = "Unable to generate response."

	ellipsis = "..."
)

var (
	starEmphasisRe  = regexp.MustCompile(`(^|[^\pL\pN*])\*{1,3}([^*\s](?:[^*\n]*[^*\s])?)\*{1,3}`)
	underEmphasisRe = regexp.MustCompile(`(^|[^\pL\pN_])_([^_\s](?:[^_\n]*[^_\s])?)_($|[^\pL\pN_])`)
	markerRunRe     = regexp.MustCompile("\\*{2,}|_{2,}|`+")
	linePrefixRe    = regexp.MustCompile(`^[ \t]*(?:(?:#{1,6}|[-•+*]|\d+[.)])[ \t]+)+`)
	spaceRunRe      = regexp.MustCompile(`[ \t]+`)
	spaceColonRe    = regexp.MustCompile(`[ \t]+:`)
	colonLetterRe   = regexp.MustCompile(`:(\pL)`)
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
)

// maxCleanPasses bounds the fixpoint loop in CleanReply.
const maxCleanPasses = 8

// CleanReply strips markdown artifacts so a reply reads well as plain text.
// Passes repeat until the text stops changing, so CleanReply(CleanReply(s)) == CleanReply(s).
func CleanReply(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	for i := 0; i < maxCleanPasses; i++ {
		next := cleanPass(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func cleanPass(text string) string {
	// Lone asterisks (2*3) and intraword underscores (snake_case) are not emphasis.
	text = starEmphasisRe.ReplaceAllString(text, "$1$2")
	text = underEmphasisRe.ReplaceAllString(text, "$1$2$3")
	text = markerRunRe.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = linePrefixRe.ReplaceAllString(line, "")
		line = spaceRunRe.ReplaceAllString(line, " ")
		line = spaceColonRe.ReplaceAllString(line, ":")
		line = colonLetterRe.ReplaceAllString(line, ": $1")
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// TruncateReply cuts text to max runes and appends an ellipsis when it is longer.
func TruncateReply(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + ellipsis
}

// ReplyProcessor turns raw model output into the text stored as the bot message.
type ReplyProcessor struct {
	Markdown bool // pass replies through untouched for markdown rendering
	MaxChars int  // plain mode only; 0 disables truncation
}

func (p ReplyProcessor) Process(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return EmptyReplyText
	}
	if p.Markdown {
		return raw
	}

	cleaned := CleanReply(raw)
	if cleaned == "" {
		return EmptyReplyText
	}
	return TruncateReply(cleaned, p.MaxChars)
}
