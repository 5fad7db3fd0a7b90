// Package sanitize turns raw generated text into speakable text. It is the
// hard gate between the text generator and synthesis: persona name prefixes
// and stage directions must never reach a voice.
package sanitize

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/types"
)

var (
	stageDirections = regexp.MustCompile(`\*[^*]*\*`)
	cueBrackets     = regexp.MustCompile(`\[[^\]]*\]`)
	multiSpace      = regexp.MustCompile(`\s+`)
)

// Sanitizer strips persona-name prefixes and stage directions from
// generated text before it is voiced.
type Sanitizer struct {
	namePrefix *regexp.Regexp
	logger     *zap.Logger
}

// New builds a sanitizer aware of every persona's display name. Prefixes
// like "Sarah Johnson:" are matched case-insensitively at the start of the
// text.
func New(personas []types.Persona, logger *zap.Logger) *Sanitizer {
	names := make([]string, 0, len(personas))
	for _, p := range personas {
		names = append(names, regexp.QuoteMeta(p.DisplayName))
	}
	pattern := `(?i)^\s*(?:` + strings.Join(names, "|") + `)\s*:\s*`

	return &Sanitizer{
		namePrefix: regexp.MustCompile(pattern),
		logger:     logger.With(zap.String("component", "sanitize")),
	}
}

// Clean applies the sanitation rules in order and returns the speakable
// text. An empty result yields EMPTY_AFTER_SANITIZE.
func (s *Sanitizer) Clean(text string) (string, error) {
	original := text

	nameStripped := false
	for {
		stripped := s.namePrefix.ReplaceAllString(text, "")
		if stripped == text {
			break
		}
		text = stripped
		nameStripped = true
	}

	cueStripped := false
	if stageDirections.MatchString(text) || cueBrackets.MatchString(text) {
		text = stageDirections.ReplaceAllString(text, " ")
		text = cueBrackets.ReplaceAllString(text, " ")
		cueStripped = true
	}

	text = strings.TrimSpace(multiSpace.ReplaceAllString(text, " "))

	if nameStripped || cueStripped {
		s.logger.Info("sanitized generated text",
			zap.Bool("name_stripped", nameStripped),
			zap.Bool("cue_stripped", cueStripped),
			zap.Int("original_len", len(original)),
			zap.Int("clean_len", len(text)),
		)
	}

	if text == "" {
		return "", types.NewError(types.ErrEmptyAfterSanitize, "nothing speakable left after sanitation")
	}
	return text, nil
}
