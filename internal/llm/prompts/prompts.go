// Package prompts renders the feedback drafting prompts. Each tone has its
// own embedded template.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var templateFS embed.FS

var teacherNotesRegex = regexp.MustCompile(`(?i)</?\s*teacher-notes\b[^>]*>`)

const maxCommentRunes = 4000

// Tone selects the feedback template.
type Tone string

const (
	ToneStrict      Tone = "strict"
	ToneNeutral     Tone = "neutral"
	ToneEncouraging Tone = "encouraging"
)

var tones = []Tone{ToneStrict, ToneNeutral, ToneEncouraging}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[Tone]*template.Template
)

// IsValidTone checks if a tone name is known.
func IsValidTone(s string) bool {
	for _, t := range tones {
		if string(t) == s {
			return true
		}
	}
	return false
}

// Line is one rubric leaf with the points the student received.
type Line struct {
	Label  string
	Points float64
	Cap    float64
}

// FeedbackData holds template data for feedback prompts.
type FeedbackData struct {
	Evaluation string
	Subject    string
	Rubric     string
	Total      float64
	MaxPoints  float64
	Lines      []Line
	Comments   string
}

func load() error {
	loadOnce.Do(func() {
		templates = make(map[Tone]*template.Template, len(tones))
		for _, t := range tones {
			file := "templates/feedback_" + string(t) + ".txt"
			content, err := templateFS.ReadFile(file)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", file, err)
				return
			}
			tmpl, err := template.New(string(t)).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", file, err)
				return
			}
			templates[t] = tmpl
		}
	})
	return loadErr
}

// BuildFeedbackPrompt renders the system prompt for tone.
func BuildFeedbackPrompt(tone Tone, data FeedbackData) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	tmpl, ok := templates[tone]
	if !ok {
		return "", fmt.Errorf("invalid tone: %s", tone)
	}
	data.Comments = sanitizeComments(data.Comments)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tone, err)
	}
	return buf.String(), nil
}

// sanitizeComments strips delimiter tags so notes cannot close their block,
// and truncates very long notes.
func sanitizeComments(s string) string {
	s = strings.TrimSpace(teacherNotesRegex.ReplaceAllString(s, ""))
	if utf8.RuneCountInString(s) > maxCommentRunes {
		s = string([]rune(s)[:maxCommentRunes]) + "\n[truncated]"
	}
	return s
}
