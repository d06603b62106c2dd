// Package markdown splits deal memos into titled sections for detail views.
package markdown

import "strings"

// Section is one titled slice of a memo. Preamble text before the first
// heading is kept under an empty title.
type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Sections splits a memo on level-2 (##) headings in a single pass,
// preserving order. Headings inside fenced code blocks do not start
// sections. Deeper headings (###) stay in the surrounding body.
func Sections(memo string) []Section {
	var sections []Section
	var current Section
	var body []string
	inFence := false

	flush := func() {
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		if current.Title != "" || current.Body != "" {
			sections = append(sections, current)
		}
		body = body[:0]
	}

	for _, line := range strings.Split(memo, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			body = append(body, line)
			continue
		}

		if !inFence && strings.HasPrefix(trimmed, "## ") {
			flush()
			current = Section{Title: strings.TrimSpace(strings.TrimPrefix(trimmed, "## "))}
			continue
		}

		body = append(body, line)
	}
	flush()

	return sections
}

// Find returns the body of the first section with the given title,
// case-insensitively, and whether it was found.
func Find(sections []Section, title string) (string, bool) {
	for _, s := range sections {
		if strings.EqualFold(s.Title, title) {
			return s.Body, true
		}
	}
	return "", false
}
