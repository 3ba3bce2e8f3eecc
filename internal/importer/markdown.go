// Package importer bulk-loads Markdown notes into the memory engine. Each
// file becomes one memory; tags come from YAML frontmatter and inline #tags.
package importer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Note is one parsed Markdown file.
type Note struct {
	// Title is the first H1 heading, or empty when the file has none.
	Title string

	// Content is the Markdown body with frontmatter stripped.
	Content string

	// Tags merges frontmatter tags and inline #tags, deduplicated and sorted.
	Tags []string
}

// frontmatter holds the YAML keys the importer understands. Unknown keys are
// ignored.
type frontmatter struct {
	Title string   `yaml:"title"`
	Tags  []string `yaml:"tags"`
}

var (
	inlineTagPattern = regexp.MustCompile(`(?:^|\s)#([\p{L}\p{N}_/-]+)`)
	h1Pattern        = regexp.MustCompile(`(?m)^#\s+(.+)$`)
)

// ParseNote parses one Markdown document.
func ParseNote(raw string) (*Note, error) {
	var fm frontmatter
	body := raw

	if block, rest, ok := splitFrontmatter(raw); ok {
		if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
			return nil, fmt.Errorf("importer: invalid frontmatter: %w", err)
		}
		body = rest
	}

	note := &Note{
		Title:   fm.Title,
		Content: strings.TrimSpace(body),
	}

	if note.Title == "" {
		if m := h1Pattern.FindStringSubmatch(body); m != nil {
			note.Title = strings.TrimSpace(m[1])
		}
	}

	tagSet := make(map[string]bool)
	for _, tag := range fm.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tagSet[strings.ToLower(tag)] = true
		}
	}
	for _, m := range inlineTagPattern.FindAllStringSubmatch(body, -1) {
		tagSet[strings.ToLower(m[1])] = true
	}

	for tag := range tagSet {
		note.Tags = append(note.Tags, tag)
	}
	sort.Strings(note.Tags)

	return note, nil
}

// splitFrontmatter separates a leading "---\n...\n---\n" block from the body
// and reports whether one was found.
func splitFrontmatter(raw string) (block, body string, ok bool) {
	if !strings.HasPrefix(raw, "---\n") {
		return "", raw, false
	}

	rest := raw[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		return "", raw, false
	}
	return rest[:end], rest[end+len("\n---\n"):], true
}
