package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNote_Frontmatter(t *testing.T) {
	raw := `---
title: Espresso Ratios
tags: [coffee, brewing]
---
# Espresso Ratios

A 1:2 ratio works for most medium roasts.
`

	note, err := ParseNote(raw)
	require.NoError(t, err)

	assert.Equal(t, "Espresso Ratios", note.Title)
	assert.Equal(t, []string{"brewing", "coffee"}, note.Tags)
	assert.Contains(t, note.Content, "1:2 ratio")
	assert.NotContains(t, note.Content, "title:")
}

func TestParseNote_InlineTags(t *testing.T) {
	note, err := ParseNote("Remember to water the #plants every #sunday-morning")
	require.NoError(t, err)

	assert.Equal(t, []string{"plants", "sunday-morning"}, note.Tags)
}

func TestParseNote_MergedTagsDeduplicated(t *testing.T) {
	raw := `---
tags: [Coffee]
---
Notes about #coffee grinders.
`

	note, err := ParseNote(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"coffee"}, note.Tags)
}

func TestParseNote_TitleFromHeading(t *testing.T) {
	note, err := ParseNote("# Standup Notes\n\nShip the release on Friday.")
	require.NoError(t, err)

	assert.Equal(t, "Standup Notes", note.Title)
}

func TestParseNote_NoFrontmatter(t *testing.T) {
	note, err := ParseNote("Just a plain note.")
	require.NoError(t, err)

	assert.Empty(t, note.Title)
	assert.Empty(t, note.Tags)
	assert.Equal(t, "Just a plain note.", note.Content)
}

func TestParseNote_InvalidFrontmatter(t *testing.T) {
	_, err := ParseNote("---\n: [broken\n---\nbody")
	assert.Error(t, err)
}

func TestParseNote_UnterminatedFrontmatter(t *testing.T) {
	// A lone opening fence is treated as content, not frontmatter.
	note, err := ParseNote("---\ntitle: dangling")
	require.NoError(t, err)
	assert.Contains(t, note.Content, "title: dangling")
}
