package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectNoteKind(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty content", "", NoteKindPlain},
		{"plain string", `"just text"`, NoteKindPlain},
		{"not json", "plain text", NoteKindPlain},
		{"plain object", `{"type":"plain","text":"hello"}`, NoteKindPlain},
		{"todo with items", `{"type":"todo","items":[{"text":"buy milk","done":false}]}`, NoteKindTodo},
		{"todo with empty items", `{"type":"todo","items":[]}`, NoteKindTodo},
		{"todo type without items", `{"type":"todo"}`, NoteKindPlain},
		{"items without todo type", `{"type":"list","items":[{"text":"x","done":true}]}`, NoteKindPlain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectNoteKind([]byte(tt.content)))
		})
	}
}

func TestParsedContent(t *testing.T) {
	note := Note{Content: []byte(`{"type":"todo","items":[{"text":"buy milk","done":true}]}`)}
	content, err := note.ParsedContent()
	require.NoError(t, err)
	assert.Equal(t, "todo", content.Type)
	require.Len(t, content.Items, 1)
	assert.Equal(t, "buy milk", content.Items[0].Text)
	assert.True(t, content.Items[0].Done)
}

func TestIsTodo(t *testing.T) {
	assert.True(t, (&Note{Kind: NoteKindTodo}).IsTodo())
	assert.False(t, (&Note{Kind: NoteKindPlain}).IsTodo())
}
