package services

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machirag/server/models"
)

func newTestPromptStore(t *testing.T) *PromptStore {
	t.Helper()
	return NewPromptStore(filepath.Join(t.TempDir(), "templates.json"))
}

func TestPromptStoreMissingFileIsEmpty(t *testing.T) {
	store := newTestPromptStore(t)
	templates, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, templates)

	byDefault, err := store.Default()
	require.NoError(t, err)
	assert.Nil(t, byDefault)
}

func TestPromptStorePutGetDelete(t *testing.T) {
	store := newTestPromptStore(t)

	require.NoError(t, store.Put(PromptTemplate{
		Name:             "デフォルト",
		SystemPrompt:     "あなたは不動産アドバイザーです。",
		ResponseTemplate: "{{.city}}の物件について回答します。",
	}))
	require.NoError(t, store.Put(PromptTemplate{Name: "簡潔", SystemPrompt: "短く答える。"}))

	templates, err := store.List()
	require.NoError(t, err)
	assert.Len(t, templates, 2)

	byDefault, err := store.Default()
	require.NoError(t, err)
	require.NotNil(t, byDefault)
	assert.Equal(t, "あなたは不動産アドバイザーです。", byDefault.SystemPrompt)

	// Put with an existing name replaces, never duplicates.
	require.NoError(t, store.Put(PromptTemplate{Name: "簡潔", SystemPrompt: "一文で答える。"}))
	templates, err = store.List()
	require.NoError(t, err)
	assert.Len(t, templates, 2)

	require.NoError(t, store.Delete("簡潔"))
	_, err = store.Get("簡潔")
	var validationErr *models.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestPromptStoreRejectsUnnamedTemplate(t *testing.T) {
	store := newTestPromptStore(t)
	var validationErr *models.ValidationError
	require.ErrorAs(t, store.Put(PromptTemplate{SystemPrompt: "名無し"}), &validationErr)
	assert.Equal(t, "name", validationErr.Field)
}

func TestPromptStoreDeleteUnknown(t *testing.T) {
	store := newTestPromptStore(t)
	var validationErr *models.ValidationError
	assert.ErrorAs(t, store.Delete("存在しない"), &validationErr)
}

func TestPromptStoreRender(t *testing.T) {
	store := newTestPromptStore(t)
	require.NoError(t, store.Put(PromptTemplate{
		Name:             "案内",
		ResponseTemplate: "{{.city}}の{{.topic}}についてご案内します。",
	}))

	rendered, err := store.Render("案内", map[string]any{"city": "川越市", "topic": "交通"})
	require.NoError(t, err)
	assert.Equal(t, "川越市の交通についてご案内します。", rendered)
}
