package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobimarks/tobimarks-api/internal/apperror"
	"github.com/tobimarks/tobimarks-api/internal/auth"
	"github.com/tobimarks/tobimarks-api/internal/model"
)

func newTestTagService(emb *fakeEmbedder) (*TagService, *memStore) {
	store := newMemStore()
	if emb == nil {
		return NewTagService(store, nil, testLogger()), store
	}
	return NewTagService(store, emb, testLogger()), store
}

func mustCreateTag(t *testing.T, svc *TagService, p auth.Principal, name string) *model.Tag {
	t.Helper()
	tag, err := svc.Create(context.Background(), p, TagInput{Name: &name})
	require.NoError(t, err)
	return tag
}

// ===== Create =====

func TestTagCreate_SlugAndEmbedding(t *testing.T) {
	emb := &fakeEmbedder{}
	svc, store := newTestTagService(emb)

	tag, err := svc.Create(context.Background(), alice, TagInput{Name: strPtr(" Coffee Shops "), Color: strPtr("#aa0000")})
	require.NoError(t, err)

	assert.Equal(t, "Coffee Shops", tag.Name)
	assert.Equal(t, "coffee-shops", tag.Slug)
	assert.Regexp(t, regexp.MustCompile(`^[a-z0-9-]+$`), tag.Slug)
	assert.Equal(t, "#aa0000", *tag.Color)
	assert.Equal(t, []float32{1, 0}, store.tags[tag.ID].Embedding)
	assert.Equal(t, []string{"Coffee Shops"}, emb.texts)
}

func TestTagCreate_WithoutEmbedder(t *testing.T) {
	svc, store := newTestTagService(nil)
	tag := mustCreateTag(t, svc, alice, "books")
	assert.Nil(t, store.tags[tag.ID].Embedding)
}

func TestTagCreate_Duplicate(t *testing.T) {
	svc, _ := newTestTagService(nil)
	mustCreateTag(t, svc, alice, "Coffee Shops")

	_, err := svc.Create(context.Background(), alice, TagInput{Name: strPtr("coffee   shops!")})
	assert.True(t, apperror.HasCode(err, CodeTagAlreadyExists))
	assert.ErrorIs(t, err, apperror.ErrConflict)

	// Slugs are unique per user only.
	mustCreateTag(t, svc, auth.Principal{UserID: "bob"}, "Coffee Shops")
}

func TestTagCreate_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		emb      *fakeEmbedder
		in       TagInput
		wantCode string
	}{
		{"no name", nil, TagInput{}, apperror.CodeValidation},
		{"no letters", nil, TagInput{Name: strPtr("!!!")}, apperror.CodeValidation},
		{"embedder down", &fakeEmbedder{err: errors.New("503")}, TagInput{Name: strPtr("go")}, CodeEmbeddingFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestTagService(tt.emb)
			_, err := svc.Create(context.Background(), alice, tt.in)
			assert.Equal(t, tt.wantCode, apperror.CodeOf(err))
			assert.Empty(t, store.tags)
		})
	}
}

func TestTagCreate_EmbedderFailureIsUpstream(t *testing.T) {
	svc, _ := newTestTagService(&fakeEmbedder{err: errors.New("quota")})
	_, err := svc.Create(context.Background(), alice, TagInput{Name: strPtr("go")})
	assert.ErrorIs(t, err, apperror.ErrUpstream)
}

func TestTagCreate_InsertErrorPropagates(t *testing.T) {
	svc, store := newTestTagService(nil)
	dbErr := errors.New("database is locked")
	store.createTagErr = dbErr

	_, err := svc.Create(context.Background(), alice, TagInput{Name: strPtr("go")})
	assert.ErrorIs(t, err, dbErr)
	assert.Empty(t, apperror.CodeOf(err))
}

// ===== List =====

func TestTagList(t *testing.T) {
	svc, _ := newTestTagService(nil)
	mustCreateTag(t, svc, alice, "zeta")
	mustCreateTag(t, svc, alice, "alpha")
	mustCreateTag(t, svc, auth.Principal{UserID: "bob"}, "hidden")

	tags, err := svc.List(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "alpha", tags[0].Name)
}

// ===== Update =====

func TestTagUpdate_RegeneratesSlugAndEmbedding(t *testing.T) {
	emb := &fakeEmbedder{}
	svc, store := newTestTagService(emb)
	tag := mustCreateTag(t, svc, alice, "old name")
	store.tags[tag.ID].Embedding = []float32{0, 1}

	got, err := svc.Update(context.Background(), alice, tag.ID, TagInput{Name: strPtr("Reading List")})
	require.NoError(t, err)
	assert.Equal(t, "reading-list", got.Slug)
	assert.Equal(t, []float32{1, 0}, store.tags[tag.ID].Embedding)
	assert.Equal(t, []string{"old name", "Reading List"}, emb.texts)
}

func TestTagUpdate_ColourOnlyKeepsName(t *testing.T) {
	emb := &fakeEmbedder{}
	svc, store := newTestTagService(emb)
	tag := mustCreateTag(t, svc, alice, "go")

	got, err := svc.Update(context.Background(), alice, tag.ID, TagInput{Color: strPtr("#00ff00")})
	require.NoError(t, err)
	assert.Equal(t, "go", got.Slug)
	assert.Equal(t, "#00ff00", *store.tags[tag.ID].Color)
	assert.Len(t, emb.texts, 1, "embedding is only regenerated on rename")
}

func TestTagUpdate_NotOwned(t *testing.T) {
	svc, store := newTestTagService(nil)
	tag := mustCreateTag(t, svc, auth.Principal{UserID: "bob"}, "bobs")

	for _, id := range []string{tag.ID, "missing"} {
		_, err := svc.Update(context.Background(), alice, id, TagInput{Name: strPtr("mine now")})
		assert.True(t, apperror.HasCode(err, CodeTagNotFound), "id %s: %v", id, err)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	}
	assert.Equal(t, "bobs", store.tags[tag.ID].Slug)
}

func TestTagUpdate_SlugConflict(t *testing.T) {
	svc, _ := newTestTagService(nil)
	mustCreateTag(t, svc, alice, "taken")
	tag := mustCreateTag(t, svc, alice, "free")

	_, err := svc.Update(context.Background(), alice, tag.ID, TagInput{Name: strPtr("Taken")})
	assert.True(t, apperror.HasCode(err, CodeTagAlreadyExists))
}

// ===== Delete =====

func TestTagDelete(t *testing.T) {
	svc, store := newTestTagService(nil)
	ctx := context.Background()
	tag := mustCreateTag(t, svc, alice, "go")
	foreign := mustCreateTag(t, svc, auth.Principal{UserID: "bob"}, "go")

	err := svc.Delete(ctx, alice, foreign.ID)
	assert.True(t, apperror.HasCode(err, CodeTagNotFound))
	assert.Contains(t, store.tags, foreign.ID)

	require.NoError(t, svc.Delete(ctx, alice, tag.ID))
	assert.NotContains(t, store.tags, tag.ID)

	err = svc.Delete(ctx, alice, tag.ID)
	assert.True(t, apperror.HasCode(err, CodeTagNotFound), "the service still reports absence")
}
