package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/tobimarks/tobimarks-api/internal/embedding"
	"github.com/tobimarks/tobimarks-api/internal/model"
	"github.com/tobimarks/tobimarks-api/internal/repository"
)

// findEmbedding reads the stored vector of a tag, which ListByUser skips.
func findEmbedding(t *testing.T, db *DB, tagID string) []float32 {
	t.Helper()
	var blob []byte
	if err := db.QueryRowContext(context.Background(),
		`SELECT embedding FROM tags WHERE id = ?`, tagID).Scan(&blob); err != nil {
		t.Fatalf("reading embedding: %v", err)
	}
	v, err := embedding.Decode(blob)
	if err != nil {
		t.Fatalf("decoding embedding: %v", err)
	}
	return v
}

func TestTagRepo_CreateAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "u1")

	red := "#ff0000"
	tag := &model.Tag{UserID: u.ID, Name: "Coffee Shops", Slug: "coffee-shops", Color: &red, Embedding: []float32{0.6, 0.8}}
	if err := db.Tags().Create(ctx, tag); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	createTestTag(t, db, u.ID, "books", "books")
	createTestTag(t, db, createTestUser(t, db, "u2").ID, "hidden", "hidden")

	tags, err := db.Tags().ListByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("ListByUser() returned %d tags, want 2", len(tags))
	}
	if tags[0].Name != "books" || tags[1].Name != "Coffee Shops" {
		t.Errorf("order = [%s %s], want case-insensitive name order", tags[0].Name, tags[1].Name)
	}
	if tags[1].Color == nil || *tags[1].Color != red {
		t.Errorf("Color = %v, want %s", tags[1].Color, red)
	}
	if tags[1].Embedding != nil {
		t.Error("ListByUser() should not load embeddings")
	}

	got := findEmbedding(t, db, tag.ID)
	if len(got) != 2 || got[0] != 0.6 || got[1] != 0.8 {
		t.Errorf("stored embedding = %v", got)
	}

	found, err := db.Tags().FindByID(ctx, tag.ID)
	if err != nil || found == nil {
		t.Fatalf("FindByID() = %v, %v", found, err)
	}
	if found.Slug != "coffee-shops" || len(found.Embedding) != 2 {
		t.Errorf("FindByID() = %+v", found)
	}
}

func TestTagRepo_FindByIDMissing(t *testing.T) {
	db := newTestDB(t)
	got, err := db.Tags().FindByID(context.Background(), "nope")
	if err != nil || got != nil {
		t.Errorf("FindByID(missing) = %v, %v; want nil, nil", got, err)
	}
}

func TestTagRepo_NilEmbeddingStoredAsNull(t *testing.T) {
	db := newTestDB(t)
	tag := createTestTag(t, db, createTestUser(t, db, "u1").ID, "plain", "plain")

	var isNull bool
	if err := db.QueryRowContext(context.Background(),
		`SELECT embedding IS NULL FROM tags WHERE id = ?`, tag.ID).Scan(&isNull); err != nil {
		t.Fatalf("query error = %v", err)
	}
	if !isNull {
		t.Error("nil embedding should be stored as NULL")
	}
}

func TestTagRepo_DuplicateSlug(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "u1")
	createTestTag(t, db, u.ID, "Coffee Shops", "coffee-shops")

	err := db.Tags().Create(ctx, &model.Tag{UserID: u.ID, Name: "coffee shops", Slug: "coffee-shops"})
	if !errors.Is(err, repository.ErrUniqueViolation) {
		t.Fatalf("duplicate Create() error = %v, want ErrUniqueViolation", err)
	}

	// Another user may use the same slug.
	createTestTag(t, db, createTestUser(t, db, "u2").ID, "Coffee Shops", "coffee-shops")
}

func TestTagRepo_Update(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "u1")
	tag := createTestTag(t, db, u.ID, "old", "old")

	tag.Name = "New Name"
	tag.Slug = "new-name"
	tag.Embedding = []float32{1, 0}
	if err := db.Tags().Update(ctx, tag); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	tags, _ := db.Tags().ListByUser(ctx, u.ID)
	if len(tags) != 1 || tags[0].Slug != "new-name" {
		t.Errorf("after Update() tags = %+v", tags)
	}
	if v := findEmbedding(t, db, tag.ID); len(v) != 2 {
		t.Errorf("embedding after Update() = %v", v)
	}

	missing := &model.Tag{ID: "nope", Name: "x", Slug: "x"}
	if err := db.Tags().Update(ctx, missing); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestTagRepo_UpdateSlugConflict(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "u1")
	createTestTag(t, db, u.ID, "taken", "taken")
	tag := createTestTag(t, db, u.ID, "free", "free")

	tag.Slug = "taken"
	if err := db.Tags().Update(context.Background(), tag); !errors.Is(err, repository.ErrUniqueViolation) {
		t.Errorf("Update() error = %v, want ErrUniqueViolation", err)
	}
}

func TestTagRepo_DeleteCascadesAssociations(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "u1")
	b := createTestBookmark(t, db, u.ID, createTestWebsite(t, db, "example.com").ID, "https://example.com")
	tag := createTestTag(t, db, u.ID, "go", "go")
	if err := db.Bookmarks().ReplaceTags(ctx, b.ID, []string{tag.ID}); err != nil {
		t.Fatalf("ReplaceTags() error = %v", err)
	}

	if err := db.Tags().Delete(ctx, tag.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var links int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookmark_tags WHERE tag_id = ?`, tag.ID).Scan(&links); err != nil {
		t.Fatalf("counting links: %v", err)
	}
	if links != 0 {
		t.Errorf("bookmark_tags rows = %d, want 0", links)
	}

	if err := db.Tags().Delete(ctx, tag.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestTagRepo_Ownership(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "u1")
	other := createTestUser(t, db, "u2")
	mine := createTestTag(t, db, u.ID, "mine", "mine")
	theirs := createTestTag(t, db, other.ID, "theirs", "theirs")

	ok, err := db.Tags().ExistsByIDAndUserID(ctx, mine.ID, u.ID)
	if err != nil || !ok {
		t.Errorf("ExistsByIDAndUserID(own) = %v, %v", ok, err)
	}
	ok, err = db.Tags().ExistsByIDAndUserID(ctx, theirs.ID, u.ID)
	if err != nil || ok {
		t.Errorf("ExistsByIDAndUserID(foreign) = %v, %v", ok, err)
	}

	n, err := db.Tags().CountOwned(ctx, u.ID, []string{mine.ID, theirs.ID, "nope"})
	if err != nil {
		t.Fatalf("CountOwned() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountOwned() = %d, want 1", n)
	}

	if n, err := db.Tags().CountOwned(ctx, u.ID, nil); err != nil || n != 0 {
		t.Errorf("CountOwned(nil) = %d, %v; want 0, nil", n, err)
	}
}
