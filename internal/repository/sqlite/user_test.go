package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tobimarks/tobimarks-api/internal/model"
	"github.com/tobimarks/tobimarks-api/internal/repository"
)

func TestUserRepo_CreateAndFind(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	avatar := "https://lh3.googleusercontent.com/a/pic"
	u := &model.User{
		GoogleID:    "google-sub-1",
		Email:       "ada@example.com",
		DisplayName: "Ada",
		AvatarURL:   &avatar,
	}
	if err := db.Users().Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if u.ID == "" {
		t.Fatal("Create() should set ID")
	}
	if !u.IsActive {
		t.Error("new users should be active")
	}

	byID, err := db.Users().FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if byID == nil || byID.Email != "ada@example.com" {
		t.Fatalf("FindByID() = %+v", byID)
	}
	if byID.AvatarURL == nil || *byID.AvatarURL != avatar {
		t.Errorf("AvatarURL = %v, want %q", byID.AvatarURL, avatar)
	}
	if byID.LastLoginAt != nil {
		t.Errorf("LastLoginAt = %v, want nil", byID.LastLoginAt)
	}

	byGoogle, err := db.Users().FindByGoogleID(ctx, "google-sub-1")
	if err != nil {
		t.Fatalf("FindByGoogleID() error = %v", err)
	}
	if byGoogle == nil || byGoogle.ID != u.ID {
		t.Errorf("FindByGoogleID() = %+v, want id %s", byGoogle, u.ID)
	}
}

func TestUserRepo_FindMissing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u, err := db.Users().FindByID(ctx, "nope")
	if err != nil || u != nil {
		t.Errorf("FindByID(missing) = %v, %v; want nil, nil", u, err)
	}
	u, err = db.Users().FindByGoogleID(ctx, "nope")
	if err != nil || u != nil {
		t.Errorf("FindByGoogleID(missing) = %v, %v; want nil, nil", u, err)
	}
}

func TestUserRepo_DuplicateGoogleID(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "same-sub")

	err := db.Users().Create(context.Background(), &model.User{
		GoogleID: "same-sub", Email: "other@example.com", DisplayName: "Other",
	})
	if !errors.Is(err, repository.ErrUniqueViolation) {
		t.Fatalf("Create() error = %v, want ErrUniqueViolation", err)
	}
}

func TestUserRepo_TouchLogin(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "sub")

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := db.Users().TouchLogin(ctx, u.ID, at); err != nil {
		t.Fatalf("TouchLogin() error = %v", err)
	}

	got, err := db.Users().FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.LastLoginAt == nil || !got.LastLoginAt.Equal(at) {
		t.Errorf("LastLoginAt = %v, want %v", got.LastLoginAt, at)
	}
}
