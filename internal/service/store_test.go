package service

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/tobimarks/tobimarks-api/internal/apperror"
	"github.com/tobimarks/tobimarks-api/internal/auth"
	"github.com/tobimarks/tobimarks-api/internal/metadata"
	"github.com/tobimarks/tobimarks-api/internal/model"
	"github.com/tobimarks/tobimarks-api/internal/repository"
)

// ===== IN-MEMORY STORE =====
//
// memStore implements Store over maps. Units of work write straight into
// the maps; commits and rollbacks are only counted, so tests assert on
// those counters rather than on discarded writes.

type memStore struct {
	seq       int
	users     map[string]*model.User
	websites  map[string]*model.Website
	bookmarks map[string]*model.Bookmark
	order     []string // bookmark ids in insertion order
	tags      map[string]*model.Tag
	links     map[string][]string
	tokens    map[string]*model.RefreshToken

	begins, commits, rollbacks int

	createBookmarkErr error
	createTagErr      error
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[string]*model.User{},
		websites:  map[string]*model.Website{},
		bookmarks: map[string]*model.Bookmark{},
		tags:      map[string]*model.Tag{},
		links:     map[string][]string{},
		tokens:    map[string]*model.RefreshToken{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) Users() repository.UserRepository       { return memUsers{s} }
func (s *memStore) Websites() repository.WebsiteRepository { return memWebsites{s} }
func (s *memStore) Bookmarks() repository.BookmarkRepository {
	return memBookmarks{s}
}
func (s *memStore) Tags() repository.TagRepository { return memTags{s} }
func (s *memStore) RefreshTokens() repository.RefreshTokenRepository {
	return memTokens{s}
}

func (s *memStore) NewUnitOfWork() repository.UnitOfWork { return &memUoW{memStore: s} }

type memUoW struct {
	*memStore
}

func (u *memUoW) Begin(context.Context) error { u.begins++; return nil }
func (u *memUoW) Commit() error               { u.commits++; return nil }
func (u *memUoW) Rollback() error             { u.rollbacks++; return nil }

var uniqueErr = &repository.UniqueConstraintError{Detail: "fake"}

// ----- users -----

type memUsers struct{ s *memStore }

func (r memUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := r.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r memUsers) FindByGoogleID(_ context.Context, googleID string) (*model.User, error) {
	for _, u := range r.s.users {
		if u.GoogleID == googleID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memUsers) Create(_ context.Context, user *model.User) error {
	for _, u := range r.s.users {
		if u.GoogleID == user.GoogleID {
			return uniqueErr
		}
	}
	user.ID = r.s.nextID("user")
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r memUsers) TouchLogin(_ context.Context, id string, at time.Time) error {
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

// ----- websites -----

type memWebsites struct{ s *memStore }

func (r memWebsites) FindByDomain(_ context.Context, domain string) (*model.Website, error) {
	for _, w := range r.s.websites {
		if w.Domain == domain {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memWebsites) Create(_ context.Context, website *model.Website) error {
	for _, w := range r.s.websites {
		if w.Domain == website.Domain {
			return uniqueErr
		}
	}
	website.ID = r.s.nextID("site")
	cp := *website
	r.s.websites[website.ID] = &cp
	return nil
}

func (r memWebsites) IncrementBookmarkCount(_ context.Context, id string) error {
	w, ok := r.s.websites[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.BookmarkCount++
	return nil
}

// ----- bookmarks -----

type memBookmarks struct{ s *memStore }

func (r memBookmarks) live(id, userID string) (*model.Bookmark, bool) {
	b, ok := r.s.bookmarks[id]
	if !ok || b.DeletedAt != nil || (userID != "" && b.UserID != userID) {
		return nil, false
	}
	return b, true
}

func (r memBookmarks) Create(_ context.Context, b *model.Bookmark) error {
	if r.s.createBookmarkErr != nil {
		return r.s.createBookmarkErr
	}
	for _, existing := range r.s.bookmarks {
		if existing.DeletedAt == nil && existing.UserID == b.UserID && existing.URL == b.URL {
			return uniqueErr
		}
	}
	b.ID = r.s.nextID("bm")
	cp := *b
	r.s.bookmarks[b.ID] = &cp
	r.s.order = append(r.s.order, b.ID)
	return nil
}

func (r memBookmarks) FindByID(_ context.Context, id string) (*model.Bookmark, error) {
	if b, ok := r.live(id, ""); ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (r memBookmarks) ListByUser(_ context.Context, userID string, opts repository.ListOptions) ([]model.BookmarkListItem, int, error) {
	var all []model.BookmarkListItem
	for _, id := range slices.Backward(r.s.order) {
		b, ok := r.live(id, userID)
		if !ok {
			continue
		}
		item := model.BookmarkListItem{ID: b.ID, URL: b.URL, Title: b.Title, IsFavorite: b.IsFavorite, Tags: []model.TagSummary{}}
		if w, ok := r.s.websites[b.WebsiteID]; ok {
			item.Domain = w.Domain
			item.FaviconURL = w.FaviconURL
		}
		for _, tagID := range r.s.links[b.ID] {
			item.Tags = append(item.Tags, r.s.tags[tagID].Summary())
		}
		all = append(all, item)
	}

	total := len(all)
	start := min(opts.Offset, total)
	end := min(start+opts.Limit, total)
	return append([]model.BookmarkListItem{}, all[start:end]...), total, nil
}

func (r memBookmarks) ExistsByIDAndUserID(_ context.Context, id, userID string) (bool, error) {
	_, ok := r.live(id, userID)
	return ok, nil
}

func (r memBookmarks) SoftDelete(_ context.Context, id string) error {
	b, ok := r.live(id, "")
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	b.DeletedAt = &now
	delete(r.s.links, id)
	return nil
}

func (r memBookmarks) UpdateFavoriteStatus(_ context.Context, id string, isFavorite bool) error {
	b, ok := r.live(id, "")
	if !ok {
		return repository.ErrNotFound
	}
	b.IsFavorite = isFavorite
	return nil
}

func (r memBookmarks) UpdateTitle(_ context.Context, id, title string) error {
	b, ok := r.live(id, "")
	if !ok {
		return repository.ErrNotFound
	}
	b.Title = &title
	return nil
}

func (r memBookmarks) ReplaceTags(_ context.Context, bookmarkID string, tagIDs []string) error {
	r.s.links[bookmarkID] = append([]string(nil), tagIDs...)
	return nil
}

// ----- tags -----

type memTags struct{ s *memStore }

func (r memTags) ListByUser(_ context.Context, userID string) ([]model.Tag, error) {
	out := []model.Tag{}
	for _, t := range r.s.tags {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	slices.SortFunc(out, func(a, b model.Tag) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (r memTags) FindByID(_ context.Context, id string) (*model.Tag, error) {
	if t, ok := r.s.tags[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (r memTags) conflicts(tag *model.Tag) bool {
	for _, t := range r.s.tags {
		if t.ID != tag.ID && t.UserID == tag.UserID && t.Slug == tag.Slug {
			return true
		}
	}
	return false
}

func (r memTags) Create(_ context.Context, tag *model.Tag) error {
	if r.s.createTagErr != nil {
		return r.s.createTagErr
	}
	if r.conflicts(tag) {
		return uniqueErr
	}
	tag.ID = r.s.nextID("tag")
	cp := *tag
	r.s.tags[tag.ID] = &cp
	return nil
}

func (r memTags) Update(_ context.Context, tag *model.Tag) error {
	if _, ok := r.s.tags[tag.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.conflicts(tag) {
		return uniqueErr
	}
	cp := *tag
	r.s.tags[tag.ID] = &cp
	return nil
}

func (r memTags) Delete(_ context.Context, id string) error {
	if _, ok := r.s.tags[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.tags, id)
	return nil
}

func (r memTags) ExistsByIDAndUserID(_ context.Context, id, userID string) (bool, error) {
	t, ok := r.s.tags[id]
	return ok && t.UserID == userID, nil
}

func (r memTags) CountOwned(_ context.Context, userID string, ids []string) (int, error) {
	n := 0
	for _, id := range ids {
		if t, ok := r.s.tags[id]; ok && t.UserID == userID {
			n++
		}
	}
	return n, nil
}

// ----- refresh tokens -----

type memTokens struct{ s *memStore }

func (r memTokens) Create(_ context.Context, token *model.RefreshToken) error {
	for _, t := range r.s.tokens {
		if t.TokenHash == token.TokenHash {
			return uniqueErr
		}
	}
	token.ID = r.s.nextID("rt")
	cp := *token
	r.s.tokens[token.ID] = &cp
	return nil
}

func (r memTokens) FindByHash(_ context.Context, hash string) (*model.RefreshToken, error) {
	for _, t := range r.s.tokens {
		if t.TokenHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memTokens) Revoke(_ context.Context, id string, at time.Time) error {
	t, ok := r.s.tokens[id]
	if !ok {
		return repository.ErrNotFound
	}
	if t.RevokedAt == nil {
		t.RevokedAt = &at
	}
	return nil
}

func (r memTokens) RevokeAllForUser(_ context.Context, userID string, at time.Time) error {
	for _, t := range r.s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &at
		}
	}
	return nil
}

// ===== OTHER FAKES =====

type fakeVerifier struct {
	identities map[string]*auth.GoogleIdentity
	err        error
}

func (f *fakeVerifier) Verify(_ context.Context, idToken string) (*auth.GoogleIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	id, ok := f.identities[idToken]
	if !ok {
		return nil, apperror.Unauthorized(auth.CodeGoogleIDTokenInvalid, "Google ID token is invalid")
	}
	return id, nil
}

type fakeExchanger struct {
	idToken string
	err     error
}

func (f *fakeExchanger) Exchange(context.Context, string) (string, error) {
	return f.idToken, f.err
}

type fakeExtractor struct {
	pages map[string]*metadata.Metadata
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, rawURL string) (*metadata.Metadata, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if m, ok := f.pages[rawURL]; ok {
		return m, nil
	}
	return &metadata.Metadata{}, nil
}

type fakeEmbedder struct {
	err   error
	texts []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }
