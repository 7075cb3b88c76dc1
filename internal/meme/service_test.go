package meme

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memeapi/service/internal/storage"
)

// fakeRepo is an in-memory metadataStore recording call order.
type fakeRepo struct {
	memes  map[int64]Meme
	nextID int64
	calls  *[]string

	insertErr error
	updateErr error
	deleteErr error
}

func (f *fakeRepo) List(_ context.Context, limit, offset int) ([]Meme, int, error) {
	*f.calls = append(*f.calls, "repo.List")
	all := make([]Meme, 0, len(f.memes))
	for id := int64(1); id <= f.nextID; id++ {
		if m, ok := f.memes[id]; ok {
			all = append(all, m)
		}
	}
	total := len(all)
	if offset >= len(all) {
		return []Meme{}, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (*Meme, error) {
	*f.calls = append(*f.calls, "repo.Get")
	m, ok := f.memes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (f *fakeRepo) Insert(_ context.Context, title, imageURL string) (*Meme, error) {
	*f.calls = append(*f.calls, "repo.Insert")
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.nextID++
	m := Meme{ID: f.nextID, Title: title, ImageURL: imageURL}
	f.memes[m.ID] = m
	return &m, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, title, imageURL string) (*Meme, error) {
	*f.calls = append(*f.calls, "repo.Update")
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if _, ok := f.memes[id]; !ok {
		return nil, ErrNotFound
	}
	m := Meme{ID: id, Title: title, ImageURL: imageURL}
	f.memes[id] = m
	return &m, nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	*f.calls = append(*f.calls, "repo.Delete")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.memes[id]; !ok {
		return ErrNotFound
	}
	delete(f.memes, id)
	return nil
}

// fakeStore is an in-memory ObjectStore recording call order. Keys are
// derived with the real generator so extension handling is exercised.
type fakeStore struct {
	objects map[string][]byte
	base    string
	calls   *[]string

	storeErr  error
	removeErr error
}

func (f *fakeStore) Store(_ context.Context, r io.Reader, _ int64, _, originalName string) (string, error) {
	*f.calls = append(*f.calls, "store.Store")
	if f.storeErr != nil {
		return "", f.storeErr
	}
	key, err := storage.NewObjectKey(originalName)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.objects[key] = data
	return f.base + "/" + key, nil
}

func (f *fakeStore) Replace(ctx context.Context, r io.Reader, size int64, contentType, originalName, oldAddress string) (string, error) {
	if err := f.Remove(ctx, oldAddress); err != nil {
		return "", err
	}
	return f.Store(ctx, r, size, contentType, originalName)
}

func (f *fakeStore) Remove(_ context.Context, address string) error {
	*f.calls = append(*f.calls, "store.Remove")
	if f.removeErr != nil {
		return f.removeErr
	}
	key := storage.KeyFromAddress(address)
	if _, ok := f.objects[key]; !ok {
		return fmt.Errorf("remove %q: %w", key, storage.ErrObjectNotFound)
	}
	delete(f.objects, key)
	return nil
}

func newFixture() (*Service, *fakeRepo, *fakeStore, *[]string) {
	calls := &[]string{}
	repo := &fakeRepo{memes: map[int64]Meme{}, calls: calls}
	store := &fakeStore{objects: map[string][]byte{}, base: "http://localhost:9000/memes", calls: calls}
	return NewService(repo, store), repo, store, calls
}

func upload(content string) Upload {
	return Upload{
		Reader:      strings.NewReader(content),
		Size:        int64(len(content)),
		ContentType: "image/png",
		Filename:    "test.png",
	}
}

func TestServiceCreate(t *testing.T) {
	svc, repo, store, calls := newFixture()

	m, err := svc.Create(context.Background(), "Test Meme 1", upload("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), m.ID)
	assert.Equal(t, "Test Meme 1", m.Title)
	assert.Equal(t, m, mustGet(t, repo, m.ID))

	key := storage.KeyFromAddress(m.ImageURL)
	assert.Equal(t, []byte("png-bytes"), store.objects[key], "stored object must be byte-identical to the upload")

	// Object is written before the row is inserted.
	assert.Equal(t, []string{"store.Store", "repo.Insert"}, *calls)
}

func TestServiceCreateInsertFailureLeavesObject(t *testing.T) {
	svc, repo, store, _ := newFixture()
	repo.insertErr = ErrIntegrity

	_, err := svc.Create(context.Background(), "broken", upload("data"))
	require.ErrorIs(t, err, ErrIntegrity)

	// No compensation: the uploaded object stays behind as an orphan.
	assert.Len(t, store.objects, 1)
	assert.Empty(t, repo.memes)
}

func TestServiceCreateStoreFailure(t *testing.T) {
	svc, repo, store, calls := newFixture()
	store.storeErr = errors.New("connection refused")

	_, err := svc.Create(context.Background(), "broken", upload("data"))
	require.Error(t, err)

	// The insert never runs when the upload fails.
	assert.Equal(t, []string{"store.Store"}, *calls)
	assert.Empty(t, repo.memes)
}

func TestServiceUpdate(t *testing.T) {
	svc, repo, store, calls := newFixture()

	created, err := svc.Create(context.Background(), "old", upload("old-bytes"))
	require.NoError(t, err)
	oldKey := storage.KeyFromAddress(created.ImageURL)
	*calls = (*calls)[:0]

	updated, err := svc.Update(context.Background(), created.ID, "New Title", upload("new-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "New Title", updated.Title)
	assert.NotEqual(t, created.ImageURL, updated.ImageURL)
	assert.Equal(t, updated, mustGet(t, repo, created.ID))

	// Old object deleted, new one uploaded, then metadata written.
	assert.Equal(t, []string{"repo.Get", "store.Remove", "store.Store", "repo.Update"}, *calls)
	assert.NotContains(t, store.objects, oldKey)
	assert.Equal(t, []byte("new-bytes"), store.objects[storage.KeyFromAddress(updated.ImageURL)])
}

func TestServiceUpdateNotFound(t *testing.T) {
	svc, _, store, _ := newFixture()

	_, err := svc.Update(context.Background(), 42, "title", upload("data"))
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, svc.IsNotFound(err))
	assert.Empty(t, store.objects, "no object side effects for a missing record")
}

func TestServiceUpdateMetadataFailureOrphansNewObject(t *testing.T) {
	svc, repo, store, _ := newFixture()

	created, err := svc.Create(context.Background(), "old", upload("old-bytes"))
	require.NoError(t, err)
	repo.updateErr = ErrIntegrity

	_, err = svc.Update(context.Background(), created.ID, "new", upload("new-bytes"))
	require.ErrorIs(t, err, ErrIntegrity)

	// The row still references the deleted old address; the new object is
	// orphaned. Neither side is compensated.
	current := mustGet(t, repo, created.ID)
	assert.Equal(t, created.ImageURL, current.ImageURL)
	assert.NotContains(t, store.objects, storage.KeyFromAddress(created.ImageURL))
	assert.Len(t, store.objects, 1)
}

func TestServiceDelete(t *testing.T) {
	svc, repo, store, calls := newFixture()

	created, err := svc.Create(context.Background(), "doomed", upload("bytes"))
	require.NoError(t, err)
	*calls = (*calls)[:0]

	require.NoError(t, svc.Delete(context.Background(), created.ID))

	// Row removed before the object.
	assert.Equal(t, []string{"repo.Get", "repo.Delete", "store.Remove"}, *calls)
	assert.Empty(t, repo.memes)
	assert.Empty(t, store.objects)
}

func TestServiceDeleteTwiceReturnsNotFound(t *testing.T) {
	svc, _, _, _ := newFixture()

	created, err := svc.Create(context.Background(), "doomed", upload("bytes"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	err = svc.Delete(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceDeleteObjectFailureKeepsRowDeleted(t *testing.T) {
	svc, repo, store, _ := newFixture()

	created, err := svc.Create(context.Background(), "doomed", upload("bytes"))
	require.NoError(t, err)
	store.removeErr = errors.New("connection refused")

	err = svc.Delete(context.Background(), created.ID)
	require.Error(t, err)

	// The logical delete already landed; the object is orphaned.
	assert.Empty(t, repo.memes)
	assert.Len(t, store.objects, 1)
}

func TestServiceList(t *testing.T) {
	svc, _, _, _ := newFixture()

	for i := 0; i < 15; i++ {
		_, err := svc.Create(context.Background(), fmt.Sprintf("meme %d", i), upload("x"))
		require.NoError(t, err)
	}

	page, total, err := svc.List(context.Background(), 10, 10)
	require.NoError(t, err)
	assert.Len(t, page, 5)
	assert.Equal(t, 15, total)

	page, total, err = svc.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Len(t, page, 10)
	assert.Equal(t, 15, total)
}

// mustGet reads a record straight from the fake's map so it does not
// disturb the recorded call order.
func mustGet(t *testing.T, repo *fakeRepo, id int64) *Meme {
	t.Helper()
	m, ok := repo.memes[id]
	require.True(t, ok, "meme %d not in repo", id)
	return &m
}
