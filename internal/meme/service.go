package meme

import (
	"context"
	"errors"
	"io"

	"github.com/memeapi/service/internal/storage"
)

// metadataStore is the slice of Repository the service needs. Declared here
// so tests can drive the cross-store sequencing with a fake.
type metadataStore interface {
	List(ctx context.Context, limit, offset int) ([]Meme, int, error)
	Get(ctx context.Context, id int64) (*Meme, error)
	Insert(ctx context.Context, title, imageURL string) (*Meme, error)
	Update(ctx context.Context, id int64, title, imageURL string) (*Meme, error)
	Delete(ctx context.Context, id int64) error
}

// Upload is an incoming image file: the byte stream plus the metadata needed
// to store it.
type Upload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
	Filename    string
}

// Service orchestrates meme operations across the metadata store and the
// object store. It is the sole writer keeping the two in sync: every
// mutation touches the object store and the database in a fixed order, with
// no retries and no compensation on partial failure. Create and update
// mutate the object store first so that committed metadata never points at
// an object that was never written; delete removes the row first so the
// logical delete lands even if object cleanup fails. The cost is a possible
// orphaned object on partial failure, never a dangling reference to a
// binary that never existed.
type Service struct {
	repo  metadataStore
	store storage.ObjectStore
}

// NewService creates a new meme Service.
func NewService(repo metadataStore, store storage.ObjectStore) *Service {
	return &Service{repo: repo, store: store}
}

// List returns a page of memes and the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Meme, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Get returns a single meme by id.
func (s *Service) Get(ctx context.Context, id int64) (*Meme, error) {
	return s.repo.Get(ctx, id)
}

// Create stores the uploaded image, then inserts a meme referencing its
// address. If the insert fails, the already-written object is not removed.
func (s *Service) Create(ctx context.Context, title string, up Upload) (*Meme, error) {
	address, err := s.store.Store(ctx, up.Reader, up.Size, up.ContentType, up.Filename)
	if err != nil {
		return nil, err
	}
	return s.repo.Insert(ctx, title, address)
}

// Update replaces the stored image of an existing meme (old object deleted,
// new one uploaded), then persists the new title and address. If the
// metadata update fails, the row keeps referencing the now-deleted old
// address and the new object is orphaned.
func (s *Service) Update(ctx context.Context, id int64, title string, up Upload) (*Meme, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	newAddress, err := s.store.Replace(ctx, up.Reader, up.Size, up.ContentType, up.Filename, existing.ImageURL)
	if err != nil {
		return nil, err
	}

	return s.repo.Update(ctx, id, title, newAddress)
}

// Delete removes the meme's row, then its stored object. If object removal
// fails, the row is already gone and the object is left orphaned.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	return s.store.Remove(ctx, existing.ImageURL)
}

// IsNotFound returns true when the error indicates a meme was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
