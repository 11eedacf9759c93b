package manifest

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/hupe1980/linkedseq/blobstore"
)

// Store manages manifests and the CURRENT pointer in a blob store.
type Store struct {
	store blobstore.BlobStore
	mu    sync.Mutex
}

// NewStore creates a new manifest store.
func NewStore(store blobstore.BlobStore) *Store {
	return &Store{store: store}
}

// Blobs returns the underlying blob store.
func (s *Store) Blobs() blobstore.BlobStore {
	return s.store
}

// Current returns the manifest name CURRENT points at.
func (s *Store) Current(ctx context.Context) (string, error) {
	data, err := blobstore.ReadAll(ctx, s.store, CurrentName)
	if err != nil {
		if blobstore.IsNotFound(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	name := strings.TrimSpace(string(data))
	if _, _, ok := ParseName(name); !ok {
		return "", fmt.Errorf("%w: CURRENT points at %q", ErrInvalid, name)
	}
	return name, nil
}

// Load loads the current manifest. It returns ErrNotFound when nothing has
// been committed yet.
func (s *Store) Load(ctx context.Context) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, name)
}

func (s *Store) load(ctx context.Context, name string) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, s.store, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", name, err)
	}
	m, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", name, err)
	}
	if m.Name() != name {
		return nil, fmt.Errorf("%w: %s describes %s", ErrInvalid, name, m.Name())
	}
	return m, nil
}

// Save writes m and then points CURRENT at it.
func (s *Store) Save(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Version = CurrentVersion
	data, err := Marshal(m)
	if err != nil {
		return err
	}

	name := m.Name()
	if err := s.store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", name, err)
	}
	if err := s.store.Put(ctx, CurrentName, []byte(name)); err != nil {
		return fmt.Errorf("failed to commit %s: %w", CurrentName, err)
	}
	return nil
}

// List returns every readable manifest ordered by LSN, oldest first.
// Unreadable or corrupted manifests are skipped.
func (s *Store) List(ctx context.Context) ([]*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.store.List(ctx, ManifestPrefix)
	if err != nil {
		return nil, err
	}

	manifests := make([]*Manifest, 0, len(names))
	for _, name := range names {
		if _, _, ok := ParseName(name); !ok {
			continue
		}
		m, err := s.load(ctx, name)
		if err != nil {
			continue
		}
		manifests = append(manifests, m)
	}

	slices.SortFunc(manifests, func(a, b *Manifest) int {
		return cmp.Or(
			cmp.Compare(a.LSN, b.LSN),
			a.CreatedAt.Compare(b.CreatedAt),
			strings.Compare(a.ID.String(), b.ID.String()),
		)
	})
	return manifests, nil
}

// Delete removes m. The snapshot it references is left alone.
func (s *Store) Delete(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Delete(ctx, m.Name())
}
