package badger

import "errors"

// Repositories bundles every BadgerDB-backed repository sharing one Backend.
type Repositories struct {
	Backend   *Backend
	Documents *DocumentRepository
	Vectors   *VectorCache
	Standards *StandardsRepository
}

// OpenRepositories opens a backend and creates all repositories on it.
func OpenRepositories(filePath string, inMemory bool) (*Repositories, error) {
	backend, err := OpenBackend(filePath, inMemory)
	if err != nil {
		return nil, err
	}

	docs, err := NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Repositories{
		Backend:   backend,
		Documents: docs,
		Vectors:   NewVectorCache(backend),
		Standards: NewStandardsRepository(backend),
	}, nil
}

// Close releases the document sequence and closes the backend.
func (r *Repositories) Close() error {
	return errors.Join(r.Documents.Close(), r.Backend.Close())
}
