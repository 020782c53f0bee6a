package storage

import "fmt"

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// DefaultStoreKind is the backend used when a caller leaves the kind
// unset.
func DefaultStoreKind() string {
	return BackendMemory
}

func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
