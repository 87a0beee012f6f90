package archive

import "context"

// Store persists archive records. SaveArchive replaces the stored
// collection; records only ever accumulate.
type Store interface {
	LoadArchive(ctx context.Context) ([]*Record, error)
	SaveArchive(ctx context.Context, records []*Record) error
}
