package tab

import (
	"context"

	"github.com/xraph/tab/archive"
)

// appendRecords adds settled notes and orders to the archive. It may be
// called with table locks held.
func (l *Ledger) appendRecords(records ...*archive.Record) {
	l.archiveMu.Lock()
	l.records = append(l.records, records...)
	l.archiveMu.Unlock()
	l.markDirty(dirtyArchive)
}

// Archive returns archived notes and orders matching q, newest first.
func (l *Ledger) Archive(_ context.Context, q archive.Query) ([]*archive.Record, error) {
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return nil, invalidf("archive", "date range ends before it starts")
	}

	l.archiveMu.RLock()
	defer l.archiveMu.RUnlock()
	return archive.Filter(l.records, q), nil
}
