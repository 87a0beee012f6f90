package bill

import "context"

// Store persists bills. SaveBills replaces the stored collection.
type Store interface {
	LoadBills(ctx context.Context) ([]*Bill, error)
	SaveBills(ctx context.Context, bills []*Bill) error
}
