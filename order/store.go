package order

import "context"

// Store persists the active order collection. SaveOrders replaces the
// stored collection with the given set.
type Store interface {
	LoadOrders(ctx context.Context) ([]*Order, error)
	SaveOrders(ctx context.Context, orders []*Order) error
}
