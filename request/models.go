// Package request defines table service requests (call the waiter, ask for
// the bill, ...). They live beside the ledger and never touch orders.
package request

import (
	"context"
	"time"
)

// Status of a service request.
type Status string

const (
	StatusNew       Status = "new"
	StatusProcessed Status = "processed"
)

// ServiceRequest is one call from a table.
type ServiceRequest struct {
	ID          int64      `json:"id"`
	Table       string     `json:"table"`
	Type        string     `json:"type"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// ListOpts filters service request listings.
type ListOpts struct {
	Table  string
	Status Status
}

// Match reports whether r satisfies o.
func (o ListOpts) Match(r *ServiceRequest) bool {
	if o.Table != "" && r.Table != o.Table {
		return false
	}
	return o.Status == "" || r.Status == o.Status
}

// Store persists service requests. SaveServiceRequests replaces the stored
// collection.
type Store interface {
	LoadServiceRequests(ctx context.Context) ([]*ServiceRequest, error)
	SaveServiceRequests(ctx context.Context, reqs []*ServiceRequest) error
}
