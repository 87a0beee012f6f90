package tab

import (
	"context"
	"sort"
	"strings"

	"github.com/xraph/tab/request"
)

// RequestService records a call from a table, such as "waiter" or "bill".
func (l *Ledger) RequestService(ctx context.Context, table, typ string) (*request.ServiceRequest, error) {
	const op = "request_service"

	if strings.TrimSpace(table) == "" {
		return nil, invalid(op, ValidationError{Field: "table", Message: "is required"})
	}
	if strings.TrimSpace(typ) == "" {
		return nil, invalid(op, ValidationError{Field: "type", Message: "is required"})
	}

	r := &request.ServiceRequest{
		ID:        l.nextServiceID(),
		Table:     table,
		Type:      typ,
		Status:    request.StatusNew,
		CreatedAt: l.now().UTC(),
	}

	l.requestMu.Lock()
	l.requests[r.ID] = r
	out := *r
	l.requestMu.Unlock()

	l.markDirty(dirtyRequests)
	ev := out
	l.publish(ctx, event{kind: evServiceRequested, request: &ev})
	return &out, nil
}

// CompleteServiceRequest marks a request processed. Completing it again is
// a no-op.
func (l *Ledger) CompleteServiceRequest(ctx context.Context, requestID int64) (*request.ServiceRequest, error) {
	l.requestMu.Lock()
	r, ok := l.requests[requestID]
	if !ok {
		l.requestMu.Unlock()
		return nil, notFound("complete_service_request", ErrServiceRequestNotFound, "service request %d not found", requestID)
	}
	changed := r.Status != request.StatusProcessed
	if changed {
		now := l.now().UTC()
		r.Status = request.StatusProcessed
		r.ProcessedAt = &now
	}
	out := *r
	l.requestMu.Unlock()

	if changed {
		l.markDirty(dirtyRequests)
		ev := out
		l.publish(ctx, event{kind: evServiceCompleted, request: &ev})
	}
	return &out, nil
}

// ServiceRequests lists requests by ascending id.
func (l *Ledger) ServiceRequests(_ context.Context, opts request.ListOpts) ([]*request.ServiceRequest, error) {
	l.requestMu.RLock()
	defer l.requestMu.RUnlock()

	out := make([]*request.ServiceRequest, 0, len(l.requests))
	for _, r := range l.requests {
		if opts.Match(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
