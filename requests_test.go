package tab_test

import (
	"context"
	"testing"

	"github.com/xraph/tab"
	"github.com/xraph/tab/request"
)

func TestServiceRequests(t *testing.T) {
	ctx := context.Background()
	l, rec := newTestLedger(t)

	waiter, err := l.RequestService(ctx, "4", "waiter")
	if err != nil {
		t.Fatal(err)
	}
	if waiter.Status != request.StatusNew || waiter.ID != 1 {
		t.Errorf("request: %+v", waiter)
	}
	if _, err := l.RequestService(ctx, "5", "bill"); err != nil {
		t.Fatal(err)
	}

	done, err := l.CompleteServiceRequest(ctx, waiter.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != request.StatusProcessed || done.ProcessedAt == nil {
		t.Errorf("completed: %+v", done)
	}
	if _, err := l.CompleteServiceRequest(ctx, waiter.ID); err != nil {
		t.Errorf("completing twice: %v", err)
	}
	if rec.Count("service.requested") != 2 || rec.Count("service.completed") != 1 {
		t.Errorf("events: %v", rec.Events())
	}

	tests := []struct {
		name string
		opts request.ListOpts
		want []int64
	}{
		{"all", request.ListOpts{}, []int64{1, 2}},
		{"by table", request.ListOpts{Table: "5"}, []int64{2}},
		{"new only", request.ListOpts{Status: request.StatusNew}, []int64{2}},
		{"processed on table 5", request.ListOpts{Table: "5", Status: request.StatusProcessed}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.ServiceRequests(ctx, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d requests, want %d", len(got), len(tt.want))
			}
			for i, r := range got {
				if r.ID != tt.want[i] {
					t.Errorf("request %d: id %d, want %d", i, r.ID, tt.want[i])
				}
			}
		})
	}
}

func TestServiceRequestErrors(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	_, err := l.RequestService(ctx, "", "waiter")
	assertKind(t, err, tab.KindInvalidRequest)
	_, err = l.RequestService(ctx, "4", " ")
	assertKind(t, err, tab.KindInvalidRequest)
	_, err = l.CompleteServiceRequest(ctx, 42)
	assertKind(t, err, tab.KindNotFound)
}
