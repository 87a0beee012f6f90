package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/id"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/request"
	"github.com/xraph/tab/store"
	"github.com/xraph/tab/types"
)

// ==================== Order models ====================

type orderModel struct {
	grove.BaseModel `grove:"table:tab_orders"`

	ID                   int64           `grove:"id,pk"`
	TableNo              string          `grove:"table_no"`
	Server               string          `grove:"server"`
	Covers               int             `grove:"covers"`
	Status               string          `grove:"status"`
	ConsumptionConfirmed bool            `grove:"consumption_confirmed"`
	Comment              string          `grove:"comment"`
	MainNote             json.RawMessage `grove:"main_note"`
	SubNotes             json.RawMessage `grove:"sub_notes"`
	TotalAmount          int64           `grove:"total_amount"`
	Currency             string          `grove:"currency"`
	CreatedAt            time.Time       `grove:"created_at"`
	UpdatedAt            time.Time       `grove:"updated_at"`
	ArchivedAt           *time.Time      `grove:"archived_at"`
}

func toOrderModel(o *order.Order) (*orderModel, error) {
	main, err := json.Marshal(o.MainNote)
	if err != nil {
		return nil, err
	}
	subs := o.SubNotes
	if subs == nil {
		subs = []*order.Note{}
	}
	subNotes, err := json.Marshal(subs)
	if err != nil {
		return nil, err
	}
	return &orderModel{
		ID:                   o.ID,
		TableNo:              o.Table,
		Server:               o.Server,
		Covers:               o.Covers,
		Status:               string(o.Status),
		ConsumptionConfirmed: o.ConsumptionConfirmed,
		Comment:              o.Comment,
		MainNote:             main,
		SubNotes:             subNotes,
		TotalAmount:          o.Total.Amount,
		Currency:             o.Total.Currency,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
		ArchivedAt:           o.ArchivedAt,
	}, nil
}

func fromOrderModel(m *orderModel) (*order.Order, error) {
	o := &order.Order{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                   m.ID,
		Table:                m.TableNo,
		Server:               m.Server,
		Covers:               m.Covers,
		Status:               order.Status(m.Status),
		ConsumptionConfirmed: m.ConsumptionConfirmed,
		Comment:              m.Comment,
		Total:                types.New(m.TotalAmount, m.Currency),
		ArchivedAt:           m.ArchivedAt,
	}
	if err := json.Unmarshal(m.MainNote, &o.MainNote); err != nil {
		return nil, err
	}
	if len(m.SubNotes) > 0 {
		if err := json.Unmarshal(m.SubNotes, &o.SubNotes); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// ==================== Archive models ====================

type archiveModel struct {
	grove.BaseModel `grove:"table:tab_archive"`

	ID            string          `grove:"id,pk"`
	Kind          string          `grove:"kind"`
	TableNo       string          `grove:"table_no"`
	OrderID       int64           `grove:"order_id"`
	NoteID        string          `grove:"note_id"`
	Name          string          `grove:"name"`
	Server        string          `grove:"server"`
	Covers        int             `grove:"covers"`
	Items         json.RawMessage `grove:"items"`
	TotalAmount   int64           `grove:"total_amount"`
	Currency      string          `grove:"currency"`
	PaymentStatus string          `grove:"payment_status"`
	OrderSnapshot json.RawMessage `grove:"order_snapshot"`
	CreatedAt     time.Time       `grove:"created_at"`
	ArchivedAt    time.Time       `grove:"archived_at"`
}

func toArchiveModel(r *archive.Record) (*archiveModel, error) {
	items, err := json.Marshal(r.Items)
	if err != nil {
		return nil, err
	}
	snapshot, err := json.Marshal(r.Order)
	if err != nil {
		return nil, err
	}
	return &archiveModel{
		ID:            r.ID.String(),
		Kind:          string(r.Kind),
		TableNo:       r.Table,
		OrderID:       r.OrderID,
		NoteID:        r.NoteID,
		Name:          r.Name,
		Server:        r.Server,
		Covers:        r.Covers,
		Items:         items,
		TotalAmount:   r.Total.Amount,
		Currency:      r.Total.Currency,
		PaymentStatus: r.PaymentStatus,
		OrderSnapshot: snapshot,
		CreatedAt:     r.CreatedAt,
		ArchivedAt:    r.ArchivedAt,
	}, nil
}

func fromArchiveModel(m *archiveModel) (*archive.Record, error) {
	recID, err := id.ParseArchiveID(m.ID)
	if err != nil {
		return nil, err
	}
	r := &archive.Record{
		ID:            recID,
		Kind:          archive.Kind(m.Kind),
		Table:         m.TableNo,
		OrderID:       m.OrderID,
		NoteID:        m.NoteID,
		Name:          m.Name,
		Server:        m.Server,
		Covers:        m.Covers,
		Total:         types.New(m.TotalAmount, m.Currency),
		PaymentStatus: m.PaymentStatus,
		CreatedAt:     m.CreatedAt,
		ArchivedAt:    m.ArchivedAt,
	}
	if len(m.Items) > 0 {
		if err := json.Unmarshal(m.Items, &r.Items); err != nil {
			return nil, err
		}
	}
	if len(m.OrderSnapshot) > 0 && string(m.OrderSnapshot) != "null" {
		if err := json.Unmarshal(m.OrderSnapshot, &r.Order); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ==================== Bill models ====================

type billModel struct {
	grove.BaseModel `grove:"table:tab_bills"`

	ID          int64           `grove:"id,pk"`
	TableNo     string          `grove:"table_no"`
	OrderIDs    json.RawMessage `grove:"order_ids"`
	TotalAmount int64           `grove:"total_amount"`
	Currency    string          `grove:"currency"`
	Payments    json.RawMessage `grove:"payments"`
	CreatedAt   time.Time       `grove:"created_at"`
}

func toBillModel(b *bill.Bill) (*billModel, error) {
	orderIDs, err := json.Marshal(b.OrderIDs)
	if err != nil {
		return nil, err
	}
	payments := b.Payments
	if payments == nil {
		payments = []bill.Payment{}
	}
	paymentsJSON, err := json.Marshal(payments)
	if err != nil {
		return nil, err
	}
	return &billModel{
		ID:          b.ID,
		TableNo:     b.Table,
		OrderIDs:    orderIDs,
		TotalAmount: b.Total.Amount,
		Currency:    b.Total.Currency,
		Payments:    paymentsJSON,
		CreatedAt:   b.CreatedAt,
	}, nil
}

func fromBillModel(m *billModel) (*bill.Bill, error) {
	b := &bill.Bill{
		ID:        m.ID,
		Table:     m.TableNo,
		Total:     types.New(m.TotalAmount, m.Currency),
		CreatedAt: m.CreatedAt,
	}
	if err := json.Unmarshal(m.OrderIDs, &b.OrderIDs); err != nil {
		return nil, err
	}
	if len(m.Payments) > 0 {
		if err := json.Unmarshal(m.Payments, &b.Payments); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// ==================== Service request models ====================

type serviceRequestModel struct {
	grove.BaseModel `grove:"table:tab_service_requests"`

	ID          int64      `grove:"id,pk"`
	TableNo     string     `grove:"table_no"`
	Type        string     `grove:"type"`
	Status      string     `grove:"status"`
	CreatedAt   time.Time  `grove:"created_at"`
	ProcessedAt *time.Time `grove:"processed_at"`
}

func toServiceRequestModel(r *request.ServiceRequest) *serviceRequestModel {
	return &serviceRequestModel{
		ID:          r.ID,
		TableNo:     r.Table,
		Type:        r.Type,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		ProcessedAt: r.ProcessedAt,
	}
}

func fromServiceRequestModel(m *serviceRequestModel) *request.ServiceRequest {
	return &request.ServiceRequest{
		ID:          m.ID,
		Table:       m.TableNo,
		Type:        m.Type,
		Status:      request.Status(m.Status),
		CreatedAt:   m.CreatedAt,
		ProcessedAt: m.ProcessedAt,
	}
}

// ==================== Counter models ====================

// countersKey is the primary key of the single counters row.
const countersKey = "tab"

type countersModel struct {
	grove.BaseModel `grove:"table:tab_counters"`

	Name          string `grove:"name,pk"`
	NextOrderID   int64  `grove:"next_order_id"`
	NextBillID    int64  `grove:"next_bill_id"`
	NextServiceID int64  `grove:"next_service_id"`
}

func toCountersModel(c store.Counters) *countersModel {
	return &countersModel{
		Name:          countersKey,
		NextOrderID:   c.NextOrderID,
		NextBillID:    c.NextBillID,
		NextServiceID: c.NextServiceID,
	}
}

func fromCountersModel(m *countersModel) store.Counters {
	return store.Counters{
		NextOrderID:   m.NextOrderID,
		NextBillID:    m.NextBillID,
		NextServiceID: m.NextServiceID,
	}
}
