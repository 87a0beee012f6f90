package mongo

import (
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

// ==================== Shared sub-documents ====================

type itemModel struct {
	ID        int64  `bson:"id"`
	Name      string `bson:"name"`
	UnitPrice int64  `bson:"unit_price"`
	Currency  string `bson:"currency"`
	Quantity  int64  `bson:"quantity"`
}

func toItemModels(items []order.Item) []itemModel {
	out := make([]itemModel, len(items))
	for i, it := range items {
		out[i] = itemModel{
			ID:        it.ID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice.Amount,
			Currency:  it.UnitPrice.Currency,
			Quantity:  it.Quantity,
		}
	}
	return out
}

func fromItemModels(models []itemModel) []order.Item {
	out := make([]order.Item, len(models))
	for i, m := range models {
		out[i] = order.Item{
			ID:        m.ID,
			Name:      m.Name,
			UnitPrice: types.New(m.UnitPrice, m.Currency),
			Quantity:  m.Quantity,
		}
	}
	return out
}

type noteModel struct {
	ID          string      `bson:"id"`
	Name        string      `bson:"name"`
	Covers      int         `bson:"covers"`
	Items       []itemModel `bson:"items"`
	TotalAmount int64       `bson:"total_amount"`
	Currency    string      `bson:"currency"`
	Paid        bool        `bson:"paid"`
	CreatedAt   time.Time   `bson:"created_at"`
	Settled     []itemModel `bson:"settled,omitempty"`
}

func toNoteModel(n *order.Note) noteModel {
	return noteModel{
		ID:          n.ID,
		Name:        n.Name,
		Covers:      n.Covers,
		Items:       toItemModels(n.Items),
		TotalAmount: n.Total.Amount,
		Currency:    n.Total.Currency,
		Paid:        n.Paid,
		CreatedAt:   n.CreatedAt,
		Settled:     toItemModels(n.Settled),
	}
}

func fromNoteModel(m noteModel) *order.Note {
	return &order.Note{
		ID:        m.ID,
		Name:      m.Name,
		Covers:    m.Covers,
		Items:     fromItemModels(m.Items),
		Total:     types.New(m.TotalAmount, m.Currency),
		Paid:      m.Paid,
		CreatedAt: m.CreatedAt,
		Settled:   fromItemModels(m.Settled),
	}
}

// ==================== Order models ====================

type orderModel struct {
	grove.BaseModel `grove:"table:tab_orders"`

	ID                   int64       `grove:"id,pk"                 bson:"_id"`
	TableNo              string      `grove:"table_no"              bson:"table_no"`
	Server               string      `grove:"server"                bson:"server"`
	Covers               int         `grove:"covers"                bson:"covers"`
	Status               string      `grove:"status"                bson:"status"`
	ConsumptionConfirmed bool        `grove:"consumption_confirmed" bson:"consumption_confirmed"`
	Comment              string      `grove:"comment"               bson:"comment"`
	MainNote             noteModel   `grove:"main_note"             bson:"main_note"`
	SubNotes             []noteModel `grove:"sub_notes"             bson:"sub_notes"`
	TotalAmount          int64       `grove:"total_amount"          bson:"total_amount"`
	Currency             string      `grove:"currency"              bson:"currency"`
	CreatedAt            time.Time   `grove:"created_at"            bson:"created_at"`
	UpdatedAt            time.Time   `grove:"updated_at"            bson:"updated_at"`
	ArchivedAt           *time.Time  `grove:"archived_at"           bson:"archived_at,omitempty"`
}

func toOrderModel(o *order.Order) *orderModel {
	subs := make([]noteModel, len(o.SubNotes))
	for i, n := range o.SubNotes {
		subs[i] = toNoteModel(n)
	}
	return &orderModel{
		ID:                   o.ID,
		TableNo:              o.Table,
		Server:               o.Server,
		Covers:               o.Covers,
		Status:               string(o.Status),
		ConsumptionConfirmed: o.ConsumptionConfirmed,
		Comment:              o.Comment,
		MainNote:             toNoteModel(o.MainNote),
		SubNotes:             subs,
		TotalAmount:          o.Total.Amount,
		Currency:             o.Total.Currency,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
		ArchivedAt:           o.ArchivedAt,
	}
}

func fromOrderModel(m *orderModel) *order.Order {
	subs := make([]*order.Note, len(m.SubNotes))
	for i, n := range m.SubNotes {
		subs[i] = fromNoteModel(n)
	}
	return &order.Order{
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
		MainNote:             fromNoteModel(m.MainNote),
		SubNotes:             subs,
		Total:                types.New(m.TotalAmount, m.Currency),
		ArchivedAt:           m.ArchivedAt,
	}
}

// ==================== Archive models ====================

type archiveModel struct {
	grove.BaseModel `grove:"table:tab_archive"`

	ID            string      `grove:"id,pk"          bson:"_id"`
	Kind          string      `grove:"kind"           bson:"kind"`
	TableNo       string      `grove:"table_no"       bson:"table_no"`
	OrderID       int64       `grove:"order_id"       bson:"order_id"`
	NoteID        string      `grove:"note_id"        bson:"note_id"`
	Name          string      `grove:"name"           bson:"name"`
	Server        string      `grove:"server"         bson:"server"`
	Covers        int         `grove:"covers"         bson:"covers"`
	Items         []itemModel `grove:"items"          bson:"items"`
	TotalAmount   int64       `grove:"total_amount"   bson:"total_amount"`
	Currency      string      `grove:"currency"       bson:"currency"`
	PaymentStatus string      `grove:"payment_status" bson:"payment_status"`
	Order         *orderModel `grove:"order_snapshot" bson:"order_snapshot,omitempty"`
	CreatedAt     time.Time   `grove:"created_at"     bson:"created_at"`
	ArchivedAt    time.Time   `grove:"archived_at"    bson:"archived_at"`
}

func toArchiveModel(r *archive.Record) *archiveModel {
	m := &archiveModel{
		ID:            r.ID.String(),
		Kind:          string(r.Kind),
		TableNo:       r.Table,
		OrderID:       r.OrderID,
		NoteID:        r.NoteID,
		Name:          r.Name,
		Server:        r.Server,
		Covers:        r.Covers,
		Items:         toItemModels(r.Items),
		TotalAmount:   r.Total.Amount,
		Currency:      r.Total.Currency,
		PaymentStatus: r.PaymentStatus,
		CreatedAt:     r.CreatedAt,
		ArchivedAt:    r.ArchivedAt,
	}
	if r.Order != nil {
		m.Order = toOrderModel(r.Order)
	}
	return m
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
		Items:         fromItemModels(m.Items),
		Total:         types.New(m.TotalAmount, m.Currency),
		PaymentStatus: m.PaymentStatus,
		CreatedAt:     m.CreatedAt,
		ArchivedAt:    m.ArchivedAt,
	}
	if m.Order != nil {
		r.Order = fromOrderModel(m.Order)
	}
	return r, nil
}

// ==================== Bill models ====================

type paidLineModel struct {
	OrderID   int64  `bson:"order_id"`
	NoteID    string `bson:"note_id,omitempty"`
	ItemID    int64  `bson:"item_id"`
	Name      string `bson:"name"`
	Quantity  int64  `bson:"quantity"`
	UnitPrice int64  `bson:"unit_price"`
}

type paymentModel struct {
	ID        string          `bson:"id"`
	Amount    int64           `bson:"amount"`
	Tip       int64           `bson:"tip"`
	Items     []paidLineModel `bson:"items"`
	CreatedAt time.Time       `bson:"created_at"`
}

type billModel struct {
	grove.BaseModel `grove:"table:tab_bills"`

	ID          int64          `grove:"id,pk"        bson:"_id"`
	TableNo     string         `grove:"table_no"     bson:"table_no"`
	OrderIDs    []int64        `grove:"order_ids"    bson:"order_ids"`
	TotalAmount int64          `grove:"total_amount" bson:"total_amount"`
	Currency    string         `grove:"currency"     bson:"currency"`
	Payments    []paymentModel `grove:"payments"     bson:"payments"`
	CreatedAt   time.Time      `grove:"created_at"   bson:"created_at"`
}

func toBillModel(b *bill.Bill) *billModel {
	payments := make([]paymentModel, len(b.Payments))
	for i, p := range b.Payments {
		lines := make([]paidLineModel, len(p.Items))
		for j, l := range p.Items {
			lines[j] = paidLineModel{
				OrderID:   l.OrderID,
				NoteID:    l.NoteID,
				ItemID:    l.ItemID,
				Name:      l.Name,
				Quantity:  l.Quantity,
				UnitPrice: l.UnitPrice.Amount,
			}
		}
		payments[i] = paymentModel{
			ID:        p.ID.String(),
			Amount:    p.Amount.Amount,
			Tip:       p.Tip.Amount,
			Items:     lines,
			CreatedAt: p.CreatedAt,
		}
	}
	return &billModel{
		ID:          b.ID,
		TableNo:     b.Table,
		OrderIDs:    b.OrderIDs,
		TotalAmount: b.Total.Amount,
		Currency:    b.Total.Currency,
		Payments:    payments,
		CreatedAt:   b.CreatedAt,
	}
}

func fromBillModel(m *billModel) (*bill.Bill, error) {
	payments := make([]bill.Payment, len(m.Payments))
	for i, p := range m.Payments {
		payID, err := id.ParsePaymentID(p.ID)
		if err != nil {
			return nil, err
		}
		lines := make([]bill.PaidLine, len(p.Items))
		for j, l := range p.Items {
			lines[j] = bill.PaidLine{
				OrderID:   l.OrderID,
				NoteID:    l.NoteID,
				ItemID:    l.ItemID,
				Name:      l.Name,
				Quantity:  l.Quantity,
				UnitPrice: types.New(l.UnitPrice, m.Currency),
			}
		}
		payments[i] = bill.Payment{
			ID:        payID,
			Amount:    types.New(p.Amount, m.Currency),
			Tip:       types.New(p.Tip, m.Currency),
			Items:     lines,
			CreatedAt: p.CreatedAt,
		}
	}
	return &bill.Bill{
		ID:        m.ID,
		Table:     m.TableNo,
		OrderIDs:  m.OrderIDs,
		Total:     types.New(m.TotalAmount, m.Currency),
		Payments:  payments,
		CreatedAt: m.CreatedAt,
	}, nil
}

// ==================== Service request models ====================

type serviceRequestModel struct {
	grove.BaseModel `grove:"table:tab_service_requests"`

	ID          int64      `grove:"id,pk"        bson:"_id"`
	TableNo     string     `grove:"table_no"     bson:"table_no"`
	Type        string     `grove:"type"         bson:"type"`
	Status      string     `grove:"status"       bson:"status"`
	CreatedAt   time.Time  `grove:"created_at"   bson:"created_at"`
	ProcessedAt *time.Time `grove:"processed_at" bson:"processed_at,omitempty"`
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

const countersKey = "tab"

type countersModel struct {
	grove.BaseModel `grove:"table:tab_counters"`

	Name          string `grove:"name,pk"         bson:"_id"`
	NextOrderID   int64  `grove:"next_order_id"   bson:"next_order_id"`
	NextBillID    int64  `grove:"next_bill_id"    bson:"next_bill_id"`
	NextServiceID int64  `grove:"next_service_id" bson:"next_service_id"`
}

func fromCountersModel(m *countersModel) store.Counters {
	return store.Counters{
		NextOrderID:   m.NextOrderID,
		NextBillID:    m.NextBillID,
		NextServiceID: m.NextServiceID,
	}
}
