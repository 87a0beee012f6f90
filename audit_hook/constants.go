package audithook

// Action constants for audit events.
const (
	// Order actions
	ActionOrderCreated  = "order.created"
	ActionOrderUpdated  = "order.updated"
	ActionOrderArchived = "order.archived"
	ActionNoteClosed    = "note.closed"

	// Table actions
	ActionTableCreated     = "table.created"
	ActionTableTransferred = "table.transferred"
	ActionServerAssigned   = "server.assigned"

	// Bill actions
	ActionBillCreated = "bill.created"
	ActionBillPaid    = "bill.paid"

	// Service actions
	ActionServiceRequested = "service.requested"
	ActionServiceCompleted = "service.completed"

	// Persistence actions
	ActionPersistFailed = "persist.failed"
)

// Resource constants for audit events.
const (
	ResourceOrder   = "order"
	ResourceNote    = "note"
	ResourceTable   = "table"
	ResourceBill    = "bill"
	ResourceService = "service_request"
	ResourceStore   = "store"
)

// Category constants for audit events.
const (
	CategoryOrders  = "orders"
	CategoryTables  = "tables"
	CategoryPayment = "payment"
	CategoryService = "service"
	CategorySystem  = "system"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
