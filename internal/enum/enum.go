package enum

// ── State machines (CHECK constrained in DB) ──

const (
	TransactionStatusPending   = "Pending"
	TransactionStatusReady     = "Ready"
	TransactionStatusCompleted = "Completed"
	TransactionStatusCancelled = "Cancelled"
)

const (
	PriceStatusActive   = "Active"
	PriceStatusInactive = "Inactive"
)

// ── Roles (CHECK constrained in DB) ──

const (
	UserRoleAdmin      = "Admin"
	UserRoleCook       = "Cook"
	UserRoleFrontLiner = "Front Liner"
)

// ── Real-time event names ──

const (
	EventNewOrder           = "newOrder"
	EventOrderStatusUpdated = "orderStatusUpdated"
)
