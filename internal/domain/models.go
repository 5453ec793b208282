package domain

import "time"

const (
	UnitPack  = "pack"
	UnitPiece = "piece"
)

const (
	ConversionModePartial = "partial"
	ConversionModeFull    = "full"
)

const (
	GoodsInStatusDraft     = "draft"
	GoodsInStatusSubmitted = "submitted"
	GoodsInStatusApproved  = "approved"
	GoodsInStatusRejected  = "rejected"
	GoodsInStatusReceived  = "received"
)

// goodsInTransitions is the closed transition table for goods-in requests.
// Rejected and received are terminal.
var goodsInTransitions = map[string]map[string]bool{
	GoodsInStatusDraft:     {GoodsInStatusSubmitted: true},
	GoodsInStatusSubmitted: {GoodsInStatusApproved: true, GoodsInStatusRejected: true},
	GoodsInStatusApproved:  {GoodsInStatusReceived: true},
}

func CanTransitionGoodsIn(from string, to string) bool {
	return goodsInTransitions[from][to]
}

type InventoryItem struct {
	SKU              string    `json:"sku"`
	Name             string    `json:"name"`
	UnitKind         string    `json:"unit_kind"`
	OnHandQty        int       `json:"on_hand_qty"`
	OpenBufferPieces int       `json:"open_buffer_pieces"`
	PiecesPerPack    int       `json:"pieces_per_pack"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type ItemCreateRequest struct {
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	UnitKind      string `json:"unit_kind"`
	PiecesPerPack int    `json:"pieces_per_pack"`
	InitialStock  int    `json:"initial_stock"`
}

type ItemUpdateRequest struct {
	Name          *string `json:"name,omitempty"`
	PiecesPerPack *int    `json:"pieces_per_pack,omitempty"`
	Active        *bool   `json:"active,omitempty"`
}

type StockAdjustRequest struct {
	DeltaQty int    `json:"delta_qty"`
	Note     string `json:"note"`
}

type ConversionRequest struct {
	SourceSKU     string `json:"source_sku"`
	TargetSKU     string `json:"target_sku"`
	Quantity      int    `json:"quantity"`
	Mode          string `json:"mode"`
	PiecesPerPack int    `json:"pieces_per_pack,omitempty"`
	Note          string `json:"note,omitempty"`
}

// ConversionEntry is the audit record of one stock unit conversion. It carries
// everything needed to undo the operation exactly: BufferBefore is stored
// verbatim rather than derived, because when packs are opened the after-value
// reflects leftover from a freshly opened pack, not the original buffer.
type ConversionEntry struct {
	ID              string    `json:"id"`
	SourceSKU       string    `json:"source_sku"`
	TargetSKU       string    `json:"target_sku"`
	QtyConverted    int       `json:"qty_converted"`
	Mode            string    `json:"mode"`
	PiecesPerPack   int       `json:"pieces_per_pack"`
	PacksOpened     int       `json:"packs_opened"`
	DrawnFromBuffer int       `json:"drawn_from_buffer"`
	BufferBefore    int       `json:"buffer_before"`
	BufferAfter     int       `json:"buffer_after"`
	Note            string    `json:"note,omitempty"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

type ConversionResponse struct {
	Entry  ConversionEntry `json:"entry"`
	Source InventoryItem   `json:"source"`
	Target InventoryItem   `json:"target"`
}

type ConversionListResponse struct {
	Entries []ConversionEntry `json:"entries"`
}

type BulkReverseRequest struct {
	EntryIDs   []string `json:"entry_ids"`
	ManagerPIN string   `json:"manager_pin"`
}

type BulkReverseResponse struct {
	Reversed   int    `json:"reversed"`
	ReversedAt string `json:"reversed_at"`
}

type GoodsInLine struct {
	ID          string `json:"id"`
	SKU         string `json:"sku"`
	QtyOrdered  int    `json:"qty_ordered"`
	QtyReceived int    `json:"qty_received"`
	ReceiveNote string `json:"receive_note,omitempty"`
}

type GoodsInRequest struct {
	ID           string        `json:"id"`
	RequestedBy  string        `json:"requested_by"`
	ApprovedBy   string        `json:"approved_by,omitempty"`
	Status       string        `json:"status"`
	ApprovalNote string        `json:"approval_note,omitempty"`
	SubmittedAt  *time.Time    `json:"submitted_at,omitempty"`
	DecidedAt    *time.Time    `json:"decided_at,omitempty"`
	ReceivedAt   *time.Time    `json:"received_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	Lines        []GoodsInLine `json:"lines"`
}

type GoodsInLineInput struct {
	SKU        string `json:"sku"`
	QtyOrdered int    `json:"qty_ordered"`
}

type GoodsInCreateRequest struct {
	Lines []GoodsInLineInput `json:"lines"`
}

type GoodsInDecisionRequest struct {
	Note string `json:"note"`
}

type GoodsReceivedLine struct {
	LineID      string `json:"line_id"`
	QtyReceived int    `json:"qty_received"`
	Note        string `json:"note,omitempty"`
}

type GoodsInReceiveRequest struct {
	Lines []GoodsReceivedLine `json:"lines"`
}

type GoodsInResponse struct {
	Request GoodsInRequest `json:"request"`
}

type GoodsInListResponse struct {
	Requests []GoodsInRequest `json:"requests"`
}

type Customer struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Phone            string     `json:"phone"`
	TrustScore       float64    `json:"trust_score"`
	CreditLimitCents int64      `json:"credit_limit_cents"`
	ScoredAt         *time.Time `json:"scored_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type CustomerPayment struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	AmountCents int64     `json:"amount_cents"`
	DueDate     time.Time `json:"due_date"`
	PaidAt      time.Time `json:"paid_at"`
	CreatedAt   time.Time `json:"created_at"`
}

type PaymentRecordRequest struct {
	AmountCents int64  `json:"amount_cents"`
	DueDate     string `json:"due_date"`
	PaidAt      string `json:"paid_at,omitempty"`
}

// TrustAssessment is the derived trust state for one customer, recomputed from
// payment history and persisted back onto the customer record.
type TrustAssessment struct {
	CustomerID         string    `json:"customer_id"`
	Score              float64   `json:"score"`
	CreditLimitCents   int64     `json:"credit_limit_cents"`
	PaymentsConsidered int       `json:"payments_considered"`
	GeneratedAt        time.Time `json:"generated_at"`
}

type TrustRecalcResponse struct {
	Updated     int    `json:"updated"`
	GeneratedAt string `json:"generated_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}
