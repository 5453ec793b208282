package store

import (
	"context"
	"errors"
	"time"

	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/domain"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrEntryNotFound          = errors.New("conversion entry not found")
	ErrLineItemNotFound       = errors.New("goods-in line not found")
	ErrInvalidRequest         = errors.New("invalid request")
)

// ConversionParams carries one conversion operation into a repository. When
// PiecesPerPack is zero the source item's stored ratio is used, so callers can
// override the ratio per operation (promotional pack sizes) without touching
// the catalog.
type ConversionParams struct {
	SourceSKU     string
	TargetSKU     string
	Quantity      int
	Mode          string
	PiecesPerPack int
	Note          string
	RequestedBy   string
}

type Repository interface {
	ListItems(ctx context.Context) ([]domain.InventoryItem, error)
	CreateItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	GetItemBySKU(ctx context.Context, sku string) (*domain.InventoryItem, error)
	UpdateItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	AdjustStock(ctx context.Context, sku string, deltaQty int) (*domain.InventoryItem, error)

	Convert(ctx context.Context, params ConversionParams) (*domain.ConversionEntry, error)
	GetConversionEntry(ctx context.Context, entryID string) (*domain.ConversionEntry, error)
	ListConversionEntries(ctx context.Context, sku string, limit int) ([]domain.ConversionEntry, error)
	ReverseConversions(ctx context.Context, entryIDs []string) ([]domain.ConversionEntry, error)

	CreateGoodsInRequest(ctx context.Context, req domain.GoodsInRequest) (*domain.GoodsInRequest, error)
	GetGoodsInRequest(ctx context.Context, requestID string) (*domain.GoodsInRequest, error)
	SubmitGoodsInRequest(ctx context.Context, requestID string, at time.Time) (*domain.GoodsInRequest, error)
	ApproveGoodsInRequest(ctx context.Context, requestID string, approver string, note string, at time.Time) (*domain.GoodsInRequest, error)
	RejectGoodsInRequest(ctx context.Context, requestID string, approver string, note string, at time.Time) (*domain.GoodsInRequest, error)
	ReceiveGoodsInRequest(ctx context.Context, requestID string, lines []domain.GoodsReceivedLine, at time.Time) (*domain.GoodsInRequest, error)
	ListPendingGoodsInRequests(ctx context.Context, limit int) ([]domain.GoodsInRequest, error)
	ListGoodsInRequestsByRequester(ctx context.Context, requester string, limit int) ([]domain.GoodsInRequest, error)

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	RecordCustomerPayment(ctx context.Context, payment domain.CustomerPayment) (*domain.CustomerPayment, error)
	ListCustomerPayments(ctx context.Context, customerID string, limit int) ([]domain.CustomerPayment, error)
	UpdateCustomerTrust(ctx context.Context, customerID string, score float64, creditLimitCents int64, at time.Time) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
