package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/domain"
	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/store"
	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/trust"
	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo  store.Repository
	trust *trust.Engine
}

func New(repo store.Repository, trustEngine *trust.Engine) *Service {
	if trustEngine == nil {
		trustEngine = trust.NewEngine(nil, 0)
	}

	return &Service{
		repo:  repo,
		trust: trustEngine,
	}
}

func (s *Service) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.repo.ListItems(ctx)
}

func (s *Service) GetItem(ctx context.Context, sku string) (domain.InventoryItem, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return domain.InventoryItem{}, store.ErrInvalidRequest
	}
	item, err := s.repo.GetItemBySKU(ctx, sku)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return *item, nil
}

func (s *Service) CreateItem(ctx context.Context, req domain.ItemCreateRequest) (domain.InventoryItem, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.InventoryItem{}, fmt.Errorf("admin role required")
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	req.UnitKind = strings.ToLower(strings.TrimSpace(req.UnitKind))

	if req.SKU == "" || req.Name == "" {
		return domain.InventoryItem{}, store.ErrInvalidRequest
	}
	if req.UnitKind != domain.UnitPack && req.UnitKind != domain.UnitPiece {
		return domain.InventoryItem{}, store.ErrInvalidRequest
	}
	if req.UnitKind == domain.UnitPack && req.PiecesPerPack < 1 {
		return domain.InventoryItem{}, store.ErrInvalidRequest
	}
	if req.InitialStock < 0 {
		return domain.InventoryItem{}, store.ErrInvalidQuantity
	}

	item := domain.InventoryItem{
		SKU:           req.SKU,
		Name:          req.Name,
		UnitKind:      req.UnitKind,
		OnHandQty:     req.InitialStock,
		PiecesPerPack: req.PiecesPerPack,
		Active:        true,
	}

	created, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	s.logAudit(ctx, "item_create", "item", created.SKU, fmt.Sprintf("name=%s,unit=%s,stock=%d", created.Name, created.UnitKind, created.OnHandQty))
	return *created, nil
}

func (s *Service) UpdateItem(ctx context.Context, sku string, req domain.ItemUpdateRequest) (domain.InventoryItem, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.InventoryItem{}, fmt.Errorf("admin role required")
	}

	sku = strings.ToUpper(strings.TrimSpace(sku))
	current, err := s.repo.GetItemBySKU(ctx, sku)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	next := *current
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.InventoryItem{}, store.ErrInvalidRequest
		}
		next.Name = name
	}
	if req.PiecesPerPack != nil {
		if next.UnitKind == domain.UnitPack && *req.PiecesPerPack < 1 {
			return domain.InventoryItem{}, store.ErrInvalidRequest
		}
		next.PiecesPerPack = *req.PiecesPerPack
	}
	if req.Active != nil {
		next.Active = *req.Active
	}

	updated, err := s.repo.UpdateItem(ctx, next)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	s.logAudit(ctx, "item_update", "item", updated.SKU, fmt.Sprintf("name=%s,active=%t", updated.Name, updated.Active))
	return *updated, nil
}

func (s *Service) AdjustStock(ctx context.Context, sku string, req domain.StockAdjustRequest) (domain.InventoryItem, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.InventoryItem{}, fmt.Errorf("admin role required")
	}

	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return domain.InventoryItem{}, store.ErrInvalidRequest
	}

	updated, err := s.repo.AdjustStock(ctx, sku, req.DeltaQty)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	s.logAudit(ctx, "stock_adjust", "item", sku, fmt.Sprintf("delta=%d,note=%s", req.DeltaQty, strings.TrimSpace(req.Note)))
	return *updated, nil
}

func (s *Service) Convert(ctx context.Context, req domain.ConversionRequest) (domain.ConversionResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.ConversionResponse{}, fmt.Errorf("authentication required")
	}

	req.SourceSKU = strings.ToUpper(strings.TrimSpace(req.SourceSKU))
	req.TargetSKU = strings.ToUpper(strings.TrimSpace(req.TargetSKU))
	req.Mode = strings.ToLower(strings.TrimSpace(req.Mode))

	if req.SourceSKU == "" || req.TargetSKU == "" || req.SourceSKU == req.TargetSKU {
		return domain.ConversionResponse{}, store.ErrInvalidRequest
	}
	if req.Mode != domain.ConversionModePartial && req.Mode != domain.ConversionModeFull {
		return domain.ConversionResponse{}, store.ErrInvalidRequest
	}
	if req.Quantity < 1 || req.PiecesPerPack < 0 {
		return domain.ConversionResponse{}, store.ErrInvalidQuantity
	}

	entry, err := s.repo.Convert(ctx, store.ConversionParams{
		SourceSKU:     req.SourceSKU,
		TargetSKU:     req.TargetSKU,
		Quantity:      req.Quantity,
		Mode:          req.Mode,
		PiecesPerPack: req.PiecesPerPack,
		Note:          req.Note,
		RequestedBy:   actor.Username,
	})
	if err != nil {
		return domain.ConversionResponse{}, err
	}

	s.logAudit(ctx, "conversion_create", "conversion", entry.ID,
		fmt.Sprintf("source=%s,target=%s,qty=%d,mode=%s,packs=%d,buffer=%d->%d",
			entry.SourceSKU, entry.TargetSKU, entry.QtyConverted, entry.Mode, entry.PacksOpened, entry.BufferBefore, entry.BufferAfter))

	return s.buildConversionResponse(ctx, *entry)
}

func (s *Service) buildConversionResponse(ctx context.Context, entry domain.ConversionEntry) (domain.ConversionResponse, error) {
	resp := domain.ConversionResponse{Entry: entry}

	source, err := s.repo.GetItemBySKU(ctx, entry.SourceSKU)
	if err != nil {
		return resp, err
	}
	target, err := s.repo.GetItemBySKU(ctx, entry.TargetSKU)
	if err != nil {
		return resp, err
	}
	resp.Source = *source
	resp.Target = *target
	return resp, nil
}

func (s *Service) GetConversion(ctx context.Context, entryID string) (domain.ConversionEntry, error) {
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return domain.ConversionEntry{}, store.ErrInvalidRequest
	}
	entry, err := s.repo.GetConversionEntry(ctx, entryID)
	if err != nil {
		return domain.ConversionEntry{}, err
	}
	return *entry, nil
}

func (s *Service) ListConversions(ctx context.Context, sku string, limit int) (domain.ConversionListResponse, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	entries, err := s.repo.ListConversionEntries(ctx, sku, limit)
	if err != nil {
		return domain.ConversionListResponse{}, err
	}
	return domain.ConversionListResponse{Entries: entries}, nil
}

func (s *Service) ReverseConversion(ctx context.Context, entryID string) (domain.BulkReverseResponse, error) {
	return s.BulkReverse(ctx, domain.BulkReverseRequest{EntryIDs: []string{entryID}})
}

func (s *Service) BulkReverse(ctx context.Context, req domain.BulkReverseRequest) (domain.BulkReverseResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.BulkReverseResponse{}, fmt.Errorf("admin role required")
	}

	ids := make([]string, 0, len(req.EntryIDs))
	for _, id := range req.EntryIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return domain.BulkReverseResponse{}, store.ErrInvalidRequest
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return domain.BulkReverseResponse{}, store.ErrInvalidRequest
	}

	reversed, err := s.repo.ReverseConversions(ctx, ids)
	if err != nil {
		return domain.BulkReverseResponse{}, err
	}

	at := time.Now().UTC()
	for _, entry := range reversed {
		s.logAudit(ctx, "conversion_reverse", "conversion", entry.ID,
			fmt.Sprintf("source=%s,target=%s,qty=%d,restored_buffer=%d", entry.SourceSKU, entry.TargetSKU, entry.QtyConverted, entry.BufferBefore))
	}

	return domain.BulkReverseResponse{
		Reversed:   len(reversed),
		ReversedAt: at.Format(time.RFC3339),
	}, nil
}

func (s *Service) CreateGoodsIn(ctx context.Context, req domain.GoodsInCreateRequest) (domain.GoodsInResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.GoodsInResponse{}, fmt.Errorf("authentication required")
	}
	if len(req.Lines) == 0 {
		return domain.GoodsInResponse{}, store.ErrInvalidRequest
	}

	lines := make([]domain.GoodsInLine, 0, len(req.Lines))
	for _, input := range req.Lines {
		sku := strings.ToUpper(strings.TrimSpace(input.SKU))
		if sku == "" {
			return domain.GoodsInResponse{}, store.ErrInvalidRequest
		}
		if input.QtyOrdered < 1 {
			return domain.GoodsInResponse{}, store.ErrInvalidQuantity
		}
		lines = append(lines, domain.GoodsInLine{SKU: sku, QtyOrdered: input.QtyOrdered})
	}

	created, err := s.repo.CreateGoodsInRequest(ctx, domain.GoodsInRequest{
		RequestedBy: actor.Username,
		Lines:       lines,
	})
	if err != nil {
		return domain.GoodsInResponse{}, err
	}

	s.logAudit(ctx, "goods_in_create", "goods_in", created.ID, fmt.Sprintf("lines=%d", len(created.Lines)))
	return domain.GoodsInResponse{Request: *created}, nil
}

func (s *Service) GetGoodsIn(ctx context.Context, requestID string) (domain.GoodsInResponse, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return domain.GoodsInResponse{}, store.ErrInvalidRequest
	}
	req, err := s.repo.GetGoodsInRequest(ctx, requestID)
	if err != nil {
		return domain.GoodsInResponse{}, err
	}
	return domain.GoodsInResponse{Request: *req}, nil
}

func (s *Service) SubmitGoodsIn(ctx context.Context, requestID string) (domain.GoodsInResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.GoodsInResponse{}, fmt.Errorf("authentication required")
	}

	current, err := s.repo.GetGoodsInRequest(ctx, requestID)
	if err != nil {
		return domain.GoodsInResponse{}, err
	}
	if current.RequestedBy != actor.Username && actor.Role != "admin" {
		return domain.GoodsInResponse{}, fmt.Errorf("only the requester can submit")
	}

	updated, err := s.repo.SubmitGoodsInRequest(ctx, requestID, time.Now().UTC())
	if err != nil {
		return domain.GoodsInResponse{}, err
	}

	s.logAudit(ctx, "goods_in_submit", "goods_in", updated.ID, "")
	return domain.GoodsInResponse{Request: *updated}, nil
}

func (s *Service) ApproveGoodsIn(ctx context.Context, requestID string, req domain.GoodsInDecisionRequest) (domain.GoodsInResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.GoodsInResponse{}, fmt.Errorf("admin role required")
	}

	updated, err := s.repo.ApproveGoodsInRequest(ctx, requestID, actor.Username, req.Note, time.Now().UTC())
	if err != nil {
		return domain.GoodsInResponse{}, err
	}

	s.logAudit(ctx, "goods_in_approve", "goods_in", updated.ID, fmt.Sprintf("note=%s", strings.TrimSpace(req.Note)))
	return domain.GoodsInResponse{Request: *updated}, nil
}

func (s *Service) RejectGoodsIn(ctx context.Context, requestID string, req domain.GoodsInDecisionRequest) (domain.GoodsInResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.GoodsInResponse{}, fmt.Errorf("admin role required")
	}
	// Rejections always carry an explanation back to the requester.
	if strings.TrimSpace(req.Note) == "" {
		return domain.GoodsInResponse{}, store.ErrInvalidRequest
	}

	updated, err := s.repo.RejectGoodsInRequest(ctx, requestID, actor.Username, req.Note, time.Now().UTC())
	if err != nil {
		return domain.GoodsInResponse{}, err
	}

	s.logAudit(ctx, "goods_in_reject", "goods_in", updated.ID, fmt.Sprintf("note=%s", strings.TrimSpace(req.Note)))
	return domain.GoodsInResponse{Request: *updated}, nil
}

func (s *Service) ReceiveGoodsIn(ctx context.Context, requestID string, req domain.GoodsInReceiveRequest) (domain.GoodsInResponse, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return domain.GoodsInResponse{}, fmt.Errorf("authentication required")
	}
	if len(req.Lines) == 0 {
		return domain.GoodsInResponse{}, store.ErrInvalidRequest
	}
	for _, line := range req.Lines {
		if strings.TrimSpace(line.LineID) == "" {
			return domain.GoodsInResponse{}, store.ErrInvalidRequest
		}
		if line.QtyReceived < 1 {
			return domain.GoodsInResponse{}, store.ErrInvalidQuantity
		}
	}

	updated, err := s.repo.ReceiveGoodsInRequest(ctx, requestID, req.Lines, time.Now().UTC())
	if err != nil {
		return domain.GoodsInResponse{}, err
	}

	s.logAudit(ctx, "goods_in_receive", "goods_in", updated.ID, fmt.Sprintf("lines=%d", len(req.Lines)))
	return domain.GoodsInResponse{Request: *updated}, nil
}

func (s *Service) ListPendingGoodsIn(ctx context.Context, limit int) (domain.GoodsInListResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.GoodsInListResponse{}, fmt.Errorf("admin role required")
	}

	requests, err := s.repo.ListPendingGoodsInRequests(ctx, limit)
	if err != nil {
		return domain.GoodsInListResponse{}, err
	}
	return domain.GoodsInListResponse{Requests: requests}, nil
}

func (s *Service) ListMyGoodsIn(ctx context.Context, limit int) (domain.GoodsInListResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.GoodsInListResponse{}, fmt.Errorf("authentication required")
	}

	requests, err := s.repo.ListGoodsInRequestsByRequester(ctx, actor.Username, limit)
	if err != nil {
		return domain.GoodsInListResponse{}, err
	}
	return domain.GoodsInListResponse{Requests: requests}, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return domain.Customer{}, fmt.Errorf("authentication required")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, store.ErrInvalidRequest
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		Name:       req.Name,
		Phone:      strings.TrimSpace(req.Phone),
		TrustScore: 40,
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_create", "customer", created.ID, fmt.Sprintf("name=%s", created.Name))
	return *created, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) RecordPayment(ctx context.Context, customerID string, req domain.PaymentRecordRequest) (domain.CustomerPayment, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return domain.CustomerPayment{}, fmt.Errorf("authentication required")
	}

	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.CustomerPayment{}, store.ErrInvalidRequest
	}
	if req.AmountCents < 1 {
		return domain.CustomerPayment{}, store.ErrInvalidQuantity
	}

	dueDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.DueDate))
	if err != nil {
		return domain.CustomerPayment{}, store.ErrInvalidRequest
	}

	paidAt := time.Now().UTC()
	if strings.TrimSpace(req.PaidAt) != "" {
		paidAt, err = time.Parse(time.RFC3339, strings.TrimSpace(req.PaidAt))
		if err != nil {
			return domain.CustomerPayment{}, store.ErrInvalidRequest
		}
		paidAt = paidAt.UTC()
	}

	created, err := s.repo.RecordCustomerPayment(ctx, domain.CustomerPayment{
		CustomerID:  customerID,
		AmountCents: req.AmountCents,
		DueDate:     dueDate.UTC(),
		PaidAt:      paidAt,
	})
	if err != nil {
		return domain.CustomerPayment{}, err
	}

	s.logAudit(ctx, "payment_record", "customer", customerID, fmt.Sprintf("amount=%d,due=%s", created.AmountCents, req.DueDate))
	return *created, nil
}

func (s *Service) ListPayments(ctx context.Context, customerID string, limit int) ([]domain.CustomerPayment, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, store.ErrInvalidRequest
	}
	return s.repo.ListCustomerPayments(ctx, customerID, limit)
}

func (s *Service) RecalculateTrustScores(ctx context.Context) (domain.TrustRecalcResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.TrustRecalcResponse{}, fmt.Errorf("admin role required")
	}

	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		return domain.TrustRecalcResponse{}, err
	}

	at := time.Now().UTC()
	updated := 0
	for _, customer := range customers {
		payments, err := s.repo.ListCustomerPayments(ctx, customer.ID, 0)
		if err != nil {
			return domain.TrustRecalcResponse{}, err
		}

		assessment := s.trust.Assess(ctx, customer.ID, payments)
		if err := s.repo.UpdateCustomerTrust(ctx, customer.ID, assessment.Score, assessment.CreditLimitCents, at); err != nil {
			log.Printf("[service] WARN: failed to update trust customer=%s: %v", customer.ID, err)
			continue
		}
		updated++
	}

	s.logAudit(ctx, "trust_recalculate", "customer", "", fmt.Sprintf("updated=%d", updated))
	return domain.TrustRecalcResponse{
		Updated:     updated,
		GeneratedAt: at.Format(time.RFC3339),
	}, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}

	day := time.Now().UTC()
	if strings.TrimSpace(date) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(date))
		if err != nil {
			return nil, store.ErrInvalidRequest
		}
		day = parsed
	}

	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}
