package memory

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/domain"
	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/store"
	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	items           map[string]domain.InventoryItem
	conversionsByID map[string]domain.ConversionEntry
	goodsInByID     map[string]domain.GoodsInRequest
	customersByID   map[string]domain.Customer
	paymentsByID    map[string]domain.CustomerPayment
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	items := []domain.InventoryItem{
		{SKU: "SKU-ROKOK-KRT", Name: "Rokok Filter Karton", UnitKind: domain.UnitPack, OnHandQty: 10, OpenBufferPieces: 50, PiecesPerPack: 120, Active: true},
		{SKU: "SKU-ROKOK-PCS", Name: "Rokok Filter Batang", UnitKind: domain.UnitPiece, OnHandQty: 100, Active: true},
		{SKU: "SKU-KOPI-KRT", Name: "Kopi Sachet Karton", UnitKind: domain.UnitPack, OnHandQty: 8, OpenBufferPieces: 30, PiecesPerPack: 24, Active: true},
		{SKU: "SKU-KOPI-PCS", Name: "Kopi Sachet", UnitKind: domain.UnitPiece, OnHandQty: 0, Active: true},
		{SKU: "SKU-AIR-KRT", Name: "Air Mineral Dus", UnitKind: domain.UnitPack, OnHandQty: 20, PiecesPerPack: 24, Active: true},
		{SKU: "SKU-AIR-PCS", Name: "Air Mineral 600ml", UnitKind: domain.UnitPiece, OnHandQty: 60, Active: true},
	}
	customers := []domain.Customer{
		{ID: "cust-toko-barokah", Name: "Toko Barokah", Phone: "0812-1111-2222", TrustScore: 50},
		{ID: "cust-warung-sari", Name: "Warung Sari", Phone: "0813-3333-4444", TrustScore: 50},
	}

	itemMap := make(map[string]domain.InventoryItem, len(items))
	for _, item := range items {
		item.CreatedAt = now
		item.UpdatedAt = now
		itemMap[item.SKU] = item
	}
	customerMap := make(map[string]domain.Customer, len(customers))
	for _, c := range customers {
		c.CreatedAt = now
		customerMap[c.ID] = c
	}

	return &Store{
		items:           itemMap,
		conversionsByID: make(map[string]domain.ConversionEntry),
		goodsInByID:     make(map[string]domain.GoodsInRequest),
		customersByID:   customerMap,
		paymentsByID:    make(map[string]domain.CustomerPayment),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

func (s *Store) ListItems(_ context.Context) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.InventoryItem, 0, len(s.items))
	for _, item := range s.items {
		if !item.Active {
			continue
		}
		items = append(items, item)
	}

	slices.SortFunc(items, func(a, b domain.InventoryItem) int {
		return cmpString(a.SKU, b.SKU)
	})

	return items, nil
}

func (s *Store) CreateItem(_ context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.SKU]; exists {
		return nil, fmt.Errorf("%w: sku %s already exists", store.ErrInvalidRequest, item.SKU)
	}

	now := time.Now().UTC()
	item.Active = true
	item.CreatedAt = now
	item.UpdatedAt = now
	s.items[item.SKU] = item
	created := item
	return &created, nil
}

func (s *Store) GetItemBySKU(_ context.Context, sku string) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[sku]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyItem := item
	return &copyItem, nil
}

func (s *Store) UpdateItem(_ context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.items[item.SKU]
	if !exists {
		return nil, store.ErrNotFound
	}

	// Stock and buffer are owned by the conversion, reversal and receiving
	// paths; catalog updates never touch them.
	item.OnHandQty = current.OnHandQty
	item.OpenBufferPieces = current.OpenBufferPieces
	item.CreatedAt = current.CreatedAt
	item.UpdatedAt = time.Now().UTC()
	s.items[item.SKU] = item
	updated := item
	return &updated, nil
}

func (s *Store) AdjustStock(_ context.Context, sku string, deltaQty int) (*domain.InventoryItem, error) {
	if deltaQty == 0 {
		return nil, fmt.Errorf("%w: zero adjustment", store.ErrInvalidQuantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[sku]
	if !exists {
		return nil, store.ErrNotFound
	}
	next := item.OnHandQty + deltaQty
	if next < 0 {
		return nil, fmt.Errorf("%w: adjustment would leave %d on hand", store.ErrInsufficientStock, next)
	}
	item.OnHandQty = next
	item.UpdatedAt = time.Now().UTC()
	s.items[sku] = item
	updated := item
	return &updated, nil
}

func (s *Store) Convert(_ context.Context, params store.ConversionParams) (*domain.ConversionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	source, exists := s.items[params.SourceSKU]
	if !exists {
		return nil, fmt.Errorf("%w: source %s", store.ErrNotFound, params.SourceSKU)
	}
	target, exists := s.items[params.TargetSKU]
	if !exists {
		return nil, fmt.Errorf("%w: target %s", store.ErrNotFound, params.TargetSKU)
	}
	if source.UnitKind != domain.UnitPack || target.UnitKind != domain.UnitPiece {
		return nil, fmt.Errorf("%w: conversion requires a pack source and a piece target", store.ErrInvalidRequest)
	}

	ratio := params.PiecesPerPack
	if ratio == 0 {
		ratio = source.PiecesPerPack
	}

	plan, err := store.PlanConversion(source.OnHandQty, source.OpenBufferPieces, params.Quantity, ratio, params.Mode)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	source.OnHandQty -= plan.PacksOpened
	source.OpenBufferPieces = plan.BufferAfter
	source.UpdatedAt = now
	target.OnHandQty += params.Quantity
	target.UpdatedAt = now
	s.items[source.SKU] = source
	s.items[target.SKU] = target

	entry := domain.ConversionEntry{
		ID:              xid.New("conv"),
		SourceSKU:       source.SKU,
		TargetSKU:       target.SKU,
		QtyConverted:    params.Quantity,
		Mode:            params.Mode,
		PiecesPerPack:   ratio,
		PacksOpened:     plan.PacksOpened,
		DrawnFromBuffer: plan.DrawnFromBuffer,
		BufferBefore:    plan.BufferBefore,
		BufferAfter:     plan.BufferAfter,
		Note:            strings.TrimSpace(params.Note),
		CreatedBy:       params.RequestedBy,
		CreatedAt:       now,
	}
	s.conversionsByID[entry.ID] = entry
	created := entry
	return &created, nil
}

func (s *Store) GetConversionEntry(_ context.Context, entryID string) (*domain.ConversionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.conversionsByID[entryID]
	if !exists {
		return nil, store.ErrEntryNotFound
	}
	copyEntry := entry
	return &copyEntry, nil
}

func (s *Store) ListConversionEntries(_ context.Context, sku string, limit int) ([]domain.ConversionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.ConversionEntry, 0, 64)
	for _, entry := range s.conversionsByID {
		if sku != "" && entry.SourceSKU != sku && entry.TargetSKU != sku {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.ConversionEntry) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ReverseConversions(_ context.Context, entryIDs []string) ([]domain.ConversionEntry, error) {
	if len(entryIDs) == 0 {
		return nil, fmt.Errorf("%w: no entry ids given", store.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Resolve the whole batch before touching anything so a missing entry
	// leaves every other entry un-reversed.
	entries := make([]domain.ConversionEntry, 0, len(entryIDs))
	for _, id := range entryIDs {
		entry, exists := s.conversionsByID[id]
		if !exists {
			return nil, fmt.Errorf("%w: %s", store.ErrEntryNotFound, id)
		}
		entries = append(entries, entry)
	}

	now := time.Now().UTC()
	for _, entry := range entries {
		source, exists := s.items[entry.SourceSKU]
		if !exists {
			return nil, fmt.Errorf("%w: source %s", store.ErrNotFound, entry.SourceSKU)
		}
		target, exists := s.items[entry.TargetSKU]
		if !exists {
			return nil, fmt.Errorf("%w: target %s", store.ErrNotFound, entry.TargetSKU)
		}

		source.OnHandQty += entry.PacksOpened
		source.OpenBufferPieces = entry.BufferBefore
		source.UpdatedAt = now
		target.OnHandQty -= entry.QtyConverted
		target.UpdatedAt = now
		s.items[source.SKU] = source
		s.items[target.SKU] = target
		delete(s.conversionsByID, entry.ID)
	}

	return entries, nil
}

func (s *Store) CreateGoodsInRequest(_ context.Context, req domain.GoodsInRequest) (*domain.GoodsInRequest, error) {
	if strings.TrimSpace(req.RequestedBy) == "" || len(req.Lines) == 0 {
		return nil, store.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ID == "" {
		req.ID = xid.New("gin")
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	req.Status = domain.GoodsInStatusDraft

	lines := make([]domain.GoodsInLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		if line.QtyOrdered < 1 {
			return nil, fmt.Errorf("%w: ordered quantity must be positive", store.ErrInvalidQuantity)
		}
		if _, exists := s.items[line.SKU]; !exists {
			return nil, fmt.Errorf("%w: sku %s", store.ErrNotFound, line.SKU)
		}
		if line.ID == "" {
			line.ID = xid.New("ginl")
		}
		line.QtyReceived = 0
		lines = append(lines, line)
	}
	req.Lines = lines

	s.goodsInByID[req.ID] = cloneGoodsIn(req)
	created := cloneGoodsIn(req)
	return &created, nil
}

func (s *Store) GetGoodsInRequest(_ context.Context, requestID string) (*domain.GoodsInRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, exists := s.goodsInByID[requestID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyReq := cloneGoodsIn(req)
	return &copyReq, nil
}

func (s *Store) SubmitGoodsInRequest(_ context.Context, requestID string, at time.Time) (*domain.GoodsInRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, exists := s.goodsInByID[requestID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if !domain.CanTransitionGoodsIn(req.Status, domain.GoodsInStatusSubmitted) {
		return nil, fmt.Errorf("%w: %s -> submitted", store.ErrInvalidStateTransition, req.Status)
	}
	req.Status = domain.GoodsInStatusSubmitted
	req.SubmittedAt = &at
	s.goodsInByID[requestID] = req
	updated := cloneGoodsIn(req)
	return &updated, nil
}

func (s *Store) ApproveGoodsInRequest(_ context.Context, requestID string, approver string, note string, at time.Time) (*domain.GoodsInRequest, error) {
	return s.decideGoodsIn(requestID, approver, note, at, domain.GoodsInStatusApproved)
}

func (s *Store) RejectGoodsInRequest(_ context.Context, requestID string, approver string, note string, at time.Time) (*domain.GoodsInRequest, error) {
	return s.decideGoodsIn(requestID, approver, note, at, domain.GoodsInStatusRejected)
}

func (s *Store) decideGoodsIn(requestID string, approver string, note string, at time.Time, next string) (*domain.GoodsInRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, exists := s.goodsInByID[requestID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if !domain.CanTransitionGoodsIn(req.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", store.ErrInvalidStateTransition, req.Status, next)
	}
	req.Status = next
	req.ApprovedBy = approver
	req.ApprovalNote = strings.TrimSpace(note)
	req.DecidedAt = &at
	s.goodsInByID[requestID] = req
	updated := cloneGoodsIn(req)
	return &updated, nil
}

func (s *Store) ReceiveGoodsInRequest(_ context.Context, requestID string, lines []domain.GoodsReceivedLine, at time.Time) (*domain.GoodsInRequest, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no received lines", store.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	req, exists := s.goodsInByID[requestID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if !domain.CanTransitionGoodsIn(req.Status, domain.GoodsInStatusReceived) {
		return nil, fmt.Errorf("%w: %s -> received", store.ErrInvalidStateTransition, req.Status)
	}

	lineIdx := make(map[string]int, len(req.Lines))
	for i, line := range req.Lines {
		lineIdx[line.ID] = i
	}

	// Validate every line before mutating anything: receiving is atomic
	// across all lines and the matching inventory items.
	for _, recv := range lines {
		if recv.QtyReceived < 1 {
			return nil, fmt.Errorf("%w: received quantity must be positive", store.ErrInvalidQuantity)
		}
		idx, ok := lineIdx[recv.LineID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", store.ErrLineItemNotFound, recv.LineID)
		}
		if _, exists := s.items[req.Lines[idx].SKU]; !exists {
			return nil, fmt.Errorf("%w: sku %s", store.ErrNotFound, req.Lines[idx].SKU)
		}
	}

	updated := cloneGoodsIn(req)
	for _, recv := range lines {
		idx := lineIdx[recv.LineID]
		updated.Lines[idx].QtyReceived += recv.QtyReceived
		if note := strings.TrimSpace(recv.Note); note != "" {
			updated.Lines[idx].ReceiveNote = note
		}

		item := s.items[updated.Lines[idx].SKU]
		item.OnHandQty += recv.QtyReceived
		item.UpdatedAt = at
		s.items[item.SKU] = item
	}

	updated.Status = domain.GoodsInStatusReceived
	updated.ReceivedAt = &at
	s.goodsInByID[requestID] = cloneGoodsIn(updated)
	result := cloneGoodsIn(updated)
	return &result, nil
}

func (s *Store) ListPendingGoodsInRequests(_ context.Context, limit int) ([]domain.GoodsInRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.GoodsInRequest, 0, 32)
	for _, req := range s.goodsInByID {
		if req.Status != domain.GoodsInStatusSubmitted {
			continue
		}
		result = append(result, cloneGoodsIn(req))
	}
	slices.SortFunc(result, func(a, b domain.GoodsInRequest) int {
		at, bt := submissionTime(a), submissionTime(b)
		if at.Equal(bt) {
			return cmpString(a.ID, b.ID)
		}
		if at.Before(bt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ListGoodsInRequestsByRequester(_ context.Context, requester string, limit int) ([]domain.GoodsInRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.GoodsInRequest, 0, 32)
	for _, req := range s.goodsInByID {
		if req.RequestedBy != requester {
			continue
		}
		result = append(result, cloneGoodsIn(req))
	}
	slices.SortFunc(result, func(a, b domain.GoodsInRequest) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Name == "" {
		return nil, store.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customersByID[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return customers, nil
}

func (s *Store) RecordCustomerPayment(_ context.Context, payment domain.CustomerPayment) (*domain.CustomerPayment, error) {
	if payment.AmountCents < 1 {
		return nil, fmt.Errorf("%w: payment amount must be positive", store.ErrInvalidQuantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customersByID[payment.CustomerID]; !exists {
		return nil, store.ErrNotFound
	}
	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	s.paymentsByID[payment.ID] = payment
	created := payment
	return &created, nil
}

func (s *Store) ListCustomerPayments(_ context.Context, customerID string, limit int) ([]domain.CustomerPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CustomerPayment, 0, 32)
	for _, payment := range s.paymentsByID {
		if payment.CustomerID != customerID {
			continue
		}
		result = append(result, payment)
	}
	slices.SortFunc(result, func(a, b domain.CustomerPayment) int {
		if a.PaidAt.Equal(b.PaidAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.PaidAt.After(b.PaidAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) UpdateCustomerTrust(_ context.Context, customerID string, score float64, creditLimitCents int64, at time.Time) error {
	if math.IsNaN(score) || score < 0 || score > 100 || creditLimitCents < 0 {
		return store.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	customer, exists := s.customersByID[customerID]
	if !exists {
		return store.ErrNotFound
	}
	customer.TrustScore = score
	customer.CreditLimitCents = creditLimitCents
	customer.ScoredAt = &at
	s.customersByID[customerID] = customer
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidRequest
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidRequest
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidRequest
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func validateItem(item domain.InventoryItem) error {
	if item.SKU == "" || item.Name == "" {
		return store.ErrInvalidRequest
	}
	if item.UnitKind != domain.UnitPack && item.UnitKind != domain.UnitPiece {
		return fmt.Errorf("%w: unknown unit kind %q", store.ErrInvalidRequest, item.UnitKind)
	}
	if item.UnitKind == domain.UnitPack && item.PiecesPerPack < 1 {
		return fmt.Errorf("%w: pack items need a positive pieces-per-pack ratio", store.ErrInvalidRequest)
	}
	if item.OnHandQty < 0 || item.OpenBufferPieces < 0 {
		return fmt.Errorf("%w: negative stock", store.ErrInvalidQuantity)
	}
	return nil
}

func submissionTime(req domain.GoodsInRequest) time.Time {
	if req.SubmittedAt != nil {
		return *req.SubmittedAt
	}
	return req.CreatedAt
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneGoodsIn(src domain.GoodsInRequest) domain.GoodsInRequest {
	dup := src
	lines := make([]domain.GoodsInLine, len(src.Lines))
	copy(lines, src.Lines)
	dup.Lines = lines
	return dup
}
