package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/domain"
	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/store"
	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, name, unit_kind, on_hand_qty, open_buffer_pieces, pieces_per_pack, active, created_at, updated_at
		FROM inventory_items
		WHERE active = true
		ORDER BY sku
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.InventoryItem, 0, 128)
	for rows.Next() {
		var item domain.InventoryItem
		if err := rows.Scan(&item.SKU, &item.Name, &item.UnitKind, &item.OnHandQty, &item.OpenBufferPieces, &item.PiecesPerPack, &item.Active, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		item.CreatedAt = item.CreatedAt.UTC()
		item.UpdatedAt = item.UpdatedAt.UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (s *Store) CreateItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	if item.SKU == "" || item.Name == "" {
		return nil, store.ErrInvalidRequest
	}
	if item.UnitKind != domain.UnitPack && item.UnitKind != domain.UnitPiece {
		return nil, store.ErrInvalidRequest
	}
	if item.UnitKind == domain.UnitPack && item.PiecesPerPack < 1 {
		return nil, store.ErrInvalidRequest
	}
	if item.OnHandQty < 0 || item.OpenBufferPieces < 0 {
		return nil, store.ErrInvalidQuantity
	}

	item.Active = true
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_items (sku, name, unit_kind, on_hand_qty, open_buffer_pieces, pieces_per_pack, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, item.SKU, item.Name, item.UnitKind, item.OnHandQty, item.OpenBufferPieces, item.PiecesPerPack, item.Active, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	created := item
	return &created, nil
}

func (s *Store) GetItemBySKU(ctx context.Context, sku string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := s.db.QueryRowContext(ctx, `
		SELECT sku, name, unit_kind, on_hand_qty, open_buffer_pieces, pieces_per_pack, active, created_at, updated_at
		FROM inventory_items
		WHERE sku = $1
	`, sku).Scan(&item.SKU, &item.Name, &item.UnitKind, &item.OnHandQty, &item.OpenBufferPieces, &item.PiecesPerPack, &item.Active, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return &item, nil
}

func (s *Store) UpdateItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	if item.SKU == "" || item.Name == "" {
		return nil, store.ErrInvalidRequest
	}
	if item.UnitKind == domain.UnitPack && item.PiecesPerPack < 1 {
		return nil, store.ErrInvalidRequest
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory_items
		SET name = $2, pieces_per_pack = $3, active = $4, updated_at = now()
		WHERE sku = $1
	`, item.SKU, item.Name, item.PiecesPerPack, item.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetItemBySKU(ctx, item.SKU)
}

func (s *Store) AdjustStock(ctx context.Context, sku string, deltaQty int) (*domain.InventoryItem, error) {
	if deltaQty == 0 {
		return nil, store.ErrInvalidQuantity
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var onHand int
	err = tx.QueryRowContext(ctx, `
		SELECT on_hand_qty
		FROM inventory_items
		WHERE sku = $1
		FOR UPDATE
	`, sku).Scan(&onHand)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if onHand+deltaQty < 0 {
		return nil, store.ErrInsufficientStock
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE inventory_items
		SET on_hand_qty = on_hand_qty + $2, updated_at = now()
		WHERE sku = $1
	`, sku, deltaQty)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetItemBySKU(ctx, sku)
}

func (s *Store) Convert(ctx context.Context, params store.ConversionParams) (*domain.ConversionEntry, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	source, err := lockItem(ctx, tx, params.SourceSKU)
	if err != nil {
		return nil, err
	}
	target, err := lockItem(ctx, tx, params.TargetSKU)
	if err != nil {
		return nil, err
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
	_, err = tx.ExecContext(ctx, `
		UPDATE inventory_items
		SET on_hand_qty = on_hand_qty - $2, open_buffer_pieces = $3, updated_at = $4
		WHERE sku = $1
	`, source.SKU, plan.PacksOpened, plan.BufferAfter, now)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE inventory_items
		SET on_hand_qty = on_hand_qty + $2, updated_at = $3
		WHERE sku = $1
	`, target.SKU, params.Quantity, now)
	if err != nil {
		return nil, err
	}

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
	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversion_entries (
			id, source_sku, target_sku, qty_converted, mode, pieces_per_pack,
			packs_opened, drawn_from_buffer, buffer_before, buffer_after, note, created_by, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, entry.ID, entry.SourceSKU, entry.TargetSKU, entry.QtyConverted, entry.Mode, entry.PiecesPerPack,
		entry.PacksOpened, entry.DrawnFromBuffer, entry.BufferBefore, entry.BufferAfter, nullIfEmpty(entry.Note), entry.CreatedBy, entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (s *Store) GetConversionEntry(ctx context.Context, entryID string) (*domain.ConversionEntry, error) {
	var entry domain.ConversionEntry
	var note sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source_sku, target_sku, qty_converted, mode, pieces_per_pack,
			packs_opened, drawn_from_buffer, buffer_before, buffer_after, note, created_by, created_at
		FROM conversion_entries
		WHERE id = $1
	`, entryID).Scan(&entry.ID, &entry.SourceSKU, &entry.TargetSKU, &entry.QtyConverted, &entry.Mode, &entry.PiecesPerPack,
		&entry.PacksOpened, &entry.DrawnFromBuffer, &entry.BufferBefore, &entry.BufferAfter, &note, &entry.CreatedBy, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrEntryNotFound
		}
		return nil, err
	}
	if note.Valid {
		entry.Note = note.String
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	return &entry, nil
}

func (s *Store) ListConversionEntries(ctx context.Context, sku string, limit int) ([]domain.ConversionEntry, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_sku, target_sku, qty_converted, mode, pieces_per_pack,
			packs_opened, drawn_from_buffer, buffer_before, buffer_after, note, created_by, created_at
		FROM conversion_entries
		WHERE ($1 = '' OR source_sku = $1 OR target_sku = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, sku, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.ConversionEntry, 0, limit)
	for rows.Next() {
		var entry domain.ConversionEntry
		var note sql.NullString
		if err := rows.Scan(&entry.ID, &entry.SourceSKU, &entry.TargetSKU, &entry.QtyConverted, &entry.Mode, &entry.PiecesPerPack,
			&entry.PacksOpened, &entry.DrawnFromBuffer, &entry.BufferBefore, &entry.BufferAfter, &note, &entry.CreatedBy, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if note.Valid {
			entry.Note = note.String
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) ReverseConversions(ctx context.Context, entryIDs []string) ([]domain.ConversionEntry, error) {
	if len(entryIDs) == 0 {
		return nil, store.ErrInvalidRequest
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Lock the whole batch up front. A single missing entry aborts the
	// transaction before any stock is touched.
	entries := make([]domain.ConversionEntry, 0, len(entryIDs))
	for _, id := range entryIDs {
		var entry domain.ConversionEntry
		var note sql.NullString
		err := tx.QueryRowContext(ctx, `
			SELECT id, source_sku, target_sku, qty_converted, mode, pieces_per_pack,
				packs_opened, drawn_from_buffer, buffer_before, buffer_after, note, created_by, created_at
			FROM conversion_entries
			WHERE id = $1
			FOR UPDATE
		`, id).Scan(&entry.ID, &entry.SourceSKU, &entry.TargetSKU, &entry.QtyConverted, &entry.Mode, &entry.PiecesPerPack,
			&entry.PacksOpened, &entry.DrawnFromBuffer, &entry.BufferBefore, &entry.BufferAfter, &note, &entry.CreatedBy, &entry.CreatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", store.ErrEntryNotFound, id)
			}
			return nil, err
		}
		if note.Valid {
			entry.Note = note.String
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}

	now := time.Now().UTC()
	for _, entry := range entries {
		if _, err := lockItem(ctx, tx, entry.SourceSKU); err != nil {
			return nil, err
		}
		if _, err := lockItem(ctx, tx, entry.TargetSKU); err != nil {
			return nil, err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE inventory_items
			SET on_hand_qty = on_hand_qty + $2, open_buffer_pieces = $3, updated_at = $4
			WHERE sku = $1
		`, entry.SourceSKU, entry.PacksOpened, entry.BufferBefore, now)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE inventory_items
			SET on_hand_qty = on_hand_qty - $2, updated_at = $3
			WHERE sku = $1
		`, entry.TargetSKU, entry.QtyConverted, now)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM conversion_entries WHERE id = $1`, entry.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *Store) CreateGoodsInRequest(ctx context.Context, req domain.GoodsInRequest) (*domain.GoodsInRequest, error) {
	if strings.TrimSpace(req.RequestedBy) == "" || len(req.Lines) == 0 {
		return nil, store.ErrInvalidRequest
	}
	if req.ID == "" {
		req.ID = xid.New("gin")
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	req.Status = domain.GoodsInStatusDraft

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO goods_in_requests (id, requested_by, status, created_at)
		VALUES ($1,$2,$3,$4)
	`, req.ID, req.RequestedBy, req.Status, req.CreatedAt)
	if err != nil {
		return nil, err
	}

	for i := range req.Lines {
		line := &req.Lines[i]
		if line.QtyOrdered < 1 {
			return nil, store.ErrInvalidQuantity
		}
		if line.ID == "" {
			line.ID = xid.New("ginl")
		}
		line.QtyReceived = 0
		_, err = tx.ExecContext(ctx, `
			INSERT INTO goods_in_lines (id, request_id, sku, qty_ordered, qty_received)
			VALUES ($1,$2,$3,$4,0)
		`, line.ID, req.ID, line.SKU, line.QtyOrdered)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, fmt.Errorf("%w: sku %s", store.ErrNotFound, line.SKU)
			}
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := req
	return &created, nil
}

func (s *Store) GetGoodsInRequest(ctx context.Context, requestID string) (*domain.GoodsInRequest, error) {
	req, err := scanGoodsInRequest(s.db.QueryRowContext(ctx, `
		SELECT id, requested_by, COALESCE(approved_by,''), status, COALESCE(approval_note,''),
			submitted_at, decided_at, received_at, created_at
		FROM goods_in_requests
		WHERE id = $1
	`, requestID))
	if err != nil {
		return nil, err
	}

	lines, err := s.listGoodsInLines(ctx, requestID)
	if err != nil {
		return nil, err
	}
	req.Lines = lines
	return req, nil
}

func (s *Store) SubmitGoodsInRequest(ctx context.Context, requestID string, at time.Time) (*domain.GoodsInRequest, error) {
	return s.transitionGoodsIn(ctx, requestID, domain.GoodsInStatusSubmitted, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE goods_in_requests
			SET status = $2, submitted_at = $3
			WHERE id = $1
		`, requestID, domain.GoodsInStatusSubmitted, at)
		return err
	})
}

func (s *Store) ApproveGoodsInRequest(ctx context.Context, requestID string, approver string, note string, at time.Time) (*domain.GoodsInRequest, error) {
	return s.transitionGoodsIn(ctx, requestID, domain.GoodsInStatusApproved, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE goods_in_requests
			SET status = $2, approved_by = $3, approval_note = $4, decided_at = $5
			WHERE id = $1
		`, requestID, domain.GoodsInStatusApproved, approver, strings.TrimSpace(note), at)
		return err
	})
}

func (s *Store) RejectGoodsInRequest(ctx context.Context, requestID string, approver string, note string, at time.Time) (*domain.GoodsInRequest, error) {
	return s.transitionGoodsIn(ctx, requestID, domain.GoodsInStatusRejected, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE goods_in_requests
			SET status = $2, approved_by = $3, approval_note = $4, decided_at = $5
			WHERE id = $1
		`, requestID, domain.GoodsInStatusRejected, approver, strings.TrimSpace(note), at)
		return err
	})
}

func (s *Store) transitionGoodsIn(ctx context.Context, requestID string, next string, apply func(tx *sql.Tx) error) (*domain.GoodsInRequest, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT status
		FROM goods_in_requests
		WHERE id = $1
		FOR UPDATE
	`, requestID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if !domain.CanTransitionGoodsIn(status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", store.ErrInvalidStateTransition, status, next)
	}

	if err := apply(tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetGoodsInRequest(ctx, requestID)
}

func (s *Store) ReceiveGoodsInRequest(ctx context.Context, requestID string, lines []domain.GoodsReceivedLine, at time.Time) (*domain.GoodsInRequest, error) {
	if len(lines) == 0 {
		return nil, store.ErrInvalidRequest
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT status
		FROM goods_in_requests
		WHERE id = $1
		FOR UPDATE
	`, requestID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if !domain.CanTransitionGoodsIn(status, domain.GoodsInStatusReceived) {
		return nil, fmt.Errorf("%w: %s -> received", store.ErrInvalidStateTransition, status)
	}

	lineRows, err := tx.QueryContext(ctx, `
		SELECT id, sku
		FROM goods_in_lines
		WHERE request_id = $1
		FOR UPDATE
	`, requestID)
	if err != nil {
		return nil, err
	}
	lineSKUs := make(map[string]string, 8)
	for lineRows.Next() {
		var lineID, sku string
		if err := lineRows.Scan(&lineID, &sku); err != nil {
			_ = lineRows.Close()
			return nil, err
		}
		lineSKUs[lineID] = sku
	}
	if err := lineRows.Err(); err != nil {
		_ = lineRows.Close()
		return nil, err
	}
	_ = lineRows.Close()

	for _, recv := range lines {
		if recv.QtyReceived < 1 {
			return nil, store.ErrInvalidQuantity
		}
		sku, ok := lineSKUs[recv.LineID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", store.ErrLineItemNotFound, recv.LineID)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE goods_in_lines
			SET qty_received = qty_received + $2, receive_note = COALESCE(NULLIF($3, ''), receive_note)
			WHERE id = $1
		`, recv.LineID, recv.QtyReceived, strings.TrimSpace(recv.Note))
		if err != nil {
			return nil, err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE inventory_items
			SET on_hand_qty = on_hand_qty + $2, updated_at = $3
			WHERE sku = $1
		`, sku, recv.QtyReceived, at)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, fmt.Errorf("%w: sku %s", store.ErrNotFound, sku)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE goods_in_requests
		SET status = $2, received_at = $3
		WHERE id = $1
	`, requestID, domain.GoodsInStatusReceived, at)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetGoodsInRequest(ctx, requestID)
}

func (s *Store) ListPendingGoodsInRequests(ctx context.Context, limit int) ([]domain.GoodsInRequest, error) {
	return s.listGoodsInRequests(ctx, `
		SELECT id, requested_by, COALESCE(approved_by,''), status, COALESCE(approval_note,''),
			submitted_at, decided_at, received_at, created_at
		FROM goods_in_requests
		WHERE status = $1
		ORDER BY submitted_at ASC, id ASC
		LIMIT $2
	`, limit, domain.GoodsInStatusSubmitted)
}

func (s *Store) ListGoodsInRequestsByRequester(ctx context.Context, requester string, limit int) ([]domain.GoodsInRequest, error) {
	return s.listGoodsInRequests(ctx, `
		SELECT id, requested_by, COALESCE(approved_by,''), status, COALESCE(approval_note,''),
			submitted_at, decided_at, received_at, created_at
		FROM goods_in_requests
		WHERE requested_by = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, limit, requester)
}

func (s *Store) listGoodsInRequests(ctx context.Context, query string, limit int, arg any) ([]domain.GoodsInRequest, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, query, arg, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]domain.GoodsInRequest, 0, limit)
	for rows.Next() {
		req, err := scanGoodsInRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range requests {
		lines, err := s.listGoodsInLines(ctx, requests[i].ID)
		if err != nil {
			return nil, err
		}
		requests[i].Lines = lines
	}

	return requests, nil
}

func (s *Store) listGoodsInLines(ctx context.Context, requestID string) ([]domain.GoodsInLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, qty_ordered, qty_received, COALESCE(receive_note,'')
		FROM goods_in_lines
		WHERE request_id = $1
		ORDER BY id ASC
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.GoodsInLine, 0, 8)
	for rows.Next() {
		var line domain.GoodsInLine
		if err := rows.Scan(&line.ID, &line.SKU, &line.QtyOrdered, &line.QtyReceived, &line.ReceiveNote); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Name == "" {
		return nil, store.ErrInvalidRequest
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, trust_score, credit_limit_cents, scored_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, customer.ID, customer.Name, customer.Phone, customer.TrustScore, customer.CreditLimitCents, nullTime(customer.ScoredAt), customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, trust_score, credit_limit_cents, scored_at, created_at
		FROM customers
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var customer domain.Customer
		var scoredAt sql.NullTime
		if err := rows.Scan(&customer.ID, &customer.Name, &customer.Phone, &customer.TrustScore, &customer.CreditLimitCents, &scoredAt, &customer.CreatedAt); err != nil {
			return nil, err
		}
		if scoredAt.Valid {
			at := scoredAt.Time.UTC()
			customer.ScoredAt = &at
		}
		customer.CreatedAt = customer.CreatedAt.UTC()
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) RecordCustomerPayment(ctx context.Context, payment domain.CustomerPayment) (*domain.CustomerPayment, error) {
	if payment.AmountCents < 1 {
		return nil, store.ErrInvalidQuantity
	}
	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customer_payments (id, customer_id, amount_cents, due_date, paid_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, payment.ID, payment.CustomerID, payment.AmountCents, payment.DueDate, payment.PaidAt, payment.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	created := payment
	return &created, nil
}

func (s *Store) ListCustomerPayments(ctx context.Context, customerID string, limit int) ([]domain.CustomerPayment, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, amount_cents, due_date, paid_at, created_at
		FROM customer_payments
		WHERE customer_id = $1
		ORDER BY paid_at DESC, id DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.CustomerPayment, 0, limit)
	for rows.Next() {
		var payment domain.CustomerPayment
		if err := rows.Scan(&payment.ID, &payment.CustomerID, &payment.AmountCents, &payment.DueDate, &payment.PaidAt, &payment.CreatedAt); err != nil {
			return nil, err
		}
		payment.DueDate = payment.DueDate.UTC()
		payment.PaidAt = payment.PaidAt.UTC()
		payment.CreatedAt = payment.CreatedAt.UTC()
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Store) UpdateCustomerTrust(ctx context.Context, customerID string, score float64, creditLimitCents int64, at time.Time) error {
	if score < 0 || score > 100 || creditLimitCents < 0 {
		return store.ErrInvalidRequest
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET trust_score = $2, credit_limit_cents = $3, scored_at = $4
		WHERE id = $1
	`, customerID, score, creditLimitCents, at)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1
			AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidRequest
	}
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidRequest
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidRequest
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func lockItem(ctx context.Context, tx *sql.Tx, sku string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := tx.QueryRowContext(ctx, `
		SELECT sku, name, unit_kind, on_hand_qty, open_buffer_pieces, pieces_per_pack, active
		FROM inventory_items
		WHERE sku = $1
		FOR UPDATE
	`, sku).Scan(&item.SKU, &item.Name, &item.UnitKind, &item.OnHandQty, &item.OpenBufferPieces, &item.PiecesPerPack, &item.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, sku)
		}
		return nil, err
	}
	return &item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoodsInRequest(row rowScanner) (*domain.GoodsInRequest, error) {
	var req domain.GoodsInRequest
	var submittedAt, decidedAt, receivedAt sql.NullTime
	err := row.Scan(&req.ID, &req.RequestedBy, &req.ApprovedBy, &req.Status, &req.ApprovalNote,
		&submittedAt, &decidedAt, &receivedAt, &req.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if submittedAt.Valid {
		at := submittedAt.Time.UTC()
		req.SubmittedAt = &at
	}
	if decidedAt.Valid {
		at := decidedAt.Time.UTC()
		req.DecidedAt = &at
	}
	if receivedAt.Valid {
		at := receivedAt.Time.UTC()
		req.ReceivedAt = &at
	}
	req.CreatedAt = req.CreatedAt.UTC()
	return &req, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
