package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"claycutter/internal/model"
	"claycutter/internal/storage"
)

// Notifier receives lifecycle events for asynchronous webhook delivery.
type Notifier interface {
	Emit(event string, data map[string]any)
}

type OrderService struct {
	db       *sql.DB
	files    *storage.FileStore
	notifier Notifier
}

func NewOrderService(db *sql.DB, files *storage.FileStore, notifier Notifier) *OrderService {
	return &OrderService{db: db, files: files, notifier: notifier}
}

type CreateOrderInput struct {
	ItemName      string
	Quantity      int
	ColorMaterial string
	Notes         string
	PreferredDate *time.Time
}

// Upload is a pending attachment; Content is consumed once during Create.
type Upload struct {
	Filename string
	MimeType string
	Size     int64
	Content  io.Reader
}

const orderColumns = `id, vendor_id, vendor_name, item_name, quantity, color_material,
	notes, preferred_date, status, pickup_time, version, created_at, updated_at`

// Create inserts a new order with status "new", persists its attachment
// blobs, and emits order.created. Validation failure persists nothing.
func (s *OrderService) Create(ctx context.Context, vendor *model.User, in CreateOrderInput, uploads []Upload) (*model.Order, error) {
	if strings.TrimSpace(in.ItemName) == "" {
		return nil, validation("item_name must not be empty")
	}
	if in.Quantity <= 0 {
		return nil, validation("quantity must be greater than zero")
	}

	now := time.Now()
	order := &model.Order{
		ID:            uuid.NewString(),
		VendorID:      vendor.ID,
		VendorName:    vendor.Name,
		ItemName:      in.ItemName,
		Quantity:      in.Quantity,
		ColorMaterial: in.ColorMaterial,
		Notes:         in.Notes,
		PreferredDate: in.PreferredDate,
		Status:        model.StatusNew,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
		Attachments:   []model.Attachment{},
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
			if rmErr := s.files.RemoveOrder(order.ID); rmErr != nil {
				slog.Error("failed to clean up attachment blobs", "order", order.ID, "error", rmErr)
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, vendor_id, vendor_name, item_name, quantity, color_material,
			notes, preferred_date, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		order.ID, order.VendorID, order.VendorName, order.ItemName, order.Quantity,
		order.ColorMaterial, order.Notes, order.PreferredDate, order.Status,
		order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, up := range uploads {
		path, size, err := s.files.Save(order.ID, up.Filename, up.Content)
		if err != nil {
			return nil, fmt.Errorf("store attachment %q: %w", up.Filename, err)
		}
		att := model.Attachment{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			Filename:    up.Filename,
			MimeType:    up.MimeType,
			SizeBytes:   size,
			StoragePath: path,
			CreatedAt:   now,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO attachments (id, order_id, filename, mime_type, size_bytes, storage_path, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			att.ID, att.OrderID, att.Filename, att.MimeType, att.SizeBytes, att.StoragePath, att.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("insert attachment: %w", err)
		}
		order.Attachments = append(order.Attachments, att)
	}

	if err := insertStatusEvent(ctx, tx, order.ID, vendor.ID, nil, model.StatusNew, "order.created"); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	committed = true

	s.notifier.Emit(model.EventOrderCreated, orderEventData(order))

	return order, nil
}

// Get returns the order with its attachments. Vendors see only their own
// orders; parents see only delivered ones.
func (s *OrderService) Get(ctx context.Context, viewer *model.User, id string) (*model.Order, error) {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	switch viewer.Role {
	case model.RoleVendor:
		if order.VendorID != viewer.ID {
			return nil, ErrForbidden
		}
	case model.RoleParent:
		if order.Status != model.StatusDelivered {
			return nil, ErrForbidden
		}
	}

	return order, nil
}

// List returns orders newest-first, optionally filtered by exact status.
// Role scoping matches Get.
func (s *OrderService) List(ctx context.Context, viewer *model.User, status *model.OrderStatus) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var conds []string
	var args []any

	switch viewer.Role {
	case model.RoleVendor:
		args = append(args, viewer.ID)
		conds = append(conds, fmt.Sprintf("vendor_id = $%d", len(args)))
	case model.RoleParent:
		args = append(args, model.StatusDelivered)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if status != nil {
		args = append(args, *status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	for i := range orders {
		atts, err := s.loadAttachments(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Attachments = atts
	}

	return orders, nil
}

// UpdateStatus applies a status transition. A transition to the current
// status is rejected as ErrNoChange without side effects; an interleaved
// concurrent update surfaces as ErrConflict. pickup_time may only accompany
// a transition to ready; when omitted the previous value is kept.
func (s *OrderService) UpdateStatus(ctx context.Context, actor *model.User, id string, newStatus model.OrderStatus, pickupTime *time.Time) (*model.Order, error) {
	if !newStatus.Valid() {
		return nil, validation(fmt.Sprintf("unknown order status %q", newStatus))
	}
	if pickupTime != nil && newStatus != model.StatusReady {
		return nil, validation("pickup_time may only be set when the order becomes ready")
	}

	current, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(newStatus) {
		return nil, ErrNoChange
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Optimistic version check: a concurrent writer bumped the version and
	// this update must not silently clobber it. updated_at comes from the
	// same process clock that stamped created_at.
	now := time.Now()
	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, pickup_time = COALESCE($2, pickup_time),
			updated_at = $3, version = version + 1
		WHERE id = $4 AND version = $5`,
		newStatus, pickupTime, now, id, current.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check order: %w", err)
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrConflict
	}

	oldStatus := current.Status
	if err := insertStatusEvent(ctx, tx, id, actor.ID, &oldStatus, newStatus, "status.changed"); err != nil {
		return nil, err
	}
	if pickupTime != nil {
		if err := insertStatusEvent(ctx, tx, id, actor.ID, &oldStatus, newStatus, "pickup.scheduled"); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	// The response and event payloads are built from the state this
	// transition wrote, not a re-read that could see a later writer.
	updated := *current
	updated.Status = newStatus
	if pickupTime != nil {
		updated.PickupTime = pickupTime
	}
	updated.UpdatedAt = now
	updated.Version = current.Version + 1

	data := orderEventData(&updated)
	data["old_status"] = string(oldStatus)
	s.notifier.Emit(model.EventOrderStatusChanged, data)
	if newStatus == model.StatusReady {
		s.notifier.Emit(model.EventOrderReady, orderEventData(&updated))
	}
	if pickupTime != nil {
		s.notifier.Emit(model.EventPickupConfirmed, orderEventData(&updated))
	}

	return &updated, nil
}

// Delete removes the order, its audit rows, and its attachment blobs. It is
// terminal and emits no status event; blob removal failure is logged only.
func (s *OrderService) Delete(ctx context.Context, actor *model.User, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := s.files.RemoveOrder(id); err != nil {
		slog.Error("failed to remove attachment blobs", "order", id, "actor", actor.ID, "error", err)
	}

	return nil
}

func (s *OrderService) getOrder(ctx context.Context, id string) (*model.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	atts, err := s.loadAttachments(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Attachments = atts

	return order, nil
}

func (s *OrderService) loadAttachments(ctx context.Context, orderID string) ([]model.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, filename, mime_type, size_bytes, storage_path, created_at
		FROM attachments WHERE order_id = $1 ORDER BY created_at ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	atts := []model.Attachment{}
	for rows.Next() {
		var a model.Attachment
		if err := rows.Scan(&a.ID, &a.OrderID, &a.Filename, &a.MimeType, &a.SizeBytes, &a.StoragePath, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		atts = append(atts, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return atts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var o model.Order
	var status string
	var preferred, pickup sql.NullTime
	err := row.Scan(&o.ID, &o.VendorID, &o.VendorName, &o.ItemName, &o.Quantity,
		&o.ColorMaterial, &o.Notes, &preferred, &status, &pickup,
		&o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.Status = model.OrderStatus(status)
	if preferred.Valid {
		o.PreferredDate = &preferred.Time
	}
	if pickup.Valid {
		o.PickupTime = &pickup.Time
	}
	return &o, nil
}

func insertStatusEvent(ctx context.Context, tx *sql.Tx, orderID, actorID string, oldStatus *model.OrderStatus, newStatus model.OrderStatus, eventType string) error {
	var old any
	if oldStatus != nil {
		old = string(*oldStatus)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO status_events (id, order_id, actor_id, old_status, new_status, event_type)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), orderID, actorID, old, newStatus, eventType,
	)
	if err != nil {
		return fmt.Errorf("insert status event: %w", err)
	}
	return nil
}

func orderEventData(o *model.Order) map[string]any {
	data := map[string]any{
		"order_id":    o.ID,
		"item_name":   o.ItemName,
		"quantity":    o.Quantity,
		"status":      string(o.Status),
		"vendor_name": o.VendorName,
	}
	if o.PickupTime != nil {
		data["pickup_time"] = o.PickupTime.Format(time.RFC3339)
	}
	return data
}
