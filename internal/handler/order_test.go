package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"claycutter/internal/model"
	"claycutter/internal/mw"
	"claycutter/internal/service"
)

type fakeOrderStore struct {
	createFn func(ctx context.Context, vendor *model.User, in service.CreateOrderInput, uploads []service.Upload) (*model.Order, error)
	getFn    func(ctx context.Context, viewer *model.User, id string) (*model.Order, error)
	listFn   func(ctx context.Context, viewer *model.User, status *model.OrderStatus) ([]model.Order, error)
	updateFn func(ctx context.Context, actor *model.User, id string, status model.OrderStatus, pickupTime *time.Time) (*model.Order, error)
	deleteFn func(ctx context.Context, actor *model.User, id string) error
}

func (f *fakeOrderStore) Create(ctx context.Context, vendor *model.User, in service.CreateOrderInput, uploads []service.Upload) (*model.Order, error) {
	return f.createFn(ctx, vendor, in, uploads)
}

func (f *fakeOrderStore) Get(ctx context.Context, viewer *model.User, id string) (*model.Order, error) {
	return f.getFn(ctx, viewer, id)
}

func (f *fakeOrderStore) List(ctx context.Context, viewer *model.User, status *model.OrderStatus) ([]model.Order, error) {
	return f.listFn(ctx, viewer, status)
}

func (f *fakeOrderStore) UpdateStatus(ctx context.Context, actor *model.User, id string, status model.OrderStatus, pickupTime *time.Time) (*model.Order, error) {
	return f.updateFn(ctx, actor, id, status, pickupTime)
}

func (f *fakeOrderStore) Delete(ctx context.Context, actor *model.User, id string) error {
	return f.deleteFn(ctx, actor, id)
}

// withUser injects an authenticated user the way mw.Authenticator does.
func withUser(user *model.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), mw.UserCtxKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func orderRouter(store OrderStore, user *model.User) http.Handler {
	r := chi.NewRouter()
	r.Use(withUser(user))
	r.Post("/api/orders", CreateOrderHandler(store))
	r.Get("/api/orders", ListOrdersHandler(store))
	r.Get("/api/orders/{orderID}", GetOrderHandler(store))
	r.Put("/api/orders/{orderID}", UpdateOrderHandler(store))
	r.Delete("/api/orders/{orderID}", DeleteOrderHandler(store))
	return r
}

func TestUpdateOrderStatusMapping(t *testing.T) {
	jonan := &model.User{ID: "j1", Name: "Jonan", Role: model.RoleJonan}

	tests := []struct {
		name       string
		storeErr   error
		wantStatus int
	}{
		{"no change", service.ErrNoChange, http.StatusConflict},
		{"concurrent conflict", service.ErrConflict, http.StatusConflict},
		{"missing order", service.ErrNotFound, http.StatusNotFound},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeOrderStore{
				updateFn: func(ctx context.Context, actor *model.User, id string, status model.OrderStatus, pickup *time.Time) (*model.Order, error) {
					return nil, tt.storeErr
				},
			}
			req := httptest.NewRequest(http.MethodPut, "/api/orders/o1",
				strings.NewReader(`{"status":"ready"}`))
			rec := httptest.NewRecorder()
			orderRouter(store, jonan).ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestUpdateOrderForwardsPickupTime(t *testing.T) {
	jonan := &model.User{ID: "j1", Role: model.RoleJonan}
	var gotStatus model.OrderStatus
	var gotPickup *time.Time
	store := &fakeOrderStore{
		updateFn: func(ctx context.Context, actor *model.User, id string, status model.OrderStatus, pickup *time.Time) (*model.Order, error) {
			gotStatus, gotPickup = status, pickup
			return &model.Order{ID: id, Status: status, PickupTime: pickup}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/api/orders/o1",
		strings.NewReader(`{"status":"ready","pickup_time":"2024-05-01T10:00:00"}`))
	rec := httptest.NewRecorder()
	orderRouter(store, jonan).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if gotStatus != model.StatusReady {
		t.Errorf("forwarded status = %s", gotStatus)
	}
	if gotPickup == nil {
		t.Fatal("pickup_time not forwarded")
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if !gotPickup.Equal(want) {
		t.Errorf("pickup_time = %v, want %v", gotPickup, want)
	}
}

func TestUpdateOrderRejectsUnknownStatus(t *testing.T) {
	jonan := &model.User{ID: "j1", Role: model.RoleJonan}
	store := &fakeOrderStore{
		updateFn: func(ctx context.Context, actor *model.User, id string, status model.OrderStatus, pickup *time.Time) (*model.Order, error) {
			t.Error("store reached with unknown status")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/api/orders/o1",
		strings.NewReader(`{"status":"shipped"}`))
	rec := httptest.NewRecorder()
	orderRouter(store, jonan).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListOrdersStatusFilter(t *testing.T) {
	vendor := &model.User{ID: "v1", Role: model.RoleVendor}
	var gotFilter *model.OrderStatus
	store := &fakeOrderStore{
		listFn: func(ctx context.Context, viewer *model.User, status *model.OrderStatus) ([]model.Order, error) {
			gotFilter = status
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders?status=printing", nil)
	rec := httptest.NewRecorder()
	orderRouter(store, vendor).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotFilter == nil || *gotFilter != model.StatusPrinting {
		t.Errorf("filter = %v, want printing", gotFilter)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("empty list rendered as %q, want []", body)
	}
}

func TestListOrdersRejectsUnknownStatus(t *testing.T) {
	vendor := &model.User{ID: "v1", Role: model.RoleVendor}
	store := &fakeOrderStore{
		listFn: func(ctx context.Context, viewer *model.User, status *model.OrderStatus) ([]model.Order, error) {
			t.Error("store reached with unknown status filter")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders?status=bogus", nil)
	rec := httptest.NewRecorder()
	orderRouter(store, vendor).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetOrderForbidden(t *testing.T) {
	parent := &model.User{ID: "p1", Role: model.RoleParent}
	store := &fakeOrderStore{
		getFn: func(ctx context.Context, viewer *model.User, id string) (*model.Order, error) {
			return nil, service.ErrForbidden
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders/o1", nil)
	rec := httptest.NewRecorder()
	orderRouter(store, parent).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp["detail"] == "" {
		t.Error("error body missing detail message")
	}
}

func TestDeleteOrder(t *testing.T) {
	jonan := &model.User{ID: "j1", Role: model.RoleJonan}
	var deleted string
	store := &fakeOrderStore{
		deleteFn: func(ctx context.Context, actor *model.User, id string) error {
			deleted = id
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/orders/o42", nil)
	rec := httptest.NewRecorder()
	orderRouter(store, jonan).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if deleted != "o42" {
		t.Errorf("deleted id = %q, want o42", deleted)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01T10:00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseTimestamp(tt.in)
		if err != nil {
			t.Errorf("parseTimestamp(%q) = %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := parseTimestamp("next tuesday"); err == nil {
		t.Error("parseTimestamp accepted garbage")
	}
}
