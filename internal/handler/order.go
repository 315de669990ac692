package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"claycutter/internal/model"
	"claycutter/internal/mw"
	"claycutter/internal/service"
)

const (
	maxUploadMemory = 32 << 20
	maxFileSize     = 50 << 20
)

// allowedMimeTypes covers .stl, .zip, and image attachments.
var allowedMimeTypes = map[string]bool{
	"application/octet-stream": true,
	"application/zip":          true,
	"image/png":                true,
	"image/jpeg":               true,
	"image/jpg":                true,
}

// OrderStore is the slice of OrderService the order endpoints need.
type OrderStore interface {
	Create(ctx context.Context, vendor *model.User, in service.CreateOrderInput, uploads []service.Upload) (*model.Order, error)
	Get(ctx context.Context, viewer *model.User, id string) (*model.Order, error)
	List(ctx context.Context, viewer *model.User, status *model.OrderStatus) ([]model.Order, error)
	UpdateStatus(ctx context.Context, actor *model.User, id string, status model.OrderStatus, pickupTime *time.Time) (*model.Order, error)
	Delete(ctx context.Context, actor *model.User, id string) error
}

// parseTimestamp accepts RFC 3339 and the zone-less variant the frontend's
// datetime pickers produce.
func parseTimestamp(s string) (*time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp %q", s)
}

func CreateOrderHandler(orderSvc OrderStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := mw.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}

		in := service.CreateOrderInput{
			ItemName:      r.FormValue("item_name"),
			ColorMaterial: r.FormValue("color_material"),
			Notes:         r.FormValue("notes"),
		}
		if qty := r.FormValue("quantity"); qty != "" {
			n, err := strconv.Atoi(qty)
			if err != nil {
				writeError(w, http.StatusBadRequest, "quantity must be a number")
				return
			}
			in.Quantity = n
		}
		if pd := r.FormValue("preferred_date"); pd != "" {
			t, err := parseTimestamp(pd)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			in.PreferredDate = t
		}

		var uploads []service.Upload
		if r.MultipartForm != nil {
			for _, fh := range r.MultipartForm.File["files"] {
				if fh.Size > maxFileSize {
					writeError(w, http.StatusRequestEntityTooLarge,
						fmt.Sprintf("file %s is too large", fh.Filename))
					return
				}
				mimeType := fh.Header.Get("Content-Type")
				if !allowedMimeTypes[mimeType] {
					writeError(w, http.StatusBadRequest,
						fmt.Sprintf("file type %s not allowed", mimeType))
					return
				}
				f, err := fh.Open()
				if err != nil {
					writeError(w, http.StatusBadRequest, "unreadable upload")
					return
				}
				defer f.Close()
				uploads = append(uploads, service.Upload{
					Filename: fh.Filename,
					MimeType: mimeType,
					Size:     fh.Size,
					Content:  f,
				})
			}
		}

		order, err := orderSvc.Create(r.Context(), user, in, uploads)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, order)
	}
}

func ListOrdersHandler(orderSvc OrderStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := mw.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var status *model.OrderStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			parsed, err := model.ParseOrderStatus(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			status = &parsed
		}

		orders, err := orderSvc.List(r.Context(), user, status)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if orders == nil {
			orders = []model.Order{}
		}

		writeJSON(w, http.StatusOK, orders)
	}
}

func GetOrderHandler(orderSvc OrderStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := mw.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		order, err := orderSvc.Get(r.Context(), user, chi.URLParam(r, "orderID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

type updateOrderRequest struct {
	Status     string  `json:"status"`
	PickupTime *string `json:"pickup_time"`
}

func UpdateOrderHandler(orderSvc OrderStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := mw.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req updateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}

		status, err := model.ParseOrderStatus(req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var pickup *time.Time
		if req.PickupTime != nil && *req.PickupTime != "" {
			pickup, err = parseTimestamp(*req.PickupTime)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		order, err := orderSvc.UpdateStatus(r.Context(), user, chi.URLParam(r, "orderID"), status, pickup)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

func DeleteOrderHandler(orderSvc OrderStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := mw.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if err := orderSvc.Delete(r.Context(), user, chi.URLParam(r, "orderID")); err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "order deleted"})
	}
}
