package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/derrick-solstice/e-commerce-order/internal/idempotency"
	"github.com/derrick-solstice/e-commerce-order/internal/orders"
	"github.com/derrick-solstice/e-commerce-order/internal/validation"
)

const idempotencyKeyHeader = "Idempotency-Key"

// OrderService is what the order endpoints need from the order service.
type OrderService interface {
	CreateOrder(ctx context.Context, input orders.Order) (orders.Order, error)
	GetAllOrders(ctx context.Context) ([]orders.Order, error)
	GetOneOrder(ctx context.Context, orderNumber int64) (orders.Order, error)
	UpdateOrder(ctx context.Context, orderNumber int64, patch orders.Patch) (orders.Order, error)
	DeleteOrder(ctx context.Context, orderNumber int64) error
}

// RequestKeys records Idempotency-Key usage for POST /orders.
type RequestKeys interface {
	Begin(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (*idempotency.Record, error)
	Complete(ctx context.Context, key, responseBody string, responseStatus int) error
	Fail(ctx context.Context, key, note string) error
}

// OrdersHandler serves the /orders endpoints.
type OrdersHandler struct {
	svc      OrderService
	keys     RequestKeys // optional
	validate *validatorv10.Validate
}

// NewOrdersHandler returns the order endpoints. keys may be nil to ignore Idempotency-Key.
func NewOrdersHandler(svc OrderService, keys RequestKeys, v *validatorv10.Validate) *OrdersHandler {
	return &OrdersHandler{svc: svc, keys: keys, validate: v}
}

// Routes is the order route table.
func (h *OrdersHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodPost, Path: "/orders", Handler: h.create},
		{Method: http.MethodGet, Path: "/orders", Handler: h.list},
		{Method: http.MethodGet, Path: "/orders/:orderNumber", Handler: h.get},
		{Method: http.MethodPut, Path: "/orders/:orderNumber", Handler: h.update},
		{Method: http.MethodDelete, Path: "/orders/:orderNumber", Handler: h.delete},
	}
}

func (h *OrdersHandler) create(c *gin.Context) {
	ctx := c.Request.Context()

	var req validation.CreateOrderRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		// BindAndValidate already wrote a 400
		return
	}

	key := ""
	if h.keys != nil {
		key = c.GetHeader(idempotencyKeyHeader)
	}
	if key != "" {
		claimed, err := h.keys.Begin(ctx, key)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed", "detail": err.Error()})
			return
		}
		if !claimed {
			h.replay(c, key)
			return
		}
	}

	order, err := h.svc.CreateOrder(ctx, req.Order())
	if err != nil {
		if key != "" {
			// let the client retry with the same key
			if ferr := h.keys.Fail(ctx, key, err.Error()); ferr != nil {
				log.Printf("[api] failed to release idempotency key=%s: %v", key, ferr)
			}
		}
		writeError(c, err)
		return
	}

	body, err := json.Marshal(order)
	if err != nil {
		writeError(c, err)
		return
	}
	if key != "" {
		if err := h.keys.Complete(ctx, key, string(body), http.StatusCreated); err != nil {
			log.Printf("[api] failed to store response for idempotency key=%s: %v", key, err)
		}
	}

	c.Header("Location", fmt.Sprintf("/orders/%d", order.OrderNumber))
	c.Data(http.StatusCreated, "application/json; charset=utf-8", body)
}

// replay answers a repeated Idempotency-Key with the stored outcome.
func (h *OrdersHandler) replay(c *gin.Context, key string) {
	rec, err := h.keys.Get(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed", "detail": err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_record_missing"})
		return
	}

	switch rec.Status {
	case idempotency.StatusDone:
		c.Data(rec.ResponseStatus, "application/json; charset=utf-8", []byte(rec.ResponseBody))
	case idempotency.StatusInProgress:
		c.JSON(http.StatusConflict, gin.H{"error": "request_in_progress"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_idempotency_status", "detail": rec.Status})
	}
}

func (h *OrdersHandler) list(c *gin.Context) {
	all, err := h.svc.GetAllOrders(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}

func (h *OrdersHandler) get(c *gin.Context) {
	orderNumber, ok := pathID(c, "orderNumber")
	if !ok {
		return
	}
	order, err := h.svc.GetOneOrder(c.Request.Context(), orderNumber)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrdersHandler) update(c *gin.Context) {
	orderNumber, ok := pathID(c, "orderNumber")
	if !ok {
		return
	}

	var req validation.UpdateOrderRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	order, err := h.svc.UpdateOrder(c.Request.Context(), orderNumber, req.Patch())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrdersHandler) delete(c *gin.Context) {
	orderNumber, ok := pathID(c, "orderNumber")
	if !ok {
		return
	}
	if err := h.svc.DeleteOrder(c.Request.Context(), orderNumber); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
