package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/derrick-solstice/e-commerce-order/internal/apperr"
	"github.com/derrick-solstice/e-commerce-order/internal/lines"
	"github.com/derrick-solstice/e-commerce-order/internal/validation"
)

// LineService is what the line endpoints need from the line service.
type LineService interface {
	SaveLine(ctx context.Context, l lines.Line) (lines.Line, error)
	GetAllLinesForOrder(ctx context.Context, orderNumber int64) ([]lines.Line, error)
	GetOneLineByID(ctx context.Context, lineItemID int64) (lines.Line, error)
	DeleteLine(ctx context.Context, lineItemID int64) error
}

// LinesHandler serves the /orders/{orderNumber}/lines endpoints.
type LinesHandler struct {
	svc      LineService
	validate *validatorv10.Validate
}

func NewLinesHandler(svc LineService, v *validatorv10.Validate) *LinesHandler {
	return &LinesHandler{svc: svc, validate: v}
}

// Routes is the line route table.
func (h *LinesHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodPost, Path: "/orders/:orderNumber/lines", Handler: h.create},
		{Method: http.MethodGet, Path: "/orders/:orderNumber/lines", Handler: h.list},
		{Method: http.MethodGet, Path: "/orders/:orderNumber/lines/:lineId", Handler: h.get},
		{Method: http.MethodDelete, Path: "/orders/:orderNumber/lines/:lineId", Handler: h.delete},
	}
}

func (h *LinesHandler) create(c *gin.Context) {
	orderNumber, ok := pathID(c, "orderNumber")
	if !ok {
		return
	}

	var req validation.CreateLineRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	// the owning order comes from the path, never from the body
	saved, err := h.svc.SaveLine(c.Request.Context(), req.Line(orderNumber))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/orders/%d/lines/%d", orderNumber, saved.LineItemID))
	c.JSON(http.StatusCreated, saved)
}

func (h *LinesHandler) list(c *gin.Context) {
	orderNumber, ok := pathID(c, "orderNumber")
	if !ok {
		return
	}
	all, err := h.svc.GetAllLinesForOrder(c.Request.Context(), orderNumber)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}

func (h *LinesHandler) get(c *gin.Context) {
	orderNumber, ok := pathID(c, "orderNumber")
	if !ok {
		return
	}
	lineID, ok := pathID(c, "lineId")
	if !ok {
		return
	}

	line, err := h.svc.GetOneLineByID(c.Request.Context(), lineID)
	if err != nil {
		writeError(c, err)
		return
	}
	if line.OrderNumber != orderNumber {
		writeError(c, fmt.Errorf("line %d of order %d: %w", lineID, orderNumber, apperr.ErrNotFound))
		return
	}
	c.JSON(http.StatusOK, line)
}

func (h *LinesHandler) delete(c *gin.Context) {
	if _, ok := pathID(c, "orderNumber"); !ok {
		return
	}
	lineID, ok := pathID(c, "lineId")
	if !ok {
		return
	}
	if err := h.svc.DeleteLine(c.Request.Context(), lineID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
