package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/derrick-solstice/e-commerce-order/internal/apperr"
)

// writeError maps an error kind to its status code and a JSON error body.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		status, code = http.StatusBadGateway, "upstream_unavailable"
	case errors.Is(err, apperr.ErrPersistence):
		status, code = http.StatusInternalServerError, "persistence_failure"
	}

	if status >= http.StatusInternalServerError {
		log.Printf("[api] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": code, "detail": err.Error()})
}

// pathID parses a numeric path parameter. On failure it writes a 400 and returns false.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "invalid_path_parameter",
			"detail": name + " must be a positive integer",
		})
		return 0, false
	}
	return id, true
}
