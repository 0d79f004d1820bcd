package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route binds one method and path pattern to a handler.
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// Register adds every route of the table to r.
func Register(r gin.IRoutes, routes []Route) {
	for _, rt := range routes {
		r.Handle(rt.Method, rt.Path, rt.Handler)
	}
}

// NewRouter builds the engine with recovery, request logging, health check and the
// order and line route tables.
func NewRouter(ordersHandler *OrdersHandler, linesHandler *LinesHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	Register(r, ordersHandler.Routes())
	Register(r, linesHandler.Routes())
	return r
}
