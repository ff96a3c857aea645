// Package api exposes location resolution and author attachment over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bookmap/backend/internal/geo"
	"bookmap/backend/internal/graph"
	apperrors "bookmap/backend/pkg/errors"
)

// GeoService is the graph behaviour the handlers depend on
type GeoService interface {
	ResolveOrCreate(ctx context.Context, loc geo.Location) (*graph.Resolution, error)
	Attach(ctx context.Context, author graph.Author, loc *geo.Location) (*graph.Country, error)
	AncestorOf(ctx context.Context, goodreadsID string, kind geo.Kind) (*graph.Node, error)
	Exists(ctx context.Context, pair geo.Pair, child, parent string) (bool, error)
}

// Handler serves the /api routes
type Handler struct {
	service GeoService
	logger  *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(svc GeoService, log *zap.Logger) *Handler {
	return &Handler{service: svc, logger: log}
}

// Register mounts the handler's routes on r
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.POST("/locations/resolve", h.ResolveLocation)
		api.POST("/authors", h.AttachAuthor)
		api.GET("/authors/:id/ancestors/:kind", h.Ancestor)
		api.GET("/hierarchy/exists", h.Exists)
	}
}

type attachRequest struct {
	Author     graph.Author  `json:"author"`
	Birthplace *geo.Location `json:"birthplace"`
}

// ResolveLocation handles POST /api/locations/resolve
func (h *Handler) ResolveLocation(c *gin.Context) {
	var loc geo.Location
	if err := c.ShouldBindJSON(&loc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.service.ResolveOrCreate(c.Request.Context(), loc)
	if err != nil {
		h.fail(c, "Failed to resolve location", err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// AttachAuthor handles POST /api/authors
func (h *Handler) AttachAuthor(c *gin.Context) {
	var req attachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	country, err := h.service.Attach(c.Request.Context(), req.Author, req.Birthplace)
	if err != nil {
		h.fail(c, "Failed to attach author", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"goodreads_id": req.Author.GoodreadsID,
		"country":      country,
	})
}

// Ancestor handles GET /api/authors/:id/ancestors/:kind
func (h *Handler) Ancestor(c *gin.Context) {
	kind, err := geo.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	node, err := h.service.AncestorOf(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		h.fail(c, "Failed to query ancestor", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ancestor": node})
}

// Exists handles GET /api/hierarchy/exists?pair=&child=&parent=
func (h *Handler) Exists(c *gin.Context) {
	pair, err := geo.ParsePair(c.Query("pair"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	found, err := h.service.Exists(c.Request.Context(), pair, c.Query("child"), c.Query("parent"))
	if err != nil {
		h.fail(c, "Failed to check hierarchy", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"exists": found})
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	if apperrors.IsValidation(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":     "internal server error",
		"retryable": apperrors.IsRetryable(err),
	})
}
