package attribution

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"funnel/internal/config"
	"funnel/internal/logger"
	"funnel/pkg/errors"
)

// DataLayerReader exposes the visitor's accumulated data-layer entries.
type DataLayerReader interface {
	Entries(ctx context.Context, visitorID string) ([]map[string]any, error)
}

type BaseHandler struct {
	Logger logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
	Store      *Store
	DataLayer  DataLayerReader
	Scheduling config.SchedulingConfig
}

func NewHandler(store *Store, dataLayer DataLayerReader, scheduling config.SchedulingConfig, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{Logger: log},
		Store:       store,
		DataLayer:   dataLayer,
		Scheduling:  scheduling,
	}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	attr := router.Group("/attribution")
	{
		attr.POST("", h.Capture)
		attr.GET("", h.Get)
		attr.DELETE("", h.Clear)
		attr.GET("/datalayer", h.GetDataLayer)
		attr.GET("/scheduling-link", h.GetSchedulingLink)
	}
}

// CaptureRequest is the page-load beacon. The campaign parameters are parsed
// server-side from the page URL's query string.
type CaptureRequest struct {
	PageURL  string `json:"page_url" binding:"required"`
	Referrer string `json:"referrer"`
}

// Capture godoc
// @Summary      Capture attribution from a page load
// @Description  Parses campaign parameters from the page URL and stores the visitor's attribution
// @Tags         attribution
// @Accept       json
// @Produce      json
// @Param        beacon  body      CaptureRequest  true  "Page load beacon"
// @Success      200     {object}  Record
// @Failure      400     {object}  map[string]interface{}
// @Router       /attribution [post]
func (h *Handler) Capture(c *gin.Context) {
	var req CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	pageURL, err := url.Parse(req.PageURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
			errors.ErrValidation.WithDetail("page_url", "not a valid URL")))
		return
	}

	record, captureErr := h.Store.Capture(c.Request.Context(), c.GetString("visitor_id"),
		ParamsFromQuery(pageURL.Query()),
		PageContext{Referrer: req.Referrer, LandingPage: req.PageURL},
	)
	if captureErr != nil {
		h.HandleError(c, captureErr)
		return
	}

	if record == nil {
		c.JSON(http.StatusOK, gin.H{"attribution": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attribution": record})
}

// Get godoc
// @Summary      Get the visitor's active attribution
// @Tags         attribution
// @Produce      json
// @Success      200  {object}  Record
// @Router       /attribution [get]
func (h *Handler) Get(c *gin.Context) {
	record, err := h.Store.Get(c.Request.Context(), c.GetString("visitor_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attribution": record})
}

// Clear godoc
// @Summary      Clear the visitor's attribution
// @Tags         attribution
// @Produce      json
// @Success      204  "cleared"
// @Router       /attribution [delete]
func (h *Handler) Clear(c *gin.Context) {
	if err := h.Store.Clear(c.Request.Context(), c.GetString("visitor_id")); err != nil {
		h.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetDataLayer godoc
// @Summary      Get the visitor's accumulated data-layer entries
// @Tags         attribution
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /attribution/datalayer [get]
func (h *Handler) GetDataLayer(c *gin.Context) {
	entries, err := h.DataLayer.Entries(c.Request.Context(), c.GetString("visitor_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetSchedulingLink godoc
// @Summary      Get the booking page URL decorated with the visitor's attribution
// @Tags         attribution
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /attribution/scheduling-link [get]
func (h *Handler) GetSchedulingLink(c *gin.Context) {
	record, err := h.Store.Get(c.Request.Context(), c.GetString("visitor_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	link, err := SchedulingLink(h.Scheduling.BaseURL, h.Scheduling.ExtraParams, record)
	if err != nil {
		h.HandleError(c, errors.ErrInternal.WithCause(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": link})
}
