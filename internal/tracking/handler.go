package tracking

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"funnel/internal/logger"
	"funnel/pkg/errors"
)

// Subscriber registers a download-captured email with the marketing
// platform. Optional; a nil subscriber skips the marketing leg.
type Subscriber interface {
	SubscribeDownload(ctx context.Context, visitorID, email, leadSource, downloadType string) error
}

type Handler struct {
	Tracker    *Tracker
	Subscriber Subscriber
	Logger     logger.Logger
}

func NewHandler(tracker *Tracker, subscriber Subscriber, log logger.Logger) *Handler {
	return &Handler{
		Tracker:    tracker,
		Subscriber: subscriber,
		Logger:     log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	events := router.Group("/events")
	{
		events.POST("", h.TrackGeneric)
		events.POST("/form", h.TrackForm)
		events.POST("/download", h.TrackDownload)
		events.POST("/book-call", h.TrackBookCall)
		events.POST("/booking", h.TrackBooking)
		events.POST("/contact", h.TrackContact)
		events.GET("/config", h.GetConfig)
	}
}

// EventRequest is the generic tracking beacon.
type EventRequest struct {
	EventType string `json:"event_type" binding:"required"`
	PageContext
	LeadSource     string         `json:"lead_source"`
	FormType       string         `json:"form_type"`
	FileName       string         `json:"file_name"`
	DownloadType   string         `json:"download_type"`
	CalendarType   string         `json:"calendar_type"`
	ContactMethod  string         `json:"contact_method"`
	ButtonLocation string         `json:"button_location"`
	Extras         map[string]any `json:"extras"`
}

// TrackGeneric godoc
// @Summary      Track a funnel event
// @Description  Enriches the event with attribution and fans it out to the configured platforms
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        event  body      EventRequest  true  "Event"
// @Success      202    {object}  map[string]interface{}
// @Failure      400    {object}  map[string]interface{}
// @Router       /events [post]
func (h *Handler) TrackGeneric(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	kind, err := ParseEventKind(req.EventType)
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
			errors.ErrValidation.WithDetail("event_type", err.Error())))
		return
	}

	h.Tracker.Track(c.Request.Context(), c.GetString("visitor_id"), req.PageContext, Event{
		Kind:           kind,
		LeadSource:     req.LeadSource,
		FormType:       req.FormType,
		FileName:       req.FileName,
		DownloadType:   req.DownloadType,
		CalendarType:   req.CalendarType,
		ContactMethod:  req.ContactMethod,
		ButtonLocation: req.ButtonLocation,
		Extras:         req.Extras,
	})

	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

type formEventRequest struct {
	PageContext
	FormType   string         `json:"form_type" binding:"required"`
	LeadSource string         `json:"lead_source"`
	Extras     map[string]any `json:"extras"`
}

// TrackForm godoc
// @Summary      Track a form submission event
// @Tags         events
// @Accept       json
// @Produce      json
// @Success      202  {object}  map[string]interface{}
// @Router       /events/form [post]
func (h *Handler) TrackForm(c *gin.Context) {
	var req formEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	h.Tracker.TrackFormSubmission(c.Request.Context(), c.GetString("visitor_id"), req.PageContext,
		req.FormType, req.LeadSource, req.Extras)
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

type downloadEventRequest struct {
	PageContext
	FileName     string `json:"file_name" binding:"required"`
	LeadSource   string `json:"lead_source"`
	DownloadType string `json:"download_type"`
	Email        string `json:"email"`
}

// TrackDownload godoc
// @Summary      Track a PDF download event
// @Tags         events
// @Accept       json
// @Produce      json
// @Success      202  {object}  map[string]interface{}
// @Router       /events/download [post]
func (h *Handler) TrackDownload(c *gin.Context) {
	var req downloadEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	visitorID := c.GetString("visitor_id")
	h.Tracker.TrackPDFDownload(c.Request.Context(), visitorID, req.PageContext,
		req.FileName, req.LeadSource, req.DownloadType)

	// Pages that already know the visitor's email send it along so the
	// download also subscribes the contact to the marketing platform.
	if req.Email != "" && h.Subscriber != nil {
		if err := h.Subscriber.SubscribeDownload(c.Request.Context(), visitorID, req.Email, req.LeadSource, req.DownloadType); err != nil {
			h.Logger.WarnwCtx(c.Request.Context(), "Download subscription failed", "error", err)
		}
	}

	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

type bookCallEventRequest struct {
	PageContext
	Location string `json:"location" binding:"required"`
}

// TrackBookCall godoc
// @Summary      Track a book-call button click
// @Tags         events
// @Accept       json
// @Produce      json
// @Success      202  {object}  map[string]interface{}
// @Router       /events/book-call [post]
func (h *Handler) TrackBookCall(c *gin.Context) {
	var req bookCallEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	h.Tracker.TrackBookCallClick(c.Request.Context(), c.GetString("visitor_id"), req.PageContext, req.Location)
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

type bookingEventRequest struct {
	PageContext
	CalendarType string         `json:"calendar_type" binding:"required"`
	Extras       map[string]any `json:"extras"`
}

// TrackBooking godoc
// @Summary      Track a completed calendar booking
// @Tags         events
// @Accept       json
// @Produce      json
// @Success      202  {object}  map[string]interface{}
// @Router       /events/booking [post]
func (h *Handler) TrackBooking(c *gin.Context) {
	var req bookingEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	h.Tracker.TrackCalendarBooking(c.Request.Context(), c.GetString("visitor_id"), req.PageContext,
		req.CalendarType, req.Extras)
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

type contactEventRequest struct {
	PageContext
	Method   string `json:"method" binding:"required,oneof=email phone"`
	Location string `json:"location"`
}

// TrackContact godoc
// @Summary      Track an email or phone contact click
// @Tags         events
// @Accept       json
// @Produce      json
// @Success      202  {object}  map[string]interface{}
// @Router       /events/contact [post]
func (h *Handler) TrackContact(c *gin.Context) {
	var req contactEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	h.Tracker.TrackContactClick(c.Request.Context(), c.GetString("visitor_id"), req.PageContext,
		req.Method, req.Location)
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// GetConfig godoc
// @Summary      Get the client-side tracking bootstrap settings
// @Tags         events
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /events/config [get]
func (h *Handler) GetConfig(c *gin.Context) {
	cfg := h.Tracker.Config()
	c.JSON(http.StatusOK, gin.H{
		"gtm_id": cfg.GTMID,
		"source": cfg.Source,
	})
}
