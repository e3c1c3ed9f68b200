package lead

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"funnel/internal/logger"
	"funnel/pkg/errors"
)

type Handler struct {
	Service *Service
	Logger  logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	leads := router.Group("/leads")
	{
		leads.POST("", h.Submit)
		leads.POST("/workflow", h.EnrollWorkflow)
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

// Submit godoc
// @Summary      Submit a lead
// @Description  Validates the lead and forwards it to the CRM and the marketing platform
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        lead  body      Submission  true  "Lead"
// @Success      200   {object}  Result
// @Failure      400   {object}  map[string]interface{}
// @Failure      502   {object}  map[string]interface{}
// @Router       /leads [post]
func (h *Handler) Submit(c *gin.Context) {
	var sub Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	result, err := h.Service.Submit(c.Request.Context(), c.GetString("visitor_id"), sub)
	if err != nil {
		if result != nil {
			// Provider failure: pass the upstream status through but keep
			// the per-provider outcomes in the body.
			response := errors.ToErrorResponse(err)
			response["providers"] = result.Providers
			c.JSON(errors.ToHTTPStatus(err), response)
			return
		}
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// EnrollWorkflow godoc
// @Summary      Enroll a contact in a marketing workflow
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        enrollment  body      WorkflowRequest  true  "Enrollment"
// @Success      200         {object}  map[string]interface{}
// @Failure      400         {object}  map[string]interface{}
// @Failure      502         {object}  map[string]interface{}
// @Router       /leads/workflow [post]
func (h *Handler) EnrollWorkflow(c *gin.Context) {
	var req WorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	if err := h.Service.EnrollWorkflow(c.Request.Context(), req); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "contact enrolled in workflow"})
}
