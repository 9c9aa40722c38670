package appointment

import (
	"net/http"

	"bakimla-reward/pkg/errutil"
	"bakimla-reward/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r gin.IRouter) {
	r.POST("/appointments/:id/complete", h.Complete)
}

func (h *Handler) Complete(c *gin.Context) {
	tenant, ok := middleware.TenantFromContext(c.Request.Context())
	if !ok {
		_ = c.Error(errutil.BadRequest("missing company context", nil))
		return
	}

	appt, err := h.service.Complete(c.Request.Context(), tenant, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, appt)
}
