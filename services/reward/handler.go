package reward

import (
	"net/http"

	"bakimla-reward/pkg/db/pagination"
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
	g := r.Group("/rewards")
	g.GET("/stats", h.GetStats)
	g.GET("/transactions", h.ListTransactions)
	g.GET("/verify", h.VerifyChain)
	g.POST("/withdrawals", h.RequestWithdrawal)
	g.POST("/withdrawals/:id/complete", h.CompleteWithdrawal)
}

func companyID(c *gin.Context) (string, bool) {
	tenant, ok := middleware.TenantFromContext(c.Request.Context())
	if !ok || tenant.CompanyID == "" {
		_ = c.Error(errutil.BadRequest("missing company context", nil))
		return "", false
	}
	return tenant.CompanyID, true
}

func (h *Handler) GetStats(c *gin.Context) {
	id, ok := companyID(c)
	if !ok {
		return
	}

	stats, err := h.service.GetStats(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) RequestWithdrawal(c *gin.Context) {
	id, ok := companyID(c)
	if !ok {
		return
	}

	result, err := h.service.RequestWithdrawal(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

type listQuery struct {
	pagination.Pagination
	Type   string `form:"type" binding:"omitempty,oneof=earn withdrawal"`
	Status string `form:"status" binding:"omitempty,oneof=pending completed"`
}

type listResponse struct {
	Data     []*RewardTransaction `json:"data"`
	PageInfo *pagination.PageInfo `json:"pageInfo"`
}

func (h *Handler) ListTransactions(c *gin.Context) {
	id, ok := companyID(c)
	if !ok {
		return
	}

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(err)
		return
	}

	items, info, err := h.service.ListTransactions(c.Request.Context(), id, ListFilter{
		Type:   TransactionType(q.Type),
		Status: TransactionStatus(q.Status),
		Cursor: q.Cursor,
		Limit:  q.Limit,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	if items == nil {
		items = []*RewardTransaction{}
	}

	c.JSON(http.StatusOK, listResponse{Data: items, PageInfo: info})
}

func (h *Handler) VerifyChain(c *gin.Context) {
	id, ok := companyID(c)
	if !ok {
		return
	}

	result, err := h.service.VerifyChain(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) CompleteWithdrawal(c *gin.Context) {
	id, ok := companyID(c)
	if !ok {
		return
	}

	entry, err := h.service.CompleteWithdrawal(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, entry)
}
