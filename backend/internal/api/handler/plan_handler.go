package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-advisor/backend/internal/dto"
	"ai-advisor/backend/internal/service"
	"ai-advisor/backend/pkg/response"
)

// 课表方案模块错误码
const (
	CodePlanNotFound = 22001
	CodePlanNotOwner = 22002
	CodePlanInvalid  = 22003
)

// PlanHandler 课表方案模块 HTTP 处理器
type PlanHandler struct {
	planSvc service.PlanService
}

// NewPlanHandler 创建 PlanHandler
func NewPlanHandler(planSvc service.PlanService) *PlanHandler {
	return &PlanHandler{planSvc: planSvc}
}

// ListPlans 当前用户的课表方案（最新在前）
// GET /api/v1/plans
func (h *PlanHandler) ListPlans(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	plans, err := h.planSvc.List(c.Request.Context(), userID)
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.OKList(c, plans, len(plans))
}

// CreatePlan 保存一次生成结果
// POST /api/v1/plans
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req dto.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	plan, err := h.planSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.Created(c, plan)
}

// GetPlan 课表方案详情
// GET /api/v1/plans/:id
func (h *PlanHandler) GetPlan(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "方案ID不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	plan, err := h.planSvc.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.OK(c, plan)
}

// ActivatePlan 设为当前方案
// PUT /api/v1/plans/:id/activate
func (h *PlanHandler) ActivatePlan(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "方案ID不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.planSvc.SetActive(c.Request.Context(), userID, id); err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.OK(c, nil)
}

// DeletePlan 删除课表方案
// DELETE /api/v1/plans/:id
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "方案ID不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.planSvc.Delete(c.Request.Context(), userID, id); err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.NoContent(c)
}

func (h *PlanHandler) handlePlanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		response.NotFound(c, CodePlanNotFound, "课表方案不存在")
	case errors.Is(err, service.ErrPlanNotOwner):
		// 不暴露他人方案是否存在
		response.NotFound(c, CodePlanNotOwner, "课表方案不存在")
	case errors.Is(err, service.ErrPlanInvalid):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, CodePlanInvalid, "课表方案数据不合法", err.Error())
	default:
		response.InternalError(c)
	}
}
