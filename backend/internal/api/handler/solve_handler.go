package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"ai-advisor/backend/internal/service"
	pkgerrors "ai-advisor/backend/pkg/errors"
	"ai-advisor/backend/pkg/response"
)

// 求解模块错误码
const (
	CodeSolveInProgress = 21001
	CodeSolverDown      = 21002
)

// SolveHandler 求解模块 HTTP 处理器
type SolveHandler struct {
	solveSvc service.SolveService
}

// NewSolveHandler 创建 SolveHandler
func NewSolveHandler(solveSvc service.SolveService) *SolveHandler {
	return &SolveHandler{solveSvc: solveSvc}
}

// Solve 以调用者最近一次保存的偏好求解课表
// POST /api/v1/solve
// 求解服务明确报告的失败以 200 返回，status != "success"
func (h *SolveHandler) Solve(c *gin.Context) {
	result, err := h.solveSvc.Solve(c.Request.Context(), OptionalUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrLockHeld):
			response.Conflict(c, CodeSolveInProgress, pkgerrors.ErrLockHeld.Error())
		case errors.Is(err, pkgerrors.ErrUpstreamUnavailable):
			response.BadGateway(c, CodeSolverDown, pkgerrors.ErrUpstreamUnavailable.Error(), err.Error())
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, result)
}
