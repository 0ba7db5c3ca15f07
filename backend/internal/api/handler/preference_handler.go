package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-advisor/backend/internal/api/middleware"
	"ai-advisor/backend/internal/dto"
	"ai-advisor/backend/internal/service"
	"ai-advisor/backend/pkg/response"
)

// 偏好模块错误码
const (
	CodePreferenceNotFound = 20001
	CodePreferenceInvalid  = 20002
	CodeICSInvalid         = 20101
	CodeICSNotConfigured   = 20102
)

// PreferenceHandler 偏好模块 HTTP 处理器
type PreferenceHandler struct {
	prefSvc   service.PreferenceService
	importSvc service.ImportService
}

// NewPreferenceHandler 创建 PreferenceHandler
func NewPreferenceHandler(prefSvc service.PreferenceService, importSvc service.ImportService) *PreferenceHandler {
	return &PreferenceHandler{prefSvc: prefSvc, importSvc: importSvc}
}

// GetPreference 读取当前用户的偏好
// GET /api/v1/preferences
func (h *PreferenceHandler) GetPreference(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	pref, err := h.prefSvc.Get(c.Request.Context(), userID)
	if err != nil {
		h.handlePreferenceError(c, err)
		return
	}

	response.OK(c, pref)
}

// UpsertPreference 覆盖保存当前用户的偏好
// PUT /api/v1/preferences
func (h *PreferenceHandler) UpsertPreference(c *gin.Context) {
	var req dto.UpsertPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if middleware.IsBodyTooLarge(err) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			return
		}
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	pref, err := h.prefSvc.Upsert(c.Request.Context(), userID, &req)
	if err != nil {
		h.handlePreferenceError(c, err)
		return
	}

	response.OK(c, pref)
}

// ImportBlacklist 从日历文件解析屏蔽时段（不写库，由客户端合并到草稿）
// POST /api/v1/preferences/blacklist/import
// 支持 multipart 字段 file，或直接以 text/calendar 作为请求体
func (h *PreferenceHandler) ImportBlacklist(c *gin.Context) {
	var reader io.Reader = c.Request.Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, 10001, "无法读取上传文件")
			return
		}
		defer f.Close()
		reader = f
	}

	result, err := h.importSvc.ImportBlacklist(c.Request.Context(), reader)
	if err != nil {
		h.handlePreferenceError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *PreferenceHandler) handlePreferenceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPreferenceNotFound):
		response.NotFound(c, CodePreferenceNotFound, "尚未保存排课偏好")
	case errors.Is(err, service.ErrPreferenceInvalid):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, CodePreferenceInvalid, "排课偏好不合法", err.Error())
	case errors.Is(err, service.ErrICSInvalid):
		response.ErrorWithDetails(c, http.StatusBadRequest, CodeICSInvalid, "日历文件格式错误", err.Error())
	case errors.Is(err, service.ErrICSPeriodConfig):
		response.Error(c, http.StatusServiceUnavailable, CodeICSNotConfigured, "节次时间未配置")
	default:
		response.InternalError(c)
	}
}
