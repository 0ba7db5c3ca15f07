package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"ai-advisor/backend/internal/service"
	"ai-advisor/backend/pkg/response"
)

// 导出模块错误码
const (
	CodeExportFormat      = 23001
	CodeExportTermInvalid = 23002
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportPlan 导出课表方案
// GET /api/v1/export/plans/:id?format=xlsx|ics（默认 xlsx）
func (h *ExportHandler) ExportPlan(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "方案ID不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var (
		export      func(context.Context, string, string) (*bytes.Buffer, string, error)
		contentType string
	)
	switch c.DefaultQuery("format", "xlsx") {
	case "xlsx":
		export, contentType = h.exportSvc.ExportPlanExcel, contentTypeXLSX
	case "ics":
		export, contentType = h.exportSvc.ExportPlanICS, contentTypeICS
	default:
		response.BadRequest(c, CodeExportFormat, "format 仅支持 xlsx 或 ics")
		return
	}

	buf, filename, err := export(c.Request.Context(), userID, id)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound), errors.Is(err, service.ErrPlanNotOwner):
		response.NotFound(c, CodePlanNotFound, "课表方案不存在")
	case errors.Is(err, service.ErrExportTermInvalid):
		response.Error(c, http.StatusServiceUnavailable, CodeExportTermInvalid, "学期日历未配置，无法导出")
	default:
		response.InternalError(c)
	}
}
