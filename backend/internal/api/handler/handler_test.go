package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"ai-advisor/backend/internal/api/middleware"
	"ai-advisor/backend/internal/dto"
	"ai-advisor/backend/internal/planner"
	"ai-advisor/backend/internal/service"
	pkgerrors "ai-advisor/backend/pkg/errors"
	"ai-advisor/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock PreferenceService ──

type mockPreferenceService struct {
	getResult    *dto.PreferenceResponse
	getErr       error
	upsertResult *dto.PreferenceResponse
	upsertErr    error
	lastUserID   string
	lastUpsert   *dto.UpsertPreferenceRequest
}

func (m *mockPreferenceService) Get(_ context.Context, userID string) (*dto.PreferenceResponse, error) {
	m.lastUserID = userID
	return m.getResult, m.getErr
}
func (m *mockPreferenceService) Upsert(_ context.Context, userID string, req *dto.UpsertPreferenceRequest) (*dto.PreferenceResponse, error) {
	m.lastUserID = userID
	m.lastUpsert = req
	return m.upsertResult, m.upsertErr
}
func (m *mockPreferenceService) Effective(_ context.Context, _ string) (planner.Preference, error) {
	return planner.DefaultPreference(), nil
}

// ── Mock ImportService ──

type mockImportService struct {
	result  *dto.BlacklistImportResponse
	err     error
	payload string
}

func (m *mockImportService) ImportBlacklist(_ context.Context, r io.Reader) (*dto.BlacklistImportResponse, error) {
	b, _ := io.ReadAll(r)
	m.payload = string(b)
	return m.result, m.err
}

// ── Mock SolveService ──

type mockSolveService struct {
	result     *dto.SolveResponse
	err        error
	lastUserID string
	calls      int
}

func (m *mockSolveService) Solve(_ context.Context, userID string) (*dto.SolveResponse, error) {
	m.calls++
	m.lastUserID = userID
	return m.result, m.err
}

// ── Mock PlanService ──

type mockPlanService struct {
	createResult *dto.PlanResponse
	createErr    error
	listResult   []dto.PlanResponse
	listErr      error
	getResult    *dto.PlanResponse
	getErr       error
	activateErr  error
	deleteErr    error
}

func (m *mockPlanService) Create(_ context.Context, _ string, _ *dto.CreatePlanRequest) (*dto.PlanResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockPlanService) List(_ context.Context, _ string) ([]dto.PlanResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockPlanService) Get(_ context.Context, _, _ string) (*dto.PlanResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockPlanService) SetActive(_ context.Context, _, _ string) error {
	return m.activateErr
}
func (m *mockPlanService) Delete(_ context.Context, _, _ string) error {
	return m.deleteErr
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
	format   string
}

func (m *mockExportService) ExportPlanExcel(_ context.Context, _, _ string) (*bytes.Buffer, string, error) {
	m.format = "xlsx"
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportPlanICS(_ context.Context, _, _ string) (*bytes.Buffer, string, error) {
	m.format = "ics"
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

const testUserID = "9b2f0c1e-4a8d-4f7e-9c61-2d5e8a7b3c10"

// withAuth 模拟 JWTAuth 中间件注入用户信息
func withAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, testUserID)
		c.Set(middleware.ContextRole, "authenticated")
		c.Next()
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func serve(r *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// PreferenceHandler Tests
// ═══════════════════════════════════════════════════════════

func TestPreferenceHandler_Get_Success(t *testing.T) {
	mock := &mockPreferenceService{getResult: &dto.PreferenceResponse{UserID: testUserID, MinCredits: 12, MaxCredits: 16}}
	h := NewPreferenceHandler(mock, &mockImportService{})

	r := gin.New()
	r.GET("/preferences", withAuth(), h.GetPreference)
	w := serve(r, "GET", "/preferences", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.lastUserID != testUserID {
		t.Errorf("应按 token 中的用户读取，实际=%s", mock.lastUserID)
	}
}

func TestPreferenceHandler_Get_NotFound(t *testing.T) {
	mock := &mockPreferenceService{getErr: service.ErrPreferenceNotFound}
	h := NewPreferenceHandler(mock, &mockImportService{})

	r := gin.New()
	r.GET("/preferences", withAuth(), h.GetPreference)
	w := serve(r, "GET", "/preferences", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != CodePreferenceNotFound {
		t.Errorf("expected code %d, got %d", CodePreferenceNotFound, resp.Code)
	}
}

func TestPreferenceHandler_Get_Unauthenticated(t *testing.T) {
	h := NewPreferenceHandler(&mockPreferenceService{}, &mockImportService{})

	r := gin.New()
	r.GET("/preferences", h.GetPreference)
	w := serve(r, "GET", "/preferences", nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestPreferenceHandler_Upsert_Success(t *testing.T) {
	mock := &mockPreferenceService{upsertResult: &dto.PreferenceResponse{UserID: testUserID}}
	h := NewPreferenceHandler(mock, &mockImportService{})

	r := gin.New()
	r.PUT("/preferences", withAuth(), h.UpsertPreference)
	w := serve(r, "PUT", "/preferences", jsonBody(dto.UpsertPreferenceRequest{
		MajorCount: 2, MinorCount: 1, ElectiveCount: 1, MinCredits: 12, MaxCredits: 16,
		Blacklist: []planner.Slot{{Day: "M", Period: 5}},
	}))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.lastUpsert == nil || len(mock.lastUpsert.Blacklist) != 1 {
		t.Errorf("请求体未正确绑定: %+v", mock.lastUpsert)
	}
}

func TestPreferenceHandler_Upsert_BadJSON(t *testing.T) {
	h := NewPreferenceHandler(&mockPreferenceService{}, &mockImportService{})

	r := gin.New()
	r.PUT("/preferences", withAuth(), h.UpsertPreference)
	w := serve(r, "PUT", "/preferences", strings.NewReader("{bad"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestPreferenceHandler_Upsert_Invalid(t *testing.T) {
	mock := &mockPreferenceService{upsertErr: fmt.Errorf("%w: min_credits: too big", service.ErrPreferenceInvalid)}
	h := NewPreferenceHandler(mock, &mockImportService{})

	r := gin.New()
	r.PUT("/preferences", withAuth(), h.UpsertPreference)
	w := serve(r, "PUT", "/preferences", jsonBody(dto.UpsertPreferenceRequest{MinCredits: 20, MaxCredits: 10}))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
	if resp := parseResponse(w); !strings.Contains(resp.Details, "min_credits") {
		t.Errorf("details 应包含校验信息，实际=%q", resp.Details)
	}
}

func TestPreferenceHandler_ImportBlacklist_RawBody(t *testing.T) {
	imp := &mockImportService{result: &dto.BlacklistImportResponse{Slots: []planner.Slot{{Day: "T", Period: 2}}, Events: 1}}
	h := NewPreferenceHandler(&mockPreferenceService{}, imp)

	r := gin.New()
	r.POST("/preferences/blacklist/import", withAuth(), h.ImportBlacklist)
	req := httptest.NewRequest("POST", "/preferences/blacklist/import", strings.NewReader("BEGIN:VCALENDAR"))
	req.Header.Set("Content-Type", "text/calendar")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if imp.payload != "BEGIN:VCALENDAR" {
		t.Errorf("请求体应原样交给导入服务，实际=%q", imp.payload)
	}
}

func TestPreferenceHandler_ImportBlacklist_Invalid(t *testing.T) {
	imp := &mockImportService{err: fmt.Errorf("%w: eof", service.ErrICSInvalid)}
	h := NewPreferenceHandler(&mockPreferenceService{}, imp)

	r := gin.New()
	r.POST("/preferences/blacklist/import", withAuth(), h.ImportBlacklist)
	w := serve(r, "POST", "/preferences/blacklist/import", strings.NewReader("junk"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != CodeICSInvalid {
		t.Errorf("expected code %d, got %d", CodeICSInvalid, resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// SolveHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSolveHandler_Success(t *testing.T) {
	mock := &mockSolveService{result: &dto.SolveResponse{Status: "success", ScheduledCourses: []planner.SlotRecord{}}}
	h := NewSolveHandler(mock)

	r := gin.New()
	r.POST("/solve", withAuth(), h.Solve)
	w := serve(r, "POST", "/solve", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.lastUserID != testUserID {
		t.Errorf("应使用 token 中的用户，实际=%q", mock.lastUserID)
	}
}

func TestSolveHandler_Anonymous(t *testing.T) {
	mock := &mockSolveService{result: &dto.SolveResponse{Status: "success"}}
	h := NewSolveHandler(mock)

	r := gin.New()
	r.POST("/solve", h.Solve)
	w := serve(r, "POST", "/solve", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.lastUserID != "" {
		t.Errorf("匿名请求 user_id 应为空，实际=%q", mock.lastUserID)
	}
}

func TestSolveHandler_SolverFailureIs200(t *testing.T) {
	mock := &mockSolveService{result: &dto.SolveResponse{Status: "infeasible", ErrorMessage: "credit range too narrow"}}
	h := NewSolveHandler(mock)

	r := gin.New()
	r.POST("/solve", withAuth(), h.Solve)
	w := serve(r, "POST", "/solve", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	var body struct {
		Data dto.SolveResponse `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.ErrorMessage != "credit range too narrow" {
		t.Errorf("失败信息应原样返回，实际=%q", body.Data.ErrorMessage)
	}
}

func TestSolveHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHTTP int
		wantCode int
	}{
		{"锁被占用", pkgerrors.ErrLockHeld, http.StatusConflict, CodeSolveInProgress},
		{"上游不可用", fmt.Errorf("%w: dial tcp", pkgerrors.ErrUpstreamUnavailable), http.StatusBadGateway, CodeSolverDown},
		{"其他错误", errors.New("db down"), http.StatusInternalServerError, 50000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSolveHandler(&mockSolveService{err: tt.err})
			r := gin.New()
			r.POST("/solve", withAuth(), h.Solve)
			w := serve(r, "POST", "/solve", nil)

			if w.Code != tt.wantHTTP {
				t.Errorf("expected %d, got %d", tt.wantHTTP, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// PlanHandler Tests
// ═══════════════════════════════════════════════════════════

func TestPlanHandler_Create_Success(t *testing.T) {
	mock := &mockPlanService{createResult: &dto.PlanResponse{ID: "plan-1", Name: "Spring"}}
	h := NewPlanHandler(mock)

	r := gin.New()
	r.POST("/plans", withAuth(), h.CreatePlan)
	w := serve(r, "POST", "/plans", jsonBody(dto.CreatePlanRequest{
		Name:    "Spring",
		Courses: []planner.ConsolidatedCourse{{CourseID: "COP3502", Slots: []planner.Slot{{Day: "M", Period: 3}}}},
	}))

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestPlanHandler_Create_MissingCourses(t *testing.T) {
	h := NewPlanHandler(&mockPlanService{})

	r := gin.New()
	r.POST("/plans", withAuth(), h.CreatePlan)
	w := serve(r, "POST", "/plans", jsonBody(map[string]interface{}{"name": "Spring"}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestPlanHandler_List(t *testing.T) {
	mock := &mockPlanService{listResult: []dto.PlanResponse{{ID: "a"}, {ID: "b"}}}
	h := NewPlanHandler(mock)

	r := gin.New()
	r.GET("/plans", withAuth(), h.ListPlans)
	w := serve(r, "GET", "/plans", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	var body struct {
		Data response.ListData `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.Total != 2 {
		t.Errorf("expected total 2, got %d", body.Data.Total)
	}
}

func TestPlanHandler_Get_NotOwnerHidden(t *testing.T) {
	h := NewPlanHandler(&mockPlanService{getErr: service.ErrPlanNotOwner})

	r := gin.New()
	r.GET("/plans/:id", withAuth(), h.GetPlan)
	w := serve(r, "GET", "/plans/plan-9", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("他人方案应返回 404，实际 %d", w.Code)
	}
}

func TestPlanHandler_ActivateAndDelete(t *testing.T) {
	h := NewPlanHandler(&mockPlanService{})

	r := gin.New()
	r.PUT("/plans/:id/activate", withAuth(), h.ActivatePlan)
	r.DELETE("/plans/:id", withAuth(), h.DeletePlan)

	if w := serve(r, "PUT", "/plans/plan-1/activate", nil); w.Code != http.StatusOK {
		t.Errorf("activate: expected 200, got %d", w.Code)
	}
	if w := serve(r, "DELETE", "/plans/plan-1", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_Formats(t *testing.T) {
	tests := []struct {
		query       string
		wantFormat  string
		contentType string
	}{
		{"", "xlsx", contentTypeXLSX},
		{"?format=xlsx", "xlsx", contentTypeXLSX},
		{"?format=ics", "ics", contentTypeICS},
	}
	for _, tt := range tests {
		mock := &mockExportService{buf: bytes.NewBufferString("data"), filename: "Spring.x"}
		h := NewExportHandler(mock)

		r := gin.New()
		r.GET("/export/plans/:id", withAuth(), h.ExportPlan)
		w := serve(r, "GET", "/export/plans/plan-1"+tt.query, nil)

		if w.Code != http.StatusOK {
			t.Errorf("%q: expected 200, got %d", tt.query, w.Code)
		}
		if mock.format != tt.wantFormat {
			t.Errorf("%q: expected format %s, got %s", tt.query, tt.wantFormat, mock.format)
		}
		if got := w.Header().Get("Content-Type"); got != tt.contentType {
			t.Errorf("%q: expected content type %s, got %s", tt.query, tt.contentType, got)
		}
		if !strings.Contains(w.Header().Get("Content-Disposition"), "Spring.x") {
			t.Errorf("%q: Content-Disposition 缺少文件名", tt.query)
		}
	}
}

func TestExportHandler_BadFormat(t *testing.T) {
	h := NewExportHandler(&mockExportService{})

	r := gin.New()
	r.GET("/export/plans/:id", withAuth(), h.ExportPlan)
	w := serve(r, "GET", "/export/plans/plan-1?format=pdf", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestExportHandler_NotFound(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrPlanNotFound})

	r := gin.New()
	r.GET("/export/plans/:id", withAuth(), h.ExportPlan)
	w := serve(r, "GET", "/export/plans/missing", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
