package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"ai-advisor/backend/config"
	"ai-advisor/backend/internal/dto"
	"ai-advisor/backend/internal/planner"
)

const (
	defaultTimeout   = 45 * time.Second
	maxResponseBytes = 4 << 20

	// codePreferenceNotFound 网关“尚未保存偏好”错误码
	codePreferenceNotFound = 20001
)

// APIError 网关返回的非 2xx 响应
type APIError struct {
	HTTPStatus int
	Code       int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Details)
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("gateway returned HTTP %d", e.HTTPStatus)
}

// envelope 网关统一响应
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details string          `json:"details"`
}

// Client 网关 HTTP 客户端
// 同时实现 planner.PreferenceStore 与 planner.Solver
type Client struct {
	baseURL string
	http    *http.Client
	auth    *TokenAuth
	logger  *zap.Logger
}

var (
	_ planner.PreferenceStore = (*Client)(nil)
	_ planner.Solver          = (*Client)(nil)
)

// New 创建网关客户端
func New(cfg *config.ClientConfig, auth *TokenAuth, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.GatewayURL, "/"),
		http:    &http.Client{Timeout: timeout},
		auth:    auth,
		logger:  logger,
	}
}

// ── planner.PreferenceStore ──

// Load 读取偏好；网关无记录时返回 (nil, nil)
// userID 由令牌决定，此处仅用于校验会话与令牌一致
func (c *Client) Load(ctx context.Context, userID string) (*planner.Preference, error) {
	if err := c.checkUser(userID); err != nil {
		return nil, err
	}

	var resp dto.PreferenceResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/preferences", nil, "", &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == codePreferenceNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pref := resp.ToPlanner()
	return &pref, nil
}

// Save 覆盖写入偏好
func (c *Client) Save(ctx context.Context, userID string, pref planner.Preference) error {
	if err := c.checkUser(userID); err != nil {
		return err
	}

	body, err := json.Marshal(dto.NewUpsertPreferenceRequest(pref))
	if err != nil {
		return fmt.Errorf("序列化偏好失败: %w", err)
	}
	return c.do(ctx, http.MethodPut, "/api/v1/preferences", bytes.NewReader(body), "application/json", nil)
}

// ── planner.Solver ──

// Solve 请求网关以已持久化的偏好求解；未登录时匿名求解
func (c *Client) Solve(ctx context.Context) (*planner.SolveResult, error) {
	var resp dto.SolveResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/solve", nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.ToPlanner(), nil
}

// ── 方案与导入 ──

// CreatePlan 保存课表方案
func (c *Client) CreatePlan(ctx context.Context, req *dto.CreatePlanRequest) (*dto.PlanResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化方案失败: %w", err)
	}
	var resp dto.PlanResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/plans", bytes.NewReader(body), "application/json", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ImportBlacklist 上传日历文件，返回解析出的屏蔽时段
func (c *Client) ImportBlacklist(ctx context.Context, filename string, r io.Reader) (*dto.BlacklistImportResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("读取日历文件失败: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var resp dto.BlacklistImportResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/preferences/blacklist/import", &buf, mw.FormDataContentType(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ── 内部 ──

func (c *Client) checkUser(userID string) error {
	uid, ok := c.auth.CurrentUser()
	if !ok {
		return planner.ErrNotAuthenticated
	}
	if userID != "" && userID != uid {
		return fmt.Errorf("令牌用户 %s 与会话用户 %s 不一致", uid, userID)
	}
	return nil
}

// do 发送请求并把 data 解码到 out（out 为 nil 时忽略响应体）
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok := c.auth.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	c.logger.Debug("网关响应",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{HTTPStatus: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code, apiErr.Message, apiErr.Details = env.Code, env.Message, env.Details
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("解析响应失败: %w", decodeErr)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("响应缺少 data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("解析响应 data 失败: %w", err)
	}
	return nil
}
