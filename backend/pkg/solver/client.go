package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"ai-advisor/backend/config"
)

const (
	maxResponseBytes = 4 << 20 // 4MB
	defaultTimeout   = 30 * time.Second
)

// ErrBadResponse 求解服务响应无法解析
var ErrBadResponse = errors.New("求解服务响应格式错误")

// Request 求解请求体（沿用求解服务的 x/y/z 字段）
type Request struct {
	X                  int              `json:"x"` // 专业课数量
	Y                  int              `json:"y"` // 辅修课数量
	Z                  int              `json:"z"` // 选修课数量
	MinCredits         int              `json:"min_credits"`
	MaxCredits         int              `json:"max_credits"`
	BlacklistedPeriods map[string][]int `json:"blacklisted_periods"`
}

// Row 求解结果中的一行：某门课的一个上课时段
type Row struct {
	CourseID   string  `json:"course_id"`
	CourseName string  `json:"course_name"`
	Credits    float64 `json:"credits"`
	CourseType string  `json:"course_type"`
	Day        string  `json:"day"`
	Period     int     `json:"period"`
}

// Result 求解结果
type Result struct {
	Status           string
	ScheduledCourses []Row
	TotalCredits     float64
	ErrorMessage     string
}

// Succeeded 求解服务是否报告成功
func (r *Result) Succeeded() bool { return r.Status == "success" }

// rawResult 同时兼容扁平结构与 {"status":..,"data":{..}} 包装结构
type rawResult struct {
	Status           string   `json:"status"`
	ScheduledCourses []Row    `json:"scheduled_courses"`
	TotalCredits     *float64 `json:"total_credits"`
	ErrorMessage     string   `json:"error_message"`
	Message          string   `json:"message"`
	Detail           string   `json:"detail"`
	Data             *struct {
		ScheduledCourses []Row   `json:"scheduled_courses"`
		TotalCredits     float64 `json:"total_credits"`
	} `json:"data"`
}

func (r *rawResult) normalize() *Result {
	out := &Result{
		Status:           r.Status,
		ScheduledCourses: r.ScheduledCourses,
		ErrorMessage:     r.ErrorMessage,
	}
	if r.TotalCredits != nil {
		out.TotalCredits = *r.TotalCredits
	}
	if r.Data != nil {
		if out.ScheduledCourses == nil {
			out.ScheduledCourses = r.Data.ScheduledCourses
		}
		if r.TotalCredits == nil {
			out.TotalCredits = r.Data.TotalCredits
		}
	}
	if out.ErrorMessage == "" {
		if r.Message != "" {
			out.ErrorMessage = r.Message
		} else {
			out.ErrorMessage = r.Detail
		}
	}
	if out.ScheduledCourses == nil {
		out.ScheduledCourses = []Row{}
	}
	return out
}

// Client 外部求解服务 HTTP 客户端
type Client struct {
	url    string
	http   *http.Client
	logger *zap.Logger
}

// NewClient 创建求解服务客户端
func NewClient(cfg *config.SolverConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:    cfg.URL,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Solve 提交偏好并等待求解结果
//
// 返回 error 仅表示传输层失败（连接、超时、响应无法解析）；
// 求解服务明确报告的失败通过 Result.Status / ErrorMessage 返回。
func (c *Client) Solve(ctx context.Context, req *Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化求解请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("构造求解请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("读取求解响应失败: %w", err)
	}

	c.logger.Debug("求解服务响应",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.Int("bytes", len(data)),
	)

	var raw rawResult
	decodeErr := json.Unmarshal(data, &raw)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 非 2xx 但带有可读错误信息时视为求解失败，否则视为上游不可用
		if decodeErr == nil {
			if res := raw.normalize(); res.ErrorMessage != "" {
				if res.Status == "" || res.Status == "success" {
					res.Status = "error"
				}
				return res, nil
			}
		}
		return nil, fmt.Errorf("solver returned HTTP %d", resp.StatusCode)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, decodeErr)
	}
	if raw.Status == "" {
		return nil, fmt.Errorf("%w: missing status", ErrBadResponse)
	}
	return raw.normalize(), nil
}
