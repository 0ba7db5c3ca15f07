package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ai-advisor/backend/config"
	"ai-advisor/backend/internal/client"
	"ai-advisor/backend/internal/planner"
	applogger "ai-advisor/backend/pkg/logger"
)

// app 一次命令执行共享的依赖
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	auth    *client.TokenAuth
	gateway *client.Client
	session *planner.Session
}

type rootOptions struct {
	configPath string
	gatewayURL string
	token      string
	quiet      bool
}

// NewRootCommand 构造 planner 命令树
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	root := &cobra.Command{
		Use:   "planner",
		Short: "Course schedule planner client",
		Long: `planner edits scheduling preferences (course counts, credit range and
blocked weekday periods), saves them to the gateway and asks the solver
for a conflict-free schedule.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd, opts)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			a.close()
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path")
	root.PersistentFlags().StringVar(&opts.gatewayURL, "gateway", "", "Gateway base URL (overrides client.gateway_url)")
	root.PersistentFlags().StringVar(&opts.token, "token", "", "Access token (overrides client.token)")
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print status transitions")

	root.AddCommand(
		newShowCommand(a),
		newGridCommand(a),
		newSetCommand(a),
		newToggleCommand(a),
		newGenerateCommand(a),
		newImportCommand(a),
		newTokenCommand(a),
	)
	return root
}

// Execute 运行命令行
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) init(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Planner.Validate(); err != nil {
		return err
	}
	if opts.gatewayURL != "" {
		cfg.Client.GatewayURL = opts.gatewayURL
	}
	if opts.token != "" {
		cfg.Client.Token = opts.token
	}

	logCfg := cfg.Log
	if logCfg.Format == "" || logCfg.Format == "json" {
		logCfg.Format = "console"
	}
	if logCfg.Level == "" || logCfg.Level == "info" {
		// 命令行默认只输出告警以上，状态信息由 reporter 打印
		logCfg.Level = "warn"
	}
	logger, err := applogger.NewLogger(&logCfg, "planner-cli")
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.auth = client.NewTokenAuth(cfg.Client.Token)
	a.gateway = client.New(&cfg.Client, a.auth, logger)

	reporter := planner.NewStatusReporter()
	if !opts.quiet {
		out := cmd.ErrOrStderr()
		reporter.OnChange(func(s planner.Status) {
			if s.Kind == planner.StatusIdle || s.Message == "" {
				return
			}
			fmt.Fprintf(out, "[%s] %s\n", s.Kind, s.Message)
		})
	}

	a.session = planner.NewSession(a.gateway, a.gateway, a.auth, logger,
		planner.WithStatusReporter(reporter),
		planner.WithPeriodCount(cfg.Planner.PeriodCount),
	)
	return nil
}

// start 加载当前用户的偏好
func (a *app) start(ctx context.Context) {
	a.session.Start(ctx)
}

// requestContext 单次命令的超时上下文
// 求解本身不设超时，此处只为防止命令行无限挂起
func (a *app) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := a.cfg.Client.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return context.WithTimeout(parent, timeout+5*time.Second)
}

func (a *app) close() {
	if a.session != nil {
		a.session.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
