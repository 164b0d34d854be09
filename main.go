package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/appcache-hub/appcache-hub/internal/config"
	"github.com/appcache-hub/appcache-hub/internal/logging"
	"github.com/appcache-hub/appcache-hub/internal/server"
	"github.com/appcache-hub/appcache-hub/internal/server/routes"
	"github.com/appcache-hub/appcache-hub/internal/version"
	"github.com/appcache-hub/appcache-hub/internal/watch"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	// invalidate 为逗号分隔的页面标识，"all" 表示全部过滤器中的页面。
	invalidate string
}

// invalidateAll 是 --invalidate 的特殊取值。
const invalidateAll = "all"

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["filters"] = config.FilterNames(cfg.Filters)
		fields["pages"] = len(cfg.Pages)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// CLI 启动遵循“配置 → manifest Store → Filter 钩子 → 页面路由 → Fiber server”顺序，
	// 保证所有请求共享同一个 Generator 与 Store 实例。
	s, err := buildSite(cfg, afero.NewOsFs(), logger)
	if err != nil {
		fmt.Fprintf(stdErr, "%v\n", err)
		return 1
	}

	if opts.invalidate != "" {
		return runInvalidate(s, opts, logger)
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["filters"] = config.FilterNames(cfg.Filters)
	fields["pages"] = len(cfg.Pages)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["web_root"] = cfg.Global.WebRoot
	fields["manifest_dir"] = cfg.Global.EffectiveManifestDir()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Global.WatchAssets {
		if err := startWatcher(ctx, s, logger); err != nil {
			fmt.Fprintf(stdErr, "启动资源监听失败: %v\n", err)
			return 1
		}
	}

	if err := startHTTPServer(ctx, s, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// runInvalidate 执行一次性失效并退出，写入失败时返回 1。
func runInvalidate(s *site, opts cliOptions, logger *logrus.Logger) int {
	ids := resolveInvalidateIDs(opts.invalidate, s.cfg)
	count, err := s.invalidator.InvalidateAll(context.Background(), ids)

	fields := logging.BaseFields("invalidate", opts.configPath)
	fields["requested"] = len(ids)
	fields["invalidated"] = count
	if err != nil {
		logger.WithFields(fields).WithError(err).Error("manifest 失效失败")
		fmt.Fprintf(stdErr, "manifest 失效失败: %v\n", err)
		return 1
	}
	logger.WithFields(fields).Info("manifest 失效完成")
	fmt.Fprintf(stdOut, "invalidated %d/%d manifests\n", count, len(ids))
	return 0
}

// resolveInvalidateIDs 展开 --invalidate 参数，"all" 取全部过滤器页面。
func resolveInvalidateIDs(raw string, cfg *config.Config) []string {
	if strings.TrimSpace(raw) == invalidateAll {
		return cfg.ActionIDs()
	}
	var ids []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("appcache-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
		invalidate string
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 APPCACHE_HUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.StringVar(&invalidate, "invalidate", "", "失效指定页面的 manifest 后退出（逗号分隔，all 表示全部）")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("解析参数失败: 未知参数 %s", strings.Join(fs.Args(), " "))
	}

	invalidate = strings.TrimSpace(invalidate)
	if invalidate != "" && invalidate != invalidateAll && len(resolveInvalidateIDs(invalidate, nil)) == 0 {
		return cliOptions{}, errors.New("解析参数失败: --invalidate 需要至少一个页面标识")
	}

	path := os.Getenv("APPCACHE_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		invalidate:  invalidate,
	}, nil
}

// startWatcher 在 WebRoot 变化时失效全部 manifest，随 ctx 结束。
func startWatcher(ctx context.Context, s *site, logger *logrus.Logger) error {
	ids := s.cfg.ActionIDs()
	w, err := watch.New(s.cfg.Global.WebRoot, s.cfg.Global.WatchDebounce.DurationValue(), logger, func(ctx context.Context) {
		count, err := s.invalidator.InvalidateAll(ctx, ids)
		entry := logger.WithFields(logrus.Fields{
			"action":      "asset_watch",
			"invalidated": count,
		})
		if err != nil {
			entry.WithError(err).Error("manifest_invalidate_failed")
			return
		}
		entry.Info("manifests_invalidated")
	})
	if err != nil {
		return err
	}

	go func() {
		if err := w.Run(ctx); err != nil {
			logger.WithField("action", "asset_watch").WithError(err).Error("asset_watch_stopped")
		}
	}()
	return nil
}

func startHTTPServer(ctx context.Context, s *site, logger *logrus.Logger) error {
	port := s.cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Registry:   s.pages,
		Pages:      server.NewRenderer(s.assets, s.hooks, logger),
		Manifests:  s.store,
		WebRoot:    s.cfg.Global.WebRoot,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterManifestRoutes(app, routes.ManifestDeps{
		Filters:     s.filters,
		Hooks:       s.hooks,
		Pages:       s.pages,
		Store:       s.store,
		Namer:       s.namer,
		Invalidator: s.invalidator,
		Logger:      logger,
	})
	routes.RegisterMetricsRoute(app, prometheus.DefaultGatherer)

	go func() {
		<-ctx.Done()
		if err := app.Shutdown(); err != nil {
			logger.WithField("action", "shutdown").WithError(err).Warn("Fiber 关闭失败")
		}
	}()

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
