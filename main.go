package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/lumphub/internal/cache"
	"github.com/any-hub/lumphub/internal/config"
	"github.com/any-hub/lumphub/internal/fetch"
	"github.com/any-hub/lumphub/internal/logging"
	"github.com/any-hub/lumphub/internal/lumps"
	"github.com/any-hub/lumphub/internal/metrics"
	"github.com/any-hub/lumphub/internal/server"
	"github.com/any-hub/lumphub/internal/server/routes"
	"github.com/any-hub/lumphub/internal/version"
	"github.com/any-hub/lumphub/internal/zone"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	dumpLumps   string
}

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
		fields["archives"] = len(cfg.Archives)
		fields["sources"] = config.SourceModes(cfg.Archives)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	if opts.dumpLumps != "" {
		return dumpPredefined(opts, cfg, logger, lumps.DefaultPredefined())
	}

	// 启动遵循“配置 → 指标 → zone → 网络回退 → 目录 → 诊断服务”顺序，
	// 目录建立之后冻结，诊断服务只读取它。
	rt, err := buildRuntime(context.Background(), cfg, logger)
	if err != nil {
		fields := logging.BaseFields("startup", opts.configPath)
		fields["error"] = err.Error()
		logger.WithFields(fields).Error("lump 目录初始化失败")
		fmt.Fprintf(stdErr, "初始化 lump 目录失败: %v\n", err)
		return 1
	}
	defer rt.catalog.Close()

	fields := logging.BaseFields("startup", opts.configPath)
	fields["archives"] = len(cfg.Archives)
	fields["lumps"] = rt.catalog.Len()
	fields["listen_port"] = cfg.Global.ListenPort
	fields["fetch_enabled"] = cfg.Global.FetchEnabled()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if cfg.Global.ListenPort == 0 {
		logger.WithFields(logrus.Fields{"action": "listen", "port": 0}).
			Info("诊断服务未开启")
		return 0
	}

	if err := startHTTPServer(cfg, rt, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// appRuntime 持有启动阶段构建的长期对象。
type appRuntime struct {
	catalog *lumps.Catalog
	zone    *zone.Zone
	metrics *metrics.Collector
}

func buildRuntime(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*appRuntime, error) {
	collector := metrics.New()
	z := zone.New(cfg.Global.MaxMemoryCache, zone.WithPurgeHook(collector.ZonePurged))

	var fetcher lumps.Fetcher
	if cfg.Global.FetchEnabled() {
		f, err := newFetcher(cfg, logger)
		if err != nil {
			return nil, err
		}
		fetcher = f
	}

	var predefined []lumps.Predefined
	if cfg.Global.Predefined {
		predefined = lumps.DefaultPredefined()
	}

	archives, err := archiveSet(cfg.Archives)
	if err != nil {
		return nil, err
	}

	catalog, err := lumps.Open(ctx, archives, lumps.Options{
		Logger:            logger,
		Allocator:         lumps.ZoneAllocator(z),
		Fetcher:           fetcher,
		Observer:          collector,
		Predefined:        predefined,
		Fatal:             fatalSink(logger),
		LockWarnThreshold: cfg.Global.LockWarnThreshold,
	})
	if err != nil {
		return nil, err
	}
	return &appRuntime{catalog: catalog, zone: z, metrics: collector}, nil
}

// newFetcher 按 Global 配置构建网络回退：磁盘存储、共享 HTTP 客户端与下载上限。
func newFetcher(cfg *config.Config, logger *logrus.Logger) (*fetch.Fetcher, error) {
	store, err := cache.NewStore(cfg.Global.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("初始化存储目录失败: %w", err)
	}
	return fetch.New(fetch.Options{
		Upstream: cfg.Global.FetchUpstream,
		Client:   server.NewFetchClient(cfg),
		Store:    store,
		Logger:   logger,
		MaxBytes: cfg.Global.FetchMaxBytes,
	})
}

// archiveSet 把配置中的归档列表转换为目录加载顺序，顺序即覆盖优先级。
func archiveSet(items []config.ArchiveConfig) ([]lumps.Archive, error) {
	result := make([]lumps.Archive, 0, len(items))
	for _, item := range items {
		source, err := lumps.ParseSource(item.Source)
		if err != nil {
			return nil, err
		}
		result = append(result, lumps.Archive{Path: item.Path, Source: source})
	}
	return result, nil
}

// fatalSink 记录致命错误后以状态码 1 退出进程。
func fatalSink(logger *logrus.Logger) func(error) {
	return func(err error) {
		logger.WithField("action", "fatal").WithError(err).Fatal("unrecoverable lump error")
	}
}

// dumpPredefined 把编译进来的内置 lump 写成独立的 PWAD 后退出。
// 导出的是编译期集合，与 Predefined 配置无关；集合为空（nopredefined 构建）时失败。
func dumpPredefined(opts cliOptions, cfg *config.Config, logger *logrus.Logger, set []lumps.Predefined) int {
	fields := logging.BaseFields("dump_lumps", opts.configPath)
	fields["lumps"] = len(set)
	fields["predefined_enabled"] = cfg.Global.Predefined
	target, err := lumps.ExportPredefined(opts.dumpLumps, set)
	if err != nil {
		fields["error"] = err.Error()
		logger.WithFields(fields).Error("导出内置 lump 失败")
		fmt.Fprintf(stdErr, "%v\n", err)
		return 1
	}
	fields["path"] = target
	logger.WithFields(fields).Info("内置 lump 已导出")
	fmt.Fprintf(stdOut, "Internal lumps written to %s\n", target)
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("lumphub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
		dumpLumps  string
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 LUMPHUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.StringVar(&dumpLumps, "dump-lumps", "", "把内置 lump 写成 PWAD 后退出")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("LUMPHUB_CONFIG")
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
		dumpLumps:   dumpLumps,
	}, nil
}

func startHTTPServer(cfg *config.Config, rt *appRuntime, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterLumpRoutes(app, routes.LumpDeps{
		Catalog:  server.NewCatalogGuard(rt.catalog),
		Zone:     rt.zone,
		Gatherer: rt.metrics.Registry,
	})

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
