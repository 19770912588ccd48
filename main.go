package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-web/internal/cache"
	"github.com/any-hub/any-web/internal/config"
	"github.com/any-hub/any-web/internal/fileindex"
	"github.com/any-hub/any-web/internal/logging"
	"github.com/any-hub/any-web/internal/routing"
	"github.com/any-hub/any-web/internal/server"
	"github.com/any-hub/any-web/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath    string
	checkOnly     bool
	showVersion   bool
	clearCache    bool
	rebuildRoutes bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

// listen 在测试中可被替换，避免真正占用端口。
var listen = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

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
		fields["routes"] = len(cfg.Routes)
		fields["storage_path"] = cfg.Global.StoragePath
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序：配置 → 磁盘缓存 → 文件索引 → 路由表 → Fiber server，
	// 所有组件共享同一个 FileCache 实例。
	store, err := cache.New(cache.Options{
		Root:       cfg.Global.StoragePath,
		DefaultTTL: cfg.Global.CacheTTL.DurationValue(),
		Logger:     logger,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	if opts.clearCache {
		removed, err := store.Clear()
		fields := logging.BaseFields("clear_cache", opts.configPath)
		fields["removed"] = removed
		if err != nil {
			logger.WithFields(fields).WithError(err).Error("缓存清理失败")
			return 1
		}
		logger.WithFields(fields).Info("缓存已清理")
		return 0
	}

	index := fileindex.Load(store)

	table, err := loadRouteTable(cfg, store, logger, opts.rebuildRoutes)
	if err != nil {
		fmt.Fprintf(stdErr, "路由表缓存失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["routes"] = table.Len()
	fields["file_index"] = index.Len()
	fields["listen_port"] = cfg.Global.ListenPort
	fields["storage_path"] = store.Root()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, store, index, table, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// loadRouteTable 优先复用缓存中的路由表；未命中（或要求重建）时由配置生成并写回缓存。
func loadRouteTable(cfg *config.Config, store *cache.FileCache, logger *logrus.Logger, rebuild bool) (*routing.Table, error) {
	table := routing.NewTable()
	if !rebuild {
		if found, _ := routing.CacheRoute(store, table, false, false); found {
			logger.WithFields(logrus.Fields{
				"action": "route_cache",
				"routes": table.Len(),
			}).Info("路由表命中缓存")
			return table, nil
		}
	}

	table.Replace(routesFromConfig(cfg.Routes))
	saved, err := routing.CacheRoute(store, table, true, false)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"action": "route_cache",
		"routes": table.Len(),
		"saved":  saved,
	}).Info("路由表由配置生成")
	return table, nil
}

func routesFromConfig(items []config.RouteConfig) []routing.Route {
	result := make([]routing.Route, 0, len(items))
	for _, item := range items {
		result = append(result, routing.Route{
			Method: item.Method,
			Path:   item.Path,
			Name:   item.Name,
			Action: item.Action,
		})
	}
	return result
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("any-web", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag    string
		checkOnly     bool
		showVer       bool
		clearCache    bool
		rebuildRoutes bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 ANY_WEB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.BoolVar(&clearCache, "clear-cache", false, "清空缓存目录中的全部条目后退出")
	fs.BoolVar(&rebuildRoutes, "rebuild-routes", false, "忽略缓存的路由表，按配置重建并写回")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("ANY_WEB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:    path,
		checkOnly:     checkOnly,
		showVersion:   showVer,
		clearCache:    clearCache,
		rebuildRoutes: rebuildRoutes,
	}, nil
}

func startHTTPServer(cfg *config.Config, store *cache.FileCache, index *fileindex.Index, table *routing.Table, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Routes:     table,
		Cache:      store,
		Index:      index,
		ListenPort: port,
	})
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return listen(app, fmt.Sprintf(":%d", port))
}
