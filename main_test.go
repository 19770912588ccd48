package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/any-web/internal/cache"
	"github.com/any-hub/any-web/internal/config"
	"github.com/any-hub/any-web/internal/logging"
	"github.com/any-hub/any-web/internal/routing"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv("ANY_WEB_CONFIG", "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml", "--clear-cache", "--rebuild-routes"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" {
		t.Fatalf("flag 应高于环境变量，得到 %s", opts.configPath)
	}
	if !opts.clearCache || !opts.rebuildRoutes {
		t.Fatalf("clear-cache/rebuild-routes 应被解析: %+v", opts)
	}
}

func TestParseCLIFlagsDefaultPath(t *testing.T) {
	t.Setenv("ANY_WEB_CONFIG", "")
	opts, err := parseCLIFlags(nil)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "config.toml" {
		t.Fatalf("默认配置路径应为 config.toml，得到 %s", opts.configPath)
	}
}

func TestParseCLIFlagsUnknown(t *testing.T) {
	if _, err := parseCLIFlags([]string{"--unknown"}); err == nil {
		t.Fatalf("未知参数应返回错误")
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "valid.toml"), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d", code)
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "missing.toml"), checkOnly: true})
	if code == 0 {
		t.Fatalf("无效配置应返回非零退出码")
	}
}

func TestRunVersionOutput(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(stdOutBuffer().String(), "any-web") {
		t.Fatalf("version 输出应包含 any-web 标识")
	}
}

func TestRunStartupCachesRouteTable(t *testing.T) {
	storage := filepath.Join(t.TempDir(), "cache")
	configPath := writeRouteConfig(t, storage)
	stubListen(t, nil)
	useBufferWriters(t)

	if code := run(cliOptions{configPath: configPath}); code != 0 {
		t.Fatalf("启动应成功，得到 %d: %s", code, stdErrBuffer().String())
	}

	store := openStore(t, storage)
	var cached []routing.Route
	if !store.GetInto(routing.CacheKey, 0, &cached) {
		t.Fatalf("启动后路由表应写入缓存")
	}
	if len(cached) != 1 || cached[0].Path != "/ping" || cached[0].Action != "ping" {
		t.Fatalf("缓存的路由表不符合预期: %+v", cached)
	}
}

func TestRunListenFailure(t *testing.T) {
	storage := filepath.Join(t.TempDir(), "cache")
	configPath := writeRouteConfig(t, storage)
	stubListen(t, fmt.Errorf("address in use"))
	useBufferWriters(t)

	if code := run(cliOptions{configPath: configPath}); code != 1 {
		t.Fatalf("监听失败应返回 1，得到 %d", code)
	}
	if !strings.Contains(stdErrBuffer().String(), "address in use") {
		t.Fatalf("stderr 应包含监听错误: %s", stdErrBuffer().String())
	}
}

func TestRunClearCache(t *testing.T) {
	storage := filepath.Join(t.TempDir(), "cache")
	configPath := writeRouteConfig(t, storage)
	useBufferWriters(t)

	store := openStore(t, storage)
	if !store.Set("a", 1, 0) || !store.Set("b", "two", 0) {
		t.Fatalf("预置缓存失败")
	}

	if code := run(cliOptions{configPath: configPath, clearCache: true}); code != 0 {
		t.Fatalf("clear-cache 应成功，得到 %d", code)
	}
	if _, ok := store.Get("a", 0); ok {
		t.Fatalf("clear-cache 后条目应被删除")
	}
	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("stats 失败: %v", err)
	}
	if stats.Entries != 0 {
		t.Fatalf("clear-cache 后条目数应为 0，得到 %d", stats.Entries)
	}
}

func TestLoadRouteTablePrefersCache(t *testing.T) {
	store := openStore(t, t.TempDir())
	cached := routing.NewTable()
	cached.Add(routing.Route{Method: "GET", Path: "/cached", Action: "ping"})
	if ok, err := routing.SaveRoutes(store, cached); !ok || err != nil {
		t.Fatalf("预置路由缓存失败: %v %v", ok, err)
	}

	cfg := &config.Config{Routes: []config.RouteConfig{{Method: "GET", Path: "/config", Action: "ping"}}}
	logger := logging.Discard()

	table, err := loadRouteTable(cfg, store, logger, false)
	if err != nil {
		t.Fatalf("加载路由失败: %v", err)
	}
	if routes := table.Routes(); len(routes) != 1 || routes[0].Path != "/cached" {
		t.Fatalf("应使用缓存的路由表: %+v", routes)
	}

	table, err = loadRouteTable(cfg, store, logger, true)
	if err != nil {
		t.Fatalf("重建路由失败: %v", err)
	}
	if routes := table.Routes(); len(routes) != 1 || routes[0].Path != "/config" {
		t.Fatalf("rebuild 应按配置生成路由表: %+v", routes)
	}

	reloaded := routing.NewTable()
	if !routing.LoadRoutes(store, reloaded, false) || reloaded.Routes()[0].Path != "/config" {
		t.Fatalf("重建后的路由表应写回缓存: %+v", reloaded.Routes())
	}
}

func writeRouteConfig(t *testing.T, storage string) string {
	t.Helper()
	return writeConfigFile(t, fmt.Sprintf(`
ListenPort = 5055
LogLevel = "error"
StoragePath = "%s"
CacheTTL = "10m"

[[Route]]
Method = "GET"
Path = "/ping"
Action = "ping"
`, storage))
}

func openStore(t *testing.T, root string) *cache.FileCache {
	t.Helper()
	store, err := cache.New(cache.Options{Root: root})
	if err != nil {
		t.Fatalf("初始化缓存失败: %v", err)
	}
	return store
}

func stubListen(t *testing.T, result error) {
	t.Helper()
	prev := listen
	listen = func(app *fiber.App, addr string) error {
		if app == nil {
			return fmt.Errorf("nil app")
		}
		return result
	}
	t.Cleanup(func() { listen = prev })
}
