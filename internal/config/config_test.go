package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(testConfigPath(t, "valid.toml"))
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Global.CacheTTL.DurationValue() != time.Hour {
		t.Fatalf("CacheTTL 应解析为 1h，得到 %v", cfg.Global.CacheTTL.DurationValue())
	}
	if !filepath.IsAbs(cfg.Global.StoragePath) {
		t.Fatalf("StoragePath 应被转换为绝对路径: %s", cfg.Global.StoragePath)
	}
	if cfg.Global.LogMaxSize != 100 || cfg.Global.LogMaxBackups != 10 {
		t.Fatalf("日志轮转默认值未生效: %+v", cfg.Global)
	}
	if len(cfg.Routes) != 2 {
		t.Fatalf("应解析出 2 条路由，得到 %d", len(cfg.Routes))
	}
	if cfg.Routes[0].Method != "GET" || cfg.Routes[0].Action != "ping" {
		t.Fatalf("路由字段解析异常: %+v", cfg.Routes[0])
	}
}

func TestValidateRejectsBadRoute(t *testing.T) {
	if _, err := Load(testConfigPath(t, "missing.toml")); err == nil {
		t.Fatalf("不合法的配置应返回错误")
	}
}

func TestValidateEnforcesListenPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Global.ListenPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("ListenPort 超出范围应当报错")
	}
}

func TestValidateRequiresPositiveTTL(t *testing.T) {
	cfg := validConfig()
	cfg.Global.CacheTTL = 0
	err := cfg.Validate()
	var fieldErr FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Field != "Global.CacheTTL" {
		t.Fatalf("CacheTTL 为 0 应返回字段错误，得到 %v", err)
	}
}

func TestRouteValidation(t *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(*RouteConfig)
		shouldErr bool
	}{
		{"valid", func(r *RouteConfig) {}, false},
		{"lowercase method", func(r *RouteConfig) { r.Method = "post" }, false},
		{"unsupported method", func(r *RouteConfig) { r.Method = "TRACE" }, true},
		{"relative path", func(r *RouteConfig) { r.Path = "ping" }, true},
		{"reserved prefix", func(r *RouteConfig) { r.Path = "/-/cache" }, true},
		{"blank in path", func(r *RouteConfig) { r.Path = "/a b" }, true},
		{"missing action", func(r *RouteConfig) { r.Action = "" }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg.Routes[0])
			err := cfg.Validate()
			if tc.shouldErr && err == nil {
				t.Fatalf("expected error for %+v", cfg.Routes[0])
			}
			if !tc.shouldErr && err != nil {
				t.Fatalf("unexpected error for %+v: %v", cfg.Routes[0], err)
			}
		})
	}
}

func TestValidateRejectsDuplicateRoutes(t *testing.T) {
	cfg := validConfig()
	cfg.Routes = append(cfg.Routes, RouteConfig{Method: "get", Path: "/ping", Action: "version"})
	if err := cfg.Validate(); err == nil {
		t.Fatalf("重复的 METHOD+Path 应报错")
	}
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			ListenPort:  5000,
			StoragePath: "./data",
			CacheTTL:    Duration(time.Hour),
		},
		Routes: []RouteConfig{
			{
				Name:   "health",
				Method: "GET",
				Path:   "/ping",
				Action: "ping",
			},
		},
	}
}
