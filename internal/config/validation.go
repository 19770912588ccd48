package config

import (
	"errors"
	"fmt"
	"strings"
)

var supportedMethods = map[string]struct{}{
	"GET":     {},
	"HEAD":    {},
	"POST":    {},
	"PUT":     {},
	"PATCH":   {},
	"DELETE":  {},
	"OPTIONS": {},
}

const supportedMethodList = "GET|HEAD|POST|PUT|PATCH|DELETE|OPTIONS"

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if strings.TrimSpace(g.StoragePath) == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	if g.CacheTTL.DurationValue() <= 0 {
		return newFieldError("Global.CacheTTL", "必须大于 0")
	}
	if g.LogMaxSize < 0 {
		return newFieldError("Global.LogMaxSize", "不能为负数")
	}
	if g.LogMaxBackups < 0 {
		return newFieldError("Global.LogMaxBackups", "不能为负数")
	}

	seen := map[string]struct{}{}
	for i := range c.Routes {
		route := &c.Routes[i]
		id := routeID(i, route.Name)

		method := strings.ToUpper(strings.TrimSpace(route.Method))
		if _, ok := supportedMethods[method]; !ok {
			return newFieldError(routeField(id, "Method"), "仅支持 "+supportedMethodList)
		}
		route.Method = method

		if err := validatePath(route.Path); err != nil {
			return fmt.Errorf("%s: %w", routeField(id, "Path"), err)
		}
		if strings.TrimSpace(route.Action) == "" {
			return newFieldError(routeField(id, "Action"), "不能为空")
		}

		key := route.RouteKey()
		if _, exists := seen[key]; exists {
			return newFieldError(routeField(id, "Path"), "重复的 "+key)
		}
		seen[key] = struct{}{}
	}

	return nil
}

func validatePath(path string) error {
	if path == "" {
		return errors.New("Path 不能为空")
	}
	if !strings.HasPrefix(path, "/") {
		return errors.New("Path 必须以 / 开头")
	}
	if strings.HasPrefix(path, "/-/") {
		return errors.New("/-/ 前缀保留给诊断接口")
	}
	if strings.ContainsAny(path, " \t") {
		return errors.New("Path 不允许包含空白")
	}
	return nil
}

func routeID(index int, name string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("#%d", index)
}
