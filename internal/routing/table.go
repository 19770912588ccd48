package routing

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Route 描述一条路由。Action 可以是动作名称（字符串，可缓存），
// 也可以是 fiber.Handler 之类的可调用对象（不可缓存）。
type Route struct {
	Method string `yaml:"method"`
	Path   string `yaml:"path"`
	Name   string `yaml:"name,omitempty"`
	Action any    `yaml:"action,omitempty"`
}

// ActionName 返回可读的动作描述，供诊断接口与日志输出。
func (r Route) ActionName() string {
	switch action := r.Action.(type) {
	case nil:
		return ""
	case string:
		return action
	default:
		if reflect.TypeOf(action).Kind() == reflect.Func {
			return "<func>"
		}
		return fmt.Sprintf("%v", action)
	}
}

// Table 保存当前生效的路由，读写均受互斥锁保护。
type Table struct {
	mu     sync.RWMutex
	routes []Route
}

// NewTable 以给定路由初始化路由表。
func NewTable(routes ...Route) *Table {
	t := &Table{}
	t.Replace(routes)
	return t
}

// Routes 返回当前路由的副本。
func (t *Table) Routes() []Route {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Route(nil), t.routes...)
}

// Len 返回路由数量。
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.routes)
}

// Replace 整体替换当前路由。
func (t *Table) Replace(routes []Route) {
	normalized := normalizeRoutes(routes)
	t.mu.Lock()
	t.routes = normalized
	t.mu.Unlock()
}

// Append 在当前路由之后追加一批路由。
func (t *Table) Append(routes []Route) {
	normalized := normalizeRoutes(routes)
	t.mu.Lock()
	t.routes = append(t.routes, normalized...)
	t.mu.Unlock()
}

// Add 追加单条路由。
func (t *Table) Add(route Route) {
	t.Append([]Route{route})
}

func normalizeRoutes(routes []Route) []Route {
	result := make([]Route, 0, len(routes))
	for _, route := range routes {
		route.Method = strings.ToUpper(strings.TrimSpace(route.Method))
		route.Path = strings.TrimSpace(route.Path)
		result = append(result, route)
	}
	return result
}
