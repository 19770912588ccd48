// Package handlers 维护动作名称到 fiber.Handler 的全局注册表。
// 路由表中只保存动作名称（可被缓存），服务启动时再经 Resolve 还原为处理函数。
package handlers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v3"
)

var globalRegistry = newRegistry()

type registry struct {
	mu       sync.RWMutex
	handlers map[string]fiber.Handler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[string]fiber.Handler)}
}

// Register 注册动作处理函数，重复名称会返回错误。
func Register(name string, handler fiber.Handler) error {
	return globalRegistry.register(name, handler)
}

// MustRegister 在注册失败时 panic，适合 init() 中调用。
func MustRegister(name string, handler fiber.Handler) {
	if err := Register(name, handler); err != nil {
		panic(err)
	}
}

// Resolve 返回动作名称对应的处理函数，名称大小写不敏感。
func Resolve(name string) (fiber.Handler, bool) {
	return globalRegistry.resolve(name)
}

// Keys 返回全部已注册动作名称（已排序）。
func Keys() []string {
	return globalRegistry.keys()
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *registry) register(name string, handler fiber.Handler) error {
	key := normalizeName(name)
	if key == "" {
		return fmt.Errorf("action name is required")
	}
	if handler == nil {
		return fmt.Errorf("action %s: handler is required", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[key]; exists {
		return fmt.Errorf("action %s already registered", key)
	}
	r.handlers[key] = handler
	return nil
}

func (r *registry) resolve(name string) (fiber.Handler, bool) {
	key := normalizeName(name)
	if key == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[key]
	return handler, ok
}

func (r *registry) keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.handlers))
	for key := range r.handlers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
