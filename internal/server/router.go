package server

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-web/internal/cache"
	"github.com/any-hub/any-web/internal/fileindex"
	"github.com/any-hub/any-web/internal/handlers"
	"github.com/any-hub/any-web/internal/logging"
	"github.com/any-hub/any-web/internal/routing"
	"github.com/any-hub/any-web/internal/server/routes"
)

// AppOptions controls which route table and cache the Fiber application serves.
type AppOptions struct {
	Logger     *logrus.Logger
	Routes     *routing.Table
	Cache      *cache.FileCache
	Index      *fileindex.Index
	ListenPort int
}

const (
	contextKeyRoute     = "_anyweb_route"
	contextKeyRequestID = "_anyweb_request_id"
)

// NewApp builds a Fiber application with request-ID middleware, diagnostics
// endpoints and one handler per route of the table. The table is read once;
// later changes require a new app.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Routes == nil {
		return nil, errors.New("route table is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("file cache is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger))

	routes.RegisterDiagnostics(app, routes.Diagnostics{
		Cache:  opts.Cache,
		Routes: opts.Routes,
		Index:  opts.Index,
	})

	for _, route := range opts.Routes.Routes() {
		handler := resolveAction(route, opts.Logger)
		app.Add([]string{route.Method}, route.Path, bindRoute(route, handler))
	}

	return app, nil
}

// requestContextMiddleware 生成请求 ID，并在请求结束后输出 debug 级访问日志。
func requestContextMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()

		routeName, _ := c.Locals(contextKeyRoute).(string)
		logger.WithFields(logging.RequestFields(c.Method(), c.Path(), routeName, reqID)).Debug("request handled")
		return err
	}
}

func bindRoute(route routing.Route, handler fiber.Handler) fiber.Handler {
	return func(c fiber.Ctx) error {
		c.Locals(contextKeyRoute, route.Name)
		return handler(c)
	}
}

// resolveAction 将路由的 Action 还原为处理函数：可调用对象直接使用，
// 字符串经 handlers 注册表查找，其余情况返回 501。
func resolveAction(route routing.Route, logger *logrus.Logger) fiber.Handler {
	switch action := route.Action.(type) {
	case fiber.Handler:
		if action != nil {
			return action
		}
	case string:
		if handler, ok := handlers.Resolve(action); ok {
			return handler
		}
	}

	logger.WithFields(logrus.Fields{
		"action": "route_mount",
		"method": route.Method,
		"path":   route.Path,
		"target": route.ActionName(),
	}).Warn("route action unmapped")
	return actionUnmapped(route.ActionName())
}

func actionUnmapped(name string) fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
			"error":  "action_unmapped",
			"action": name,
		})
	}
}

// RequestID returns the request identifier stored by the middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
