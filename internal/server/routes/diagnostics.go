package routes

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/any-web/internal/cache"
	"github.com/any-hub/any-web/internal/fileindex"
	"github.com/any-hub/any-web/internal/routing"
)

// Diagnostics 聚合诊断接口需要读取的运行时对象，Index 可为空。
type Diagnostics struct {
	Cache  *cache.FileCache
	Routes *routing.Table
	Index  *fileindex.Index
}

// RegisterDiagnostics 暴露 /-/cache 与 /-/routes 诊断接口，供排查缓存命中与路由加载情况。
func RegisterDiagnostics(app *fiber.App, diag Diagnostics) {
	if app == nil || diag.Cache == nil || diag.Routes == nil {
		return
	}

	app.Get("/-/cache", func(c fiber.Ctx) error {
		stats, err := diag.Cache.Stats()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cache_stats_failed"})
		}
		return c.JSON(cachePayload{
			Root:              stats.Root,
			DefaultTTLSeconds: int64(diag.Cache.DefaultTTL() / time.Second),
			Entries:           stats.Entries,
			SizeBytes:         stats.SizeBytes,
			FileIndexEntries:  diag.Index.Len(),
			Routes:            diag.Routes.Len(),
		})
	})

	app.Get("/-/routes", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"routes": encodeRoutes(diag.Routes.Routes()),
		})
	})
}

type cachePayload struct {
	Root              string `json:"root"`
	DefaultTTLSeconds int64  `json:"default_ttl_seconds"`
	Entries           int    `json:"entries"`
	SizeBytes         int64  `json:"size_bytes"`
	FileIndexEntries  int    `json:"file_index_entries"`
	Routes            int    `json:"routes"`
}

type routePayload struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Name   string `json:"name,omitempty"`
	Action string `json:"action"`
}

func encodeRoutes(items []routing.Route) []routePayload {
	result := make([]routePayload, 0, len(items))
	for _, route := range items {
		result = append(result, routePayload{
			Method: route.Method,
			Path:   route.Path,
			Name:   route.Name,
			Action: route.ActionName(),
		})
	}
	return result
}
