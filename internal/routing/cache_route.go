package routing

import (
	"errors"
	"fmt"
	"time"

	"github.com/any-hub/any-web/internal/cache"
)

// CacheKey 是路由表在 FileCache 中使用的固定 key。
const CacheKey = "routes"

// Store 是 cache_route 需要的缓存能力，*cache.FileCache 满足该接口。
type Store interface {
	Put(key string, value any, ttl time.Duration) error
	GetInto(key string, ttl time.Duration, out any) bool
}

// RouteCacheError 表示路由表包含无法序列化的元素（通常是闭包），保存被拒绝。
type RouteCacheError struct {
	Err error
}

func (e *RouteCacheError) Error() string {
	return fmt.Sprintf("route table is not cacheable: %v", e.Err)
}

func (e *RouteCacheError) Unwrap() error {
	return e.Err
}

// CacheRoute 对应 cache_route(save, append)：
//   - save=true 时把当前路由表写入缓存，返回是否写入成功；
//     序列化失败返回 *RouteCacheError，路由表保持不变。
//   - save=false 时读取缓存的路由表，按 appendMode 替换或追加，返回是否命中。
func CacheRoute(c Store, t *Table, save, appendMode bool) (bool, error) {
	if save {
		return SaveRoutes(c, t)
	}
	return LoadRoutes(c, t, appendMode), nil
}

// SaveRoutes 将路由表快照写入缓存（默认 TTL）。写入 I/O 失败仅返回 false。
func SaveRoutes(c Store, t *Table) (bool, error) {
	if c == nil || t == nil {
		return false, errors.New("route cache requires store and table")
	}
	if err := c.Put(CacheKey, t.Routes(), 0); err != nil {
		if errors.Is(err, cache.ErrUnencodable) {
			return false, &RouteCacheError{Err: err}
		}
		return false, nil
	}
	return true, nil
}

// LoadRoutes 读取缓存的路由表；命中时 appendMode 为 true 则追加，否则整体替换。
func LoadRoutes(c Store, t *Table, appendMode bool) bool {
	if c == nil || t == nil {
		return false
	}
	var cached []Route
	if !c.GetInto(CacheKey, 0, &cached) {
		return false
	}
	if appendMode {
		t.Append(cached)
	} else {
		t.Replace(cached)
	}
	return true
}
