package cache

import "time"

// effectiveTTL 决定一次读取使用的 TTL：调用方覆盖值 > 条目持久化值 > 默认值。
func (c *FileCache) effectiveTTL(override time.Duration, raw rawEnvelope) time.Duration {
	if override > 0 {
		return override
	}
	if persisted := raw.ttl(); persisted > 0 {
		return persisted
	}
	return c.defaultTTL
}

// isFresh 以文件 ModTime 作为写入时间，满足 now-mtime < ttl 时视为有效。
func (c *FileCache) isFresh(modTime time.Time, ttl time.Duration) bool {
	return c.now().Sub(modTime) < ttl
}
