package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-web/internal/logging"
)

// FileCache 以 root 为根目录保存 key/value 条目，过期在读取时惰性判定。
// 同一进程内通过 entryLock 串行化同一 key 的写入/删除，跨进程依赖 flock。
type FileCache struct {
	root       string
	defaultTTL time.Duration
	logger     logrus.FieldLogger
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*entryLock
}

// chtimes 在测试中可被替换以模拟时间戳写入失败。
var chtimes = os.Chtimes

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// New 创建（必要时）并校验根目录，返回可复用的 FileCache。
// 根目录无法创建时返回 *DirectoryCreateError，不可写时返回 *NotWritableError。
func New(opts Options) (*FileCache, error) {
	root := opts.Root
	if root == "" {
		root = defaultRoot()
	}

	if err := os.MkdirAll(root, rootDirMode); err != nil {
		return nil, &DirectoryCreateError{Path: root, Err: err}
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &NotWritableError{Path: root, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &NotWritableError{Path: abs, Err: err}
	}
	if !info.IsDir() {
		return nil, &NotWritableError{Path: abs, Err: errors.New("not a directory")}
	}
	if err := checkWritable(abs); err != nil {
		return nil, &NotWritableError{Path: abs, Err: err}
	}

	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &FileCache{
		root:       abs,
		defaultTTL: ttl,
		logger:     logger,
		now:        now,
		locks:      make(map[string]*entryLock),
	}, nil
}

// Root 返回解析后的绝对根目录。
func (c *FileCache) Root() string {
	return c.root
}

// DefaultTTL 返回初始化时确定的默认 TTL。
func (c *FileCache) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Digest 返回 key 的 40 位十六进制 SHA-1 摘要，作为条目文件名。
func Digest(key string) string {
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Path 返回 key 对应的条目文件路径：<root>/<d0d1>/<digest>.txt。
func (c *FileCache) Path(key string) string {
	digest := Digest(key)
	return filepath.Join(c.root, digest[:2], digest+entryExt)
}

// Set 写入条目并以布尔值报告结果，所有错误仅记录日志，不向上抛出。
func (c *FileCache) Set(key string, value any, ttl time.Duration) bool {
	if err := c.Put(key, value, ttl); err != nil {
		c.logger.WithFields(logging.CacheFields("set", key)).WithError(err).Warn("cache write failed")
		return false
	}
	return true
}

// Put 与 Set 语义一致但返回具体错误；无法序列化的值返回包装 ErrUnencodable 的错误。
// ttl<=0 时使用默认 TTL，TTL 会随条目一同持久化。
func (c *FileCache) Put(key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	data, err := encodeEntry(value, ttl)
	if err != nil {
		return err
	}

	unlock := c.lockEntry(key)
	defer unlock()

	filePath := c.Path(key)
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, shardDirMode); err != nil {
		return fmt.Errorf("create shard directory: %w", err)
	}

	release, err := lockFile(strings.TrimSuffix(filePath, entryExt) + lockExt)
	if err != nil {
		return fmt.Errorf("lock cache entry: %w", err)
	}
	defer release()

	tempFile, err := os.CreateTemp(dir, ".cache-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(data)
	if err == nil {
		err = tempFile.Chmod(entryMode)
	}
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return err
	}

	// 条目已完整落盘；时间戳写入失败时退化为系统时间，仅记录日志。
	modTime := c.now()
	if err := chtimes(filePath, modTime, modTime); err != nil {
		c.logger.WithFields(logging.CacheFields("set", key)).WithError(err).Warn("cache mtime update failed")
	}
	return nil
}

// Get 读取并解码条目为 any（map[string]any、[]any 与基础类型）。
// 未命中、已过期或数据损坏时返回 (nil, false)。ttl<=0 表示不覆盖。
func (c *FileCache) Get(key string, ttl time.Duration) (any, bool) {
	var value any
	if !c.GetInto(key, ttl, &value) {
		return nil, false
	}
	return value, true
}

// GetInto 将条目解码进 out（必须为指针），返回是否命中。
// 过期条目会被尽力删除；损坏条目保持原样，仅视为未命中。
func (c *FileCache) GetInto(key string, ttl time.Duration, out any) bool {
	filePath := c.Path(key)
	fields := logging.CacheFields("get", key)

	info, err := os.Stat(filePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.WithFields(fields).WithError(err).Debug("cache stat failed")
		}
		return false
	}
	if info.IsDir() {
		return false
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		c.logger.WithFields(fields).WithError(err).Debug("cache read failed")
		return false
	}

	raw, decodeErr := decodeEnvelope(data)
	effective := c.effectiveTTL(ttl, raw)
	if !c.isFresh(info.ModTime(), effective) {
		c.logger.WithFields(fields).Debug("cache entry expired")
		c.evict(key, filePath, effective)
		return false
	}
	if decodeErr != nil {
		c.logger.WithFields(fields).WithError(decodeErr).Debug("cache entry corrupt")
		return false
	}
	if err := decodeValue(raw, out); err != nil {
		c.logger.WithFields(fields).WithError(err).Debug("cache entry corrupt")
		return false
	}
	return true
}

// Delete 删除条目，条目不存在同样视为成功。
func (c *FileCache) Delete(key string) bool {
	unlock := c.lockEntry(key)
	defer unlock()

	filePath := c.Path(key)
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.logger.WithFields(logging.CacheFields("delete", key)).WithError(err).Warn("cache delete failed")
		return false
	}
	return true
}

// Clear 删除根目录下全部条目文件并返回删除数量；锁文件保留以免破坏正在进行的写入。
func (c *FileCache) Clear() (int, error) {
	removed := 0
	err := c.walkEntries(func(path string, _ fs.FileInfo) error {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("clear cache: %w", err)
	}
	return removed, nil
}

// Stats 统计条目数量与字节数（包含尚未被读取清理的过期条目）。
func (c *FileCache) Stats() (Stats, error) {
	stats := Stats{Root: c.root}
	err := c.walkEntries(func(_ string, info fs.FileInfo) error {
		stats.Entries++
		stats.SizeBytes += info.Size()
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("stat cache: %w", err)
	}
	return stats, nil
}

func (c *FileCache) walkEntries(fn func(path string, info fs.FileInfo) error) error {
	return filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != entryExt || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		return fn(path, info)
	})
}

// evict 在持有 key 锁的情况下复查并删除过期条目，避免误删刚被重新写入的新条目。
func (c *FileCache) evict(key, filePath string, ttl time.Duration) {
	unlock := c.lockEntry(key)
	defer unlock()

	info, err := os.Stat(filePath)
	if err != nil || c.isFresh(info.ModTime(), ttl) {
		return
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.logger.WithFields(logging.CacheFields("evict", key)).WithError(err).Warn("cache evict failed")
	}
}

func (c *FileCache) lockEntry(key string) func() {
	c.mu.Lock()
	lock := c.locks[key]
	if lock == nil {
		lock = &entryLock{}
		c.locks[key] = lock
	}
	lock.refs++
	c.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		c.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(c.locks, key)
		}
		c.mu.Unlock()
	}
}

func defaultRoot() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "any-web")
	}
	return filepath.Join(os.TempDir(), "any-web")
}
