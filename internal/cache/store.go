package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// 磁盘布局：
//
//	<Root>/<d0d1>/<digest>.txt    # 条目正文（yaml 信封）
//	<Root>/<d0d1>/<digest>.lock   # 写入时持有的 flock 咨询锁
//
// digest 为 key 的 SHA-1 十六进制串，d0d1 为其前两位，用于限制单目录文件数量。
const (
	entryExt = ".txt"
	lockExt  = ".lock"

	rootDirMode  = 0o755
	shardDirMode = 0o777
	entryMode    = 0o644
)

// DefaultTTL 在 Options 未指定有效 TTL 时生效，与配置默认值保持一致。
const DefaultTTL = 24 * time.Hour

// Options 描述 FileCache 的初始化参数。
type Options struct {
	// Root 为缓存根目录，留空时使用用户缓存目录下的 any-web。
	Root string
	// DefaultTTL 为条目默认存活时间，<=0 时回退到 DefaultTTL。
	DefaultTTL time.Duration
	// Logger 用于记录被吞掉的读写错误，nil 时丢弃输出。
	Logger logrus.FieldLogger
	// Now 为可注入时钟，测试中用于模拟过期，nil 时使用 time.Now。
	Now func() time.Time
}

// Stats 汇总缓存目录中的条目数量与占用字节，供诊断接口输出。
type Stats struct {
	Root      string `json:"root"`
	Entries   int    `json:"entries"`
	SizeBytes int64  `json:"size_bytes"`
}

// ErrUnencodable 表示值包含无法序列化的成员（func、chan 等）。
var ErrUnencodable = errors.New("cache value is not encodable")

// DirectoryCreateError 表示根目录不存在且无法创建，属于启动期致命错误。
type DirectoryCreateError struct {
	Path string
	Err  error
}

func (e *DirectoryCreateError) Error() string {
	return fmt.Sprintf("create cache directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryCreateError) Unwrap() error {
	return e.Err
}

// NotWritableError 表示根目录存在但不可写（或并非目录），属于启动期致命错误。
type NotWritableError struct {
	Path string
	Err  error
}

func (e *NotWritableError) Error() string {
	return fmt.Sprintf("cache directory %s is not writable: %v", e.Path, e.Err)
}

func (e *NotWritableError) Unwrap() error {
	return e.Err
}
