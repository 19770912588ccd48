// Package fileindex 提供 find_file 的只读查找表。表内容由外部的文件解析子系统
// 通过 Save 写入缓存的 "file-index" 条目，进程启动时经 Load 读取一次后不再变化。
package fileindex

import (
	"path/filepath"
	"strings"
	"time"
)

// CacheKey 是文件索引在 FileCache 中使用的固定 key。
const CacheKey = "file-index"

// Loader 是 Load 所需的最小缓存读取能力，*cache.FileCache 满足该接口。
type Loader interface {
	GetInto(key string, ttl time.Duration, out any) bool
}

// Saver 是 Save 所需的最小缓存写入能力。
type Saver interface {
	Set(key string, value any, ttl time.Duration) bool
}

// Index 为加载完成后的不可变查找表。
type Index struct {
	paths map[string]string
}

// Load 从缓存读取文件索引；未命中或数据损坏时返回空索引。
func Load(c Loader) *Index {
	var paths map[string]string
	if c == nil || !c.GetInto(CacheKey, 0, &paths) || paths == nil {
		paths = map[string]string{}
	}
	return &Index{paths: paths}
}

// New 以给定映射构造索引（会复制一份），便于测试或外部子系统预热。
func New(paths map[string]string) *Index {
	copied := make(map[string]string, len(paths))
	for k, v := range paths {
		copied[k] = v
	}
	return &Index{paths: copied}
}

// FindFile 按 dir/file/ext/asArray 组合键查找缓存过的路径，不会回写缓存。
func (i *Index) FindFile(dir, file, ext string, asArray bool) (string, bool) {
	if i == nil {
		return "", false
	}
	path, ok := i.paths[Key(dir, file, ext, asArray)]
	return path, ok
}

// Len 返回索引条目数量。
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.paths)
}

// Save 将文件解析子系统计算出的映射写入缓存，使用缓存默认 TTL。
func Save(c Saver, paths map[string]string) bool {
	if c == nil {
		return false
	}
	return c.Set(CacheKey, paths, 0)
}

// Key 生成组合键 dir|file|ext|0/1。dir 统一为斜杠风格并去掉结尾斜杠，
// ext 去掉前导点并转为小写，使 ".PHP"、"php" 命中同一条目。
func Key(dir, file, ext string, asArray bool) string {
	flag := "0"
	if asArray {
		flag = "1"
	}
	return strings.Join([]string{normalizeDir(dir), file, normalizeExt(ext), flag}, "|")
}

func normalizeDir(dir string) string {
	dir = filepath.ToSlash(strings.TrimSpace(dir))
	if trimmed := strings.TrimRight(dir, "/"); trimmed != "" {
		return trimmed
	}
	return dir
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
