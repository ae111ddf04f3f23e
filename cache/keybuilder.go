package cache

import "strings"

// KeyBuilder 缓存键构建器
type KeyBuilder struct {
	prefix string
	sep    string
}

// NewKeyBuilder 创建新的键构建器
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{
		prefix: prefix,
		sep:    ":",
	}
}

// Build 构建缓存键
func (kb *KeyBuilder) Build(parts ...string) string {
	if len(parts) == 0 {
		return kb.prefix
	}
	return kb.prefix + kb.sep + strings.Join(parts, kb.sep)
}

var mediaKeys = NewKeyBuilder("media")

// MediaFileKey 媒体文件记录的缓存键
func MediaFileKey(id string) string {
	return mediaKeys.Build(id)
}

// MediaFilePrefix 媒体记录缓存键前缀
func MediaFilePrefix() string {
	return mediaKeys.Build("")
}
