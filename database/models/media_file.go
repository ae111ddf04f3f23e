package models

import (
	"strings"
	"time"
)

// FileType 媒体文件类型
type FileType string

const (
	FileTypeImage FileType = "IMAGE"
	FileTypeVideo FileType = "VIDEO"
)

// extensionTypes 允许上传的扩展名（小写）
var extensionTypes = map[string]FileType{
	"png":  FileTypeImage,
	"jpg":  FileTypeImage,
	"jpeg": FileTypeImage,
	"mp4":  FileTypeVideo,
	"avi":  FileTypeVideo,
}

// FileTypeFromExtension 根据扩展名判断文件类型，不支持的扩展名返回 false
func FileTypeFromExtension(ext string) (FileType, bool) {
	ft, ok := extensionTypes[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return ft, ok
}

// SupportedExtensions 返回允许上传的扩展名
func SupportedExtensions() []string {
	return []string{"png", "jpg", "jpeg", "mp4", "avi"}
}

func (t FileType) IsImage() bool { return t == FileTypeImage }

func (t FileType) IsVideo() bool { return t == FileTypeVideo }

// MediaFile 已上传媒体文件的元数据，写入后不可变
type MediaFile struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FilePath  string    `gorm:"not null" json:"file_path"`
	FileType  FileType  `gorm:"type:varchar(16);not null" json:"file_type"`
	FileSize  int64     `gorm:"not null" json:"file_size"`
	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"created_at"`
}

func (MediaFile) TableName() string {
	return "media_files"
}
