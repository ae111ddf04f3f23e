package utils

import (
	"mime"
	"path"
	"strings"
)

// extToMimeMap 上传允许的扩展名对应的 MIME 类型
var extToMimeMap = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"mp4":  "video/mp4",
	"avi":  "video/x-msvideo",
}

// GetExtensionFromFilename 取最后一个 "." 之后的部分并转为小写，没有 "." 时返回空字符串
func GetExtensionFromFilename(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// ContentTypeForPath 根据存储路径的扩展名推断 Content-Type
func ContentTypeForPath(p string) string {
	ext := GetExtensionFromFilename(path.Base(p))
	if ct, ok := extToMimeMap[ext]; ok {
		return ct
	}
	if ext != "" {
		if ct := mime.TypeByExtension("." + ext); ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}
