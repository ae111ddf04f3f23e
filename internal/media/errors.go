package media

import "errors"

var (
	// ErrUnsupportedFileType 扩展名不在允许列表内
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("file not found")
	// ErrBlobMissing 记录存在但存储中没有对应数据
	ErrBlobMissing = errors.New("file data missing")
)
