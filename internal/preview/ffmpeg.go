package preview

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// FrameExtractor 从本地视频文件中提取第一帧，返回 PNG
type FrameExtractor interface {
	FirstFrame(ctx context.Context, videoPath string) ([]byte, error)
}

// FFmpegExtractor 调用 ffmpeg 可执行文件抓取首帧
type FFmpegExtractor struct {
	binary string
}

// NewFFmpegExtractor binary 为空时使用 PATH 中的 ffmpeg
func NewFFmpegExtractor(binary string) *FFmpegExtractor {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegExtractor{binary: binary}
}

// firstFrameArgs 构造 "-i <path> -vframes 1 -f image2 -vcodec png pipe:" 参数
func firstFrameArgs(videoPath string) []string {
	return ffmpeg.Input(videoPath).
		Output("pipe:", ffmpeg.KwArgs{
			"vframes": 1,
			"f":       "image2",
			"vcodec":  "png",
		}).
		GetArgs()
}

func (e *FFmpegExtractor) FirstFrame(ctx context.Context, videoPath string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, e.binary, append([]string{"-loglevel", "error", "-nostdin"}, firstFrameArgs(videoPath)...)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, fmt.Errorf("%w: ffmpeg failed: %v: %s", ErrDecode, err, msg)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: no frame captured", ErrDecode)
	}
	return stdout.Bytes(), nil
}

// Available 检查 ffmpeg 是否可执行
func (e *FFmpegExtractor) Available() bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}
