package preview

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Resizer 将编码后的图片拉伸缩放到精确尺寸并输出 PNG，不保持宽高比
type Resizer interface {
	ResizePNG(src []byte, width, height int) ([]byte, error)
	Name() string
}

// checkSource 只解析图片头，拒绝声明了超大尺寸的源图
func checkSource(src []byte, maxPixels int64) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: empty image %dx%d", ErrDecode, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrSourceTooLarge, cfg.Width, cfg.Height, maxPixels)
	}
	return nil
}

// decode 解码 PNG / JPEG
func decode(src []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DrawResizer 使用 golang.org/x/image/draw 的 CatmullRom 插值
type DrawResizer struct{}

func (DrawResizer) ResizePNG(src []byte, width, height int) ([]byte, error) {
	img, err := decode(src)
	if err != nil {
		return nil, err
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return encodePNG(dst)
}

func (DrawResizer) Name() string { return "draw" }

// ImagingResizer 使用 disintegration/imaging 的 Lanczos 插值
type ImagingResizer struct{}

func (ImagingResizer) ResizePNG(src []byte, width, height int) ([]byte, error) {
	img, err := decode(src)
	if err != nil {
		return nil, err
	}
	return encodePNG(imaging.Resize(img, width, height, imaging.Lanczos))
}

func (ImagingResizer) Name() string { return "imaging" }
