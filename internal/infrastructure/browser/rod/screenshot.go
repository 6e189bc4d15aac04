package rod

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"webagent/internal/domain/entity"
)

const maxScreenshotWidth = 1024

// Screenshot returns a JPEG of the viewport, downscaled to at most 1024px wide.
func (b *BrowserAdapter) Screenshot(ctx context.Context) ([]byte, error) {
	page, err := b.livePage(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := page.Timeout(b.timeout).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(80),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: screenshot: %v", entity.ErrBackend, err)
	}
	return downscale(raw, maxScreenshotWidth)
}

func downscale(raw []byte, width int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}
	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}
	return buf.Bytes(), nil
}
