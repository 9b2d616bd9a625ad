package attach

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"strings"

	_ "image/gif"

	"github.com/nfnt/resize"

	"github.com/davidhbaek/codegen/internal/ctxlog"
	"github.com/davidhbaek/codegen/internal/wire"
)

const MaxImageSize = 5 * 1024 * 1024 // 5 MB (the max Claude allows per image)

func isURL(path string) bool {
	return strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://")
}

// Image reads an image from a URL or a local path and downscales it when it
// is larger than the loader's limit.
func (l *Loader) Image(ctx context.Context, path string) (wire.Image, error) {
	data, err := l.fetch(ctx, path)
	if err != nil {
		return wire.Image{}, err
	}

	mediaType := http.DetectContentType(data)
	if !strings.HasPrefix(mediaType, "image/") {
		return wire.Image{}, fmt.Errorf("%s is not an image (detected %s)", path, mediaType)
	}

	if int64(len(data)) > l.MaxImageSize {
		ctxlog.FromContext(ctx).Debug("re-sizing image", "path", path, "bytes", len(data), "limit", l.MaxImageSize)

		data, mediaType, err = shrink(data, float64(l.MaxImageSize)/float64(len(data)))
		if err != nil {
			return wire.Image{}, fmt.Errorf("re-sizing %s: %w", path, err)
		}
	}

	return wire.Image{MediaType: mediaType, Data: data}, nil
}

func (l *Loader) fetch(ctx context.Context, path string) ([]byte, error) {
	// Download the image from the internet
	if isURL(path) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		rsp, err := l.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer rsp.Body.Close()

		if rsp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("downloading %s: status %d", path, rsp.StatusCode)
		}

		return io.ReadAll(rsp.Body)
	}

	return os.ReadFile(path)
}

// shrink scales both sides by ratio and re-encodes. PNGs stay PNG, everything
// else becomes JPEG.
func shrink(data []byte, ratio float64) ([]byte, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}

	buffer := bytes.Buffer{}
	small := resizeImg(img, ratio)

	if format == "png" {
		encoder := png.Encoder{CompressionLevel: png.BestCompression}
		if err := encoder.Encode(&buffer, small); err != nil {
			return nil, "", err
		}
		return buffer.Bytes(), "image/png", nil
	}

	if err := jpeg.Encode(&buffer, small, &jpeg.Options{Quality: jpeg.DefaultQuality}); err != nil {
		return nil, "", err
	}
	return buffer.Bytes(), "image/jpeg", nil
}

func resizeImg(img image.Image, size float64) image.Image {
	width := max(1, uint(float64(img.Bounds().Dx())*size))
	height := max(1, uint(float64(img.Bounds().Dy())*size))

	return resize.Resize(width, height, img, resize.Lanczos3)
}
