package codec

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AnyUserName/mosaic-cli/internal/raster"
)

// Atomic counter for unique temp file names across goroutines.
var tempCounter atomic.Int64

// cwebpTimeout bounds one external encode.
const cwebpTimeout = 2 * time.Minute

// WebPEncoder encodes 8-bit rasters to WebP by shelling out to cwebp.
// Install: brew install webp / apt install webp
type WebPEncoder struct {
	once      sync.Once
	available bool
	cwebpPath string
}

func (e *WebPEncoder) Format() string    { return "webp" }
func (e *WebPEncoder) Extension() string { return "webp" }

func (e *WebPEncoder) Supports(m raster.SampleModel) bool {
	return imageModel(m, raster.Byte)
}

func (e *WebPEncoder) Available() bool {
	e.once.Do(func() {
		path, err := exec.LookPath("cwebp")
		if err == nil {
			e.available = true
			e.cwebpPath = path
		}
	})
	return e.available
}

func (e *WebPEncoder) Encode(r *raster.Raster, quality int) ([]byte, error) {
	if !e.Available() {
		return nil, fmt.Errorf("cwebp not found in PATH; install with: brew install webp")
	}
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	img, err := raster.ToImage(r)
	if err != nil {
		return nil, err
	}

	// cwebp reads files; stage the raster as PNG.
	id := tempCounter.Add(1)
	srcFile, err := os.CreateTemp("", fmt.Sprintf("mosaic_src_%d_*.png", id))
	if err != nil {
		return nil, fmt.Errorf("create temp: %w", err)
	}
	srcPath := srcFile.Name()
	defer os.Remove(srcPath)

	if err := png.Encode(srcFile, img); err != nil {
		srcFile.Close()
		return nil, fmt.Errorf("encode temp png: %w", err)
	}
	if err := srcFile.Close(); err != nil {
		return nil, fmt.Errorf("close temp png: %w", err)
	}

	dstFile, err := os.CreateTemp("", fmt.Sprintf("mosaic_dst_%d_*.webp", id))
	if err != nil {
		return nil, fmt.Errorf("create temp: %w", err)
	}
	dstPath := dstFile.Name()
	dstFile.Close()
	defer os.Remove(dstPath)

	ctx, cancel := context.WithTimeout(context.Background(), cwebpTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, e.cwebpPath,
		"-q", strconv.Itoa(quality),
		"-m", "6", // compression method (0=fast, 6=best)
		"-mt",
		"-exact", // keep RGB under transparent pixels
		"-quiet",
		srcPath,
		"-o", dstPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("cwebp: %w: %s", err, string(out))
	}

	return os.ReadFile(dstPath)
}
