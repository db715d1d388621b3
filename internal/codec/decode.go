package codec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AnyUserName/mosaic-cli/internal/rawfile"
	"github.com/AnyUserName/mosaic-cli/internal/raster"
	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Extensions lists recognized source file extensions.
var Extensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	"." + rawfile.Extension: true,
}

// FormatOf returns the normalized format name of path's extension.
func FormatOf(path string) string {
	return normalizeFormat(filepath.Ext(path))
}

// Decode reads a source file into a raster. MRAW files keep their stored
// origin and model; image files are decoded with EXIF orientation applied
// and anchored at (0, 0).
func Decode(path string) (*raster.Raster, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Extensions[ext] {
		return nil, fmt.Errorf("unsupported source format %q", ext)
	}

	if ext == "."+rawfile.Extension {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return rawfile.Decode(f)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	return raster.FromImage(img), nil
}
