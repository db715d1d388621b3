package codec

import (
	"fmt"
	"strings"

	"github.com/AnyUserName/mosaic-cli/internal/raster"
)

// priority is the listing order of formats.
var priority = []string{"png", "tiff", "jpeg", "webp", "bmp", "mraw"}

// Registry holds all available encoders.
type Registry struct {
	encoders map[string]Encoder
}

// NewRegistry creates a registry, probing all encoders for availability.
func NewRegistry() *Registry {
	r := &Registry{
		encoders: make(map[string]Encoder),
	}

	all := []Encoder{
		&PNGEncoder{},
		&TIFFEncoder{},
		&JPEGEncoder{},
		&WebPEncoder{},
		&BMPEncoder{},
		&MRAWEncoder{},
	}
	for _, enc := range all {
		if enc.Available() {
			r.encoders[enc.Format()] = enc
		}
	}
	return r
}

// Get returns an encoder for the given format, or nil if unavailable.
func (r *Registry) Get(format string) Encoder {
	return r.encoders[normalizeFormat(format)]
}

// Available returns all available format names.
func (r *Registry) Available() []string {
	var result []string
	for _, f := range priority {
		if _, ok := r.encoders[f]; ok {
			result = append(result, f)
		}
	}
	return result
}

// ResolveFormat returns the requested format when it is available and can
// hold model m, else the first available format in priority order that
// can. mraw holds every model, so resolution only fails on an empty
// registry.
func (r *Registry) ResolveFormat(requested string, m raster.SampleModel) (Encoder, error) {
	if enc := r.Get(requested); enc != nil && enc.Supports(m) {
		return enc, nil
	}
	for _, f := range priority {
		if enc, ok := r.encoders[f]; ok && enc.Supports(m) {
			return enc, nil
		}
	}
	return nil, fmt.Errorf("no encoder for %s", m)
}

// String returns a summary of available encoders.
func (r *Registry) String() string {
	avail := r.Available()
	if len(avail) == 0 {
		return "no encoders available"
	}
	return fmt.Sprintf("encoders: %s", strings.Join(avail, ", "))
}

func normalizeFormat(f string) string {
	f = strings.ToLower(strings.TrimPrefix(f, "."))
	switch f {
	case "jpg":
		return "jpeg"
	case "tif":
		return "tiff"
	}
	return f
}
