package mosaic

import (
	"fmt"
	"strings"

	"github.com/AnyUserName/mosaic-cli/internal/raster"
)

// Type selects how per-source samples are reduced to one pixel.
type Type int

const (
	// Blend produces the weighted average of all contributing sources.
	Blend Type = iota
	// Overlay takes the first contributing source in declared order.
	Overlay
)

func (t Type) String() string {
	switch t {
	case Blend:
		return "blend"
	case Overlay:
		return "overlay"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType maps "blend" or "overlay" (case-insensitive) to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blend", "":
		return Blend, nil
	case "overlay":
		return Overlay, nil
	}
	return 0, fmt.Errorf("unknown mosaic type %q", s)
}

// AlphaMode is how alpha samples turn into weights.
type AlphaMode int

const (
	// Bitmask snaps any positive alpha to full opacity.
	Bitmask AlphaMode = iota
	// Translucent uses normalized alpha as a continuous weight.
	Translucent
)

func (m AlphaMode) String() string {
	if m == Translucent {
		return "translucent"
	}
	return "bitmask"
}

// ResolveAlphaMode picks the alpha interpretation for one invocation.
// Only a blend with an alpha mask for every source is translucent.
func ResolveAlphaMode(t Type, alpha []raster.Image, numSources int) AlphaMode {
	if t != Blend || alpha == nil || len(alpha) < numSources {
		return Bitmask
	}
	for i := 0; i < numSources; i++ {
		if alpha[i] == nil {
			return Bitmask
		}
	}
	return Translucent
}

// NormalizeThreshold expands a ragged per-source, per-band threshold table
// to numSources×numBands. A nil row is absent and inherits row 0; row 0
// itself defaults to {1.0}. Short rows replicate their first element.
func NormalizeThreshold(raw [][]float64, numSources, numBands int) ([][]float64, error) {
	row0 := []float64{1.0}
	if len(raw) > 0 && raw[0] != nil {
		row0 = raw[0]
	}

	out := make([][]float64, numSources)
	for i := range out {
		src := row0
		if i > 0 {
			if i >= len(raw) || raw[i] == nil {
				out[i] = append([]float64(nil), out[0]...)
				continue
			}
			src = raw[i]
		}
		row, err := expand(src, numBands)
		if err != nil {
			return nil, fmt.Errorf("%w: threshold for source %d: %v", ErrArityMismatch, i, err)
		}
		out[i] = row
	}
	return out, nil
}

// NormalizeBackground expands the background value array to numBands,
// defaulting to {0.0}.
func NormalizeBackground(raw []float64, numBands int) ([]float64, error) {
	if raw == nil {
		raw = []float64{0.0}
	}
	out, err := expand(raw, numBands)
	if err != nil {
		return nil, fmt.Errorf("%w: background: %v", ErrArityMismatch, err)
	}
	return out, nil
}

func expand(v []float64, n int) ([]float64, error) {
	if len(v) == 0 {
		return nil, fmt.Errorf("empty array for %d bands", n)
	}
	out := make([]float64, n)
	if len(v) < n {
		for b := range out {
			out[b] = v[0]
		}
		return out, nil
	}
	copy(out, v)
	return out, nil
}
