package profile

// Profile defines rendering parameters for a kind of output.
type Profile struct {
	Name     string
	TileSize int    // destination tile edge in pixels
	Format   string // preferred output format
	Quality  int    // encoding quality 1-100, lossy formats only
	Preview  int    // preview thumbnail edge, 0 = none
}

// Built-in profiles.
var profiles = map[string]Profile{
	"default": {
		Name:     "default",
		TileSize: 256,
		Format:   "png",
		Quality:  90,
	},
	"preview": {
		Name:     "preview",
		TileSize: 128,
		Format:   "jpeg",
		Quality:  80,
		Preview:  512,
	},
	"archive": {
		Name:     "archive",
		TileSize: 512,
		Format:   "tiff",
		Quality:  100,
	},
	"float": {
		Name:     "float",
		TileSize: 256,
		Format:   "mraw",
	},
}

// Get returns a profile by name. Falls back to default if unknown.
func Get(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	p := profiles["default"]
	p.Name = name // preserve requested name
	return p
}

// Names lists the built-in profiles.
func Names() []string {
	return []string{"default", "preview", "archive", "float"}
}

// TileFor returns the tile dimensions for a width×height destination.
// Tiles never exceed the destination (no work on empty tile area).
func (p Profile) TileFor(width, height int) (int, int) {
	size := p.TileSize
	if size <= 0 {
		size = 256
	}
	tw, th := size, size
	if width > 0 && width < tw {
		tw = width
	}
	if height > 0 && height < th {
		th = height
	}
	return tw, th
}
