// Package icons locates the best icon asset for a symbolic icon name within
// a harvested icon theme tree, with a flat pixmap directory as fallback.
package icons

import (
	"io/fs"
	"math"
	"path/filepath"
	"strings"
)

// Format is the inferred asset format.
type Format int

const (
	FormatOther Format = iota
	FormatRaster
	FormatVector
)

// Asset is a resolved icon file.
type Asset struct {
	Path   string
	Format Format
	// Size is the pixel-size bucket inferred from the NxN segment of the
	// grandparent directory name. Zero for vector and unbucketed assets.
	Size uint32
}

// formatOf infers the asset format from the file extension. Only svg and
// png are ever forwarded to registration; other formats still resolve so
// the caller can decide.
func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return FormatVector
	case ".png":
		return FormatRaster
	}
	return FormatOther
}

// score ranks a candidate. Vector always wins; raster assets rank by the
// size bucket of their grandparent directory (hicolor layout puts files in
// <theme>/<N>x<N>/apps/). Unparseable or missing buckets rank lowest.
func score(path string, format Format) uint32 {
	switch format {
	case FormatVector:
		return math.MaxUint32
	case FormatRaster:
		return sizeBucket(path)
	}
	return 0
}

// sizeBucket parses the "<N>x<N>" grandparent directory segment, returning
// zero when absent or unparseable.
func sizeBucket(path string) uint32 {
	grandparent := filepath.Base(filepath.Dir(filepath.Dir(path)))
	dim, _, ok := strings.Cut(grandparent, "x")
	if !ok {
		return 0
	}
	var size uint32
	for _, r := range dim {
		if r < '0' || r > '9' {
			return 0
		}
		size = size*10 + uint32(r-'0')
	}
	if dim == "" {
		return 0
	}
	return size
}

// stem returns the file name without its final extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Resolve walks iconRoot for files whose stem equals name and returns the
// highest-scoring candidate. Symbolic links are not followed. Ties on equal
// raster scores keep the first candidate in walk order. When the icon tree
// has no match, pixmapRoot is searched linearly and the first stem match
// wins, unscored. The boolean is false when neither tree yields a match.
func Resolve(name, iconRoot, pixmapRoot string) (Asset, bool) {
	var best Asset
	var bestScore uint32
	found := false

	_ = filepath.WalkDir(iconRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if stem(path) != name {
			return nil
		}
		f := formatOf(path)
		s := score(path, f)
		if !found || s > bestScore {
			best = Asset{Path: path, Format: f, Size: rasterSize(path, f)}
			bestScore = s
			found = true
		}
		return nil
	})
	if found {
		return best, true
	}

	_ = filepath.WalkDir(pixmapRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if stem(path) == name {
			best = Asset{Path: path, Format: formatOf(path)}
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return best, found
}

func rasterSize(path string, f Format) uint32 {
	if f != FormatRaster {
		return 0
	}
	return sizeBucket(path)
}
