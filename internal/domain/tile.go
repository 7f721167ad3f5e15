package domain

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// MaxZoom bounds z so that 2^z fits comfortably in a uint32 grid.
const MaxZoom = 30

type Layer int

const (
	LayerOSM Layer = iota
	LayerSatellite
)

var Layers = []Layer{LayerOSM, LayerSatellite}

// ParseLayer accepts the route names ("osm", "gsat") and a few aliases.
func ParseLayer(s string) (Layer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "osm":
		return LayerOSM, nil
	case "gsat", "satellite", "sat":
		return LayerSatellite, nil
	default:
		return 0, fmt.Errorf("%w: unknown layer %q", ErrInvalidTileCoordinate, s)
	}
}

// String returns the route name of the layer.
func (l Layer) String() string {
	switch l {
	case LayerOSM:
		return "osm"
	case LayerSatellite:
		return "gsat"
	default:
		return "layer(" + strconv.Itoa(int(l)) + ")"
	}
}

// Dir is the directory name of the layer under the cache root.
func (l Layer) Dir() string {
	switch l {
	case LayerOSM:
		return "OSM"
	case LayerSatellite:
		return "gsat"
	default:
		return "layer_" + strconv.Itoa(int(l))
	}
}

// TileKey identifies one raster tile. It is comparable and safe to use as a map key.
type TileKey struct {
	Layer Layer
	Z     uint32
	X     uint32
	Y     uint32
}

// NewTileKey validates the grid bounds of an already numeric coordinate.
func NewTileKey(layer Layer, z, x, y uint32) (TileKey, error) {
	if layer != LayerOSM && layer != LayerSatellite {
		return TileKey{}, fmt.Errorf("%w: unknown layer %d", ErrInvalidTileCoordinate, layer)
	}
	if z > MaxZoom {
		return TileKey{}, fmt.Errorf("%w: z=%d exceeds max zoom %d", ErrInvalidTileCoordinate, z, MaxZoom)
	}
	n := uint64(1) << z
	if uint64(x) >= n || uint64(y) >= n {
		return TileKey{}, fmt.Errorf("%w: x=%d y=%d out of range for z=%d", ErrInvalidTileCoordinate, x, y, z)
	}
	return TileKey{Layer: layer, Z: z, X: x, Y: y}, nil
}

// ParseTileKey parses raw path components. A ".png" suffix on y is tolerated.
func ParseTileKey(layer, zRaw, xRaw, yRaw string) (TileKey, error) {
	l, err := ParseLayer(layer)
	if err != nil {
		return TileKey{}, err
	}

	z, err := parseComponent("z", zRaw)
	if err != nil {
		return TileKey{}, err
	}
	x, err := parseComponent("x", xRaw)
	if err != nil {
		return TileKey{}, err
	}
	y, err := parseComponent("y", strings.TrimSuffix(yRaw, ".png"))
	if err != nil {
		return TileKey{}, err
	}

	return NewTileKey(l, z, x, y)
}

func parseComponent(name, raw string) (uint32, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is empty", ErrInvalidTileCoordinate, name)
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %s should be a non-negative integer, got %q", ErrInvalidTileCoordinate, name, raw)
		}
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s out of range: %q", ErrInvalidTileCoordinate, name, raw)
	}
	return uint32(v), nil
}

// Path maps the key to {root}/{layerDir}/{z}/{x}/{y}.png.
func (k TileKey) Path(root string) string {
	return filepath.Join(
		root,
		k.Layer.Dir(),
		strconv.FormatUint(uint64(k.Z), 10),
		strconv.FormatUint(uint64(k.X), 10),
		strconv.FormatUint(uint64(k.Y), 10)+".png",
	)
}

// String is the canonical flat form, used as in-flight and KV store key.
func (k TileKey) String() string {
	return fmt.Sprintf("%s/%d/%d/%d", k.Layer, k.Z, k.X, k.Y)
}
