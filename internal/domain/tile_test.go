package domain

import (
	"errors"
	"path/filepath"
	"strconv"
	"testing"
)

func TestParseTileKey(t *testing.T) {
	tests := []struct {
		name    string
		layer   string
		z, x, y string
		want    TileKey
		wantErr bool
	}{
		{name: "root tile", layer: "osm", z: "0", x: "0", y: "0", want: TileKey{LayerOSM, 0, 0, 0}},
		{name: "png suffix", layer: "gsat", z: "3", x: "7", y: "5.png", want: TileKey{LayerSatellite, 3, 7, 5}},
		{name: "x out of range", layer: "osm", z: "2", x: "4", y: "0", wantErr: true},
		{name: "y out of range", layer: "osm", z: "2", x: "0", y: "4", wantErr: true},
		{name: "negative", layer: "osm", z: "2", x: "-1", y: "0", wantErr: true},
		{name: "plus sign", layer: "osm", z: "+2", x: "0", y: "0", wantErr: true},
		{name: "non numeric", layer: "osm", z: "a", x: "0", y: "0", wantErr: true},
		{name: "empty", layer: "osm", z: "", x: "0", y: "0", wantErr: true},
		{name: "zoom too deep", layer: "osm", z: "31", x: "0", y: "0", wantErr: true},
		{name: "huge number", layer: "osm", z: "1", x: "99999999999999999999", y: "0", wantErr: true},
		{name: "unknown layer", layer: "bing", z: "0", x: "0", y: "0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTileKey(tt.layer, tt.z, tt.x, tt.y)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTileCoordinate) {
					t.Fatalf("expected ErrInvalidTileCoordinate, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTileKeyPath(t *testing.T) {
	k := TileKey{Layer: LayerOSM, Z: 4, X: 3, Y: 9}
	want := filepath.Join("/tiles", "OSM", "4", "3", "9.png")
	if got := k.Path("/tiles"); got != want {
		t.Fatalf("Path() = %q, want %q", got, want)
	}

	sat := TileKey{Layer: LayerSatellite, Z: 4, X: 3, Y: 9}
	if k.Path("/tiles") == sat.Path("/tiles") {
		t.Fatal("layers must not share paths")
	}
}

func TestTileKeyPathCollisionFree(t *testing.T) {
	seen := make(map[string]TileKey)
	for _, layer := range Layers {
		for z := uint32(0); z <= 4; z++ {
			n := uint32(1) << z
			for x := uint32(0); x < n; x++ {
				for y := uint32(0); y < n; y++ {
					k := TileKey{Layer: layer, Z: z, X: x, Y: y}
					p := k.Path("root")
					if other, ok := seen[p]; ok {
						t.Fatalf("%v and %v share path %q", k, other, p)
					}
					seen[p] = k
				}
			}
		}
	}
}

func TestTileKeyPathRoundTrip(t *testing.T) {
	for _, layer := range Layers {
		k := TileKey{Layer: layer, Z: 10, X: 512, Y: 1023}
		rel, err := filepath.Rel("root", k.Path("root"))
		if err != nil {
			t.Fatal(err)
		}
		dir, file := filepath.Split(rel)
		xDir := filepath.Base(dir)
		zDir := filepath.Base(filepath.Dir(filepath.Clean(dir)))

		got, err := ParseTileKey(layer.String(), zDir, xDir, file)
		if err != nil {
			t.Fatalf("parse %q: %v", rel, err)
		}
		if got != k {
			t.Fatalf("round trip: got %+v, want %+v", got, k)
		}
		if got.Path("root") != k.Path("root") {
			t.Fatal("path not stable")
		}
	}
}

func TestParseLayer(t *testing.T) {
	for _, l := range Layers {
		got, err := ParseLayer(l.String())
		if err != nil || got != l {
			t.Fatalf("ParseLayer(%q) = %v, %v", l.String(), got, err)
		}
	}
	if _, err := ParseLayer("OSM"); err != nil {
		t.Fatalf("layer names are case-insensitive: %v", err)
	}
}

func BenchmarkParseTileKey(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = ParseTileKey("osm", "18", strconv.Itoa(i%1000), "42.png")
	}
}
