package config

import (
	"fmt"
	"strconv"
	"strings"
)

// WarmupRange is one rectangle of tiles to pre-fetch for a layer.
type WarmupRange struct {
	Layer string
	MinZ  uint32
	MaxZ  uint32
	MinX  uint32
	MaxX  uint32
	MinY  uint32
	MaxY  uint32
}

// WarmupRanges decodes "layer:minZ-maxZ:minX-maxX:minY-maxY" entries separated by ';'.
type WarmupRanges []WarmupRange

func (r *WarmupRanges) UnmarshalText(text []byte) error {
	var out WarmupRanges
	for _, entry := range strings.Split(string(text), ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		wr, err := parseWarmupRange(entry)
		if err != nil {
			return err
		}
		out = append(out, wr)
	}
	*r = out
	return nil
}

func parseWarmupRange(entry string) (WarmupRange, error) {
	parts := strings.Split(entry, ":")
	if len(parts) != 4 {
		return WarmupRange{}, fmt.Errorf("warmup range %q: want layer:minZ-maxZ:minX-maxX:minY-maxY", entry)
	}

	wr := WarmupRange{Layer: strings.TrimSpace(parts[0])}
	if wr.Layer == "" {
		return WarmupRange{}, fmt.Errorf("warmup range %q: empty layer", entry)
	}

	var err error
	if wr.MinZ, wr.MaxZ, err = parseSpan(parts[1]); err != nil {
		return WarmupRange{}, fmt.Errorf("warmup range %q: z: %w", entry, err)
	}
	if wr.MinX, wr.MaxX, err = parseSpan(parts[2]); err != nil {
		return WarmupRange{}, fmt.Errorf("warmup range %q: x: %w", entry, err)
	}
	if wr.MinY, wr.MaxY, err = parseSpan(parts[3]); err != nil {
		return WarmupRange{}, fmt.Errorf("warmup range %q: y: %w", entry, err)
	}
	return wr, nil
}

// parseSpan accepts "a-b" or a single "a".
func parseSpan(s string) (uint32, uint32, error) {
	lo, hi, found := strings.Cut(strings.TrimSpace(s), "-")
	if !found {
		hi = lo
	}
	from, err := strconv.ParseUint(strings.TrimSpace(lo), 10, 32)
	if err != nil {
		return 0, 0, err
	}
	to, err := strconv.ParseUint(strings.TrimSpace(hi), 10, 32)
	if err != nil {
		return 0, 0, err
	}
	if to < from {
		return 0, 0, fmt.Errorf("max %d < min %d", to, from)
	}
	return uint32(from), uint32(to), nil
}
