package repair

import "github.com/arloliu/regionfile/nbt"

// fixEntityPosition clamps an entity's Pos back into its chunk.
//
// Pos is a list of three Doubles (x, y, z). The legal x interval is
// [chunkX*16, (chunkX+1)*16), and analogously for z; an out-of-range axis is
// replaced with the chunk center on that axis. y is never range-checked.
//
// Returns 1 when the position was repaired (counted once per position, not
// per axis), 0 otherwise.
func fixEntityPosition(pos *nbt.List, chunkX, chunkZ int32) int {
	if len(pos.Items) < 3 {
		return 0
	}

	fixed := false

	minX := float64(chunkX) * 16
	maxX := float64(chunkX+1) * 16
	if x, ok := pos.Items[0].(nbt.Double); ok {
		if float64(x) < minX || float64(x) >= maxX {
			pos.Items[0] = nbt.Double(minX + 8.0)
			fixed = true
		}
	}

	minZ := float64(chunkZ) * 16
	maxZ := float64(chunkZ+1) * 16
	if z, ok := pos.Items[2].(nbt.Double); ok {
		if float64(z) < minZ || float64(z) >= maxZ {
			pos.Items[2] = nbt.Double(minZ + 8.0)
			fixed = true
		}
	}

	if fixed {
		return 1
	}

	return 0
}
