package repair

import (
	"github.com/google/uuid"

	"github.com/arloliu/regionfile/endian"
	"github.com/arloliu/regionfile/nbt"
)

// UUID lanes are big-endian on the wire, like everything else.
var engine = endian.GetBigEndianEngine()

// fixEntityUUID canonicalizes the entity's UUID field, regenerates it when a
// previous entity in the region already used it, and records the final UUID
// in usedUUIDs. The replacement keeps the field's original representation:
// a String stays a String, a 4-lane IntArray stays a 4-lane IntArray.
//
// Returns 1 when a UUID was regenerated, 0 otherwise.
func fixEntityUUID(entity nbt.Compound, usedUUIDs map[string]struct{}) int {
	var uuidStr string

	switch v := entity["UUID"].(type) {
	case nbt.String:
		uuidStr = string(v)
	case nbt.IntArray:
		if len(v) != 4 {
			return 0
		}
		uuidStr = lanesToUUID(v).String()
	default:
		return 0
	}

	if _, dup := usedUUIDs[uuidStr]; !dup {
		usedUUIDs[uuidStr] = struct{}{}
		return 0
	}

	fresh := uuid.New()
	freshStr := fresh.String()

	switch v := entity["UUID"].(type) {
	case nbt.String:
		entity["UUID"] = nbt.String(freshStr)
	case nbt.IntArray:
		uuidToLanes(fresh, v)
	}

	usedUUIDs[freshStr] = struct{}{}

	return 1
}

// lanesToUUID packs a 4-element IntArray (big-endian u128, most significant
// lane first) into a UUID.
func lanesToUUID(lanes nbt.IntArray) uuid.UUID {
	var b [16]byte
	for i, lane := range lanes {
		engine.PutUint32(b[i*4:], uint32(lane))
	}

	return uuid.UUID(b)
}

// uuidToLanes splits a UUID into the 4-lane representation in place.
func uuidToLanes(u uuid.UUID, lanes nbt.IntArray) {
	for i := range lanes {
		lanes[i] = int32(engine.Uint32(u[i*4:]))
	}
}
