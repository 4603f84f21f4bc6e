package repair

import (
	"fmt"

	"github.com/arloliu/regionfile/nbt"
	"github.com/arloliu/regionfile/region"
)

// entityListFields are the root compound fields that may hold entity lists.
// Both spellings can coexist in one chunk; both are processed.
var entityListFields = []string{"Entities", "entities"}

// equipmentSlots are the compound-valued slots of a modern "equipment"
// compound.
var equipmentSlots = []string{"head", "chest", "legs", "feet", "mainhand", "offhand"}

// protocolLeftoverKey is a converter artifact inside minecraft:custom_data
// that must be stripped.
const protocolLeftoverKey = "VV|Protocol1_20_3To1_20_5"

// FixRegion repairs every chunk of a region in place.
//
// Duplicate UUID detection is region-wide: one set of seen UUIDs is threaded
// across all chunks, so the second entity to present a UUID gets a fresh
// one. A chunk is re-serialized only when one of its entities changed.
func FixRegion(r *region.Region) (Stats, error) {
	var stats Stats

	usedUUIDs := make(map[string]struct{})

	for i := 0; i < region.ChunksPerRegion; i++ {
		chunk := r.Chunk(i)
		if chunk == nil {
			continue
		}

		chunkStats, err := FixChunk(chunk, usedUUIDs)
		if err != nil {
			return stats, fmt.Errorf("chunk %d: %w", i, err)
		}

		if chunkStats.touchedEntities() {
			stats.ChunksFixed++
		}

		stats.Merge(chunkStats)
	}

	return stats, nil
}

// FixChunk parses a chunk payload, repairs its entity lists, and replaces
// the payload when anything changed.
func FixChunk(chunk *region.Chunk, usedUUIDs map[string]struct{}) (Stats, error) {
	var stats Stats

	root, err := nbt.Parse(chunk.Data)
	if err != nil {
		return stats, fmt.Errorf("parse payload: %w", err)
	}

	compound, ok := root.(nbt.Compound)
	if !ok {
		return stats, nil
	}

	modified := false

	for _, field := range entityListFields {
		entities := compound.GetList(field)
		if entities == nil {
			continue
		}

		deleted := deleteExploitEntities(entities)
		if deleted > 0 {
			stats.EntitiesFixed += deleted
			modified = true
		}

		for _, entity := range entities.Items {
			entityStats := fixEntity(entity, chunk.X, chunk.Z, usedUUIDs)
			if entityStats.touchedEntities() {
				modified = true
			}

			stats.Merge(entityStats)
		}
	}

	if modified {
		data, err := nbt.Serialize(root)
		if err != nil {
			return stats, fmt.Errorf("serialize payload: %w", err)
		}

		chunk.Data = data
	}

	return stats, nil
}

// deleteExploitEntities removes entities whose equipment carries an item
// with a minecraft:custom_data component and returns how many were removed.
func deleteExploitEntities(entities *nbt.List) int {
	kept := entities.Items[:0]
	deleted := 0

	for _, entity := range entities.Items {
		if shouldDeleteEntity(entity) {
			deleted++
			continue
		}

		kept = append(kept, entity)
	}

	entities.Items = kept

	return deleted
}

func shouldDeleteEntity(entity nbt.Value) bool {
	data, ok := entity.(nbt.Compound)
	if !ok {
		return false
	}

	if equipment := data.GetCompound("equipment"); equipment != nil {
		for _, item := range equipment {
			if hasCustomData(item) {
				return true
			}
		}
	}

	for _, field := range []string{"ArmorItems", "HandItems"} {
		items := data.GetList(field)
		if items == nil {
			continue
		}

		for _, item := range items.Items {
			if hasCustomData(item) {
				return true
			}
		}
	}

	return false
}

func hasCustomData(item nbt.Value) bool {
	data, ok := item.(nbt.Compound)
	if !ok {
		return false
	}

	components := data.GetCompound("components")
	if components == nil {
		return false
	}

	_, found := components["minecraft:custom_data"]

	return found
}

// fixEntity applies the per-entity repairs and recurses into passengers.
// EntitiesFixed is bumped once when any repair touched this entity.
func fixEntity(entity nbt.Value, chunkX, chunkZ int32, usedUUIDs map[string]struct{}) Stats {
	var stats Stats

	data, ok := entity.(nbt.Compound)
	if !ok {
		return stats
	}

	entityModified := false

	for _, field := range []string{"equipment", "ArmorItems", "HandItems"} {
		items, found := data[field]
		if !found {
			continue
		}

		fixed := fixItemsEnchantments(items)
		stats.EnchantmentsFixed += fixed
		if fixed > 0 {
			entityModified = true
		}
	}

	if item, found := data["Item"]; found {
		fixed := fixItemEnchantments(item)
		stats.EnchantmentsFixed += fixed
		if fixed > 0 {
			entityModified = true
		}
	}

	if regenerated := fixEntityUUID(data, usedUUIDs); regenerated > 0 {
		stats.UUIDsRegenerated += regenerated
		entityModified = true
	}

	if pos := data.GetList("Pos"); pos != nil {
		if fixed := fixEntityPosition(pos, chunkX, chunkZ); fixed > 0 {
			stats.PositionsFixed += fixed
			entityModified = true
		}
	}

	if passengers := data.GetList("Passengers"); passengers != nil {
		for _, passenger := range passengers.Items {
			passengerStats := fixEntity(passenger, chunkX, chunkZ, usedUUIDs)
			if passengerStats.touchedEntities() {
				entityModified = true
			}

			stats.Merge(passengerStats)
		}
	}

	if entityModified {
		stats.EntitiesFixed++
	}

	return stats
}

// fixItemsEnchantments handles both equipment shapes: a compound of named
// slots and a plain list of items.
func fixItemsEnchantments(items nbt.Value) int {
	fixed := 0

	switch v := items.(type) {
	case nbt.Compound:
		for _, slot := range equipmentSlots {
			if item, found := v[slot]; found {
				fixed += fixItemEnchantments(item)
			}
		}
	case *nbt.List:
		for _, item := range v.Items {
			fixed += fixItemEnchantments(item)
		}
	}

	return fixed
}

// fixItemEnchantments repairs the three enchantment layouts an item can
// carry: the component compound (new "levels" sub-compound or the old flat
// map), enchantment lists hidden inside minecraft:custom_data, and the
// legacy item-level "Enchantments" list.
func fixItemEnchantments(item nbt.Value) int {
	data, ok := item.(nbt.Compound)
	if !ok {
		return 0
	}

	fixed := 0

	if components := data.GetCompound("components"); components != nil {
		if enchants := components.GetCompound("minecraft:enchantments"); enchants != nil {
			if levels := enchants.GetCompound("levels"); levels != nil {
				fixed += fixEnchantmentLevels(levels)
			} else {
				fixed += fixEnchantmentLevels(enchants)
			}
		}

		if customData := components.GetCompound("minecraft:custom_data"); customData != nil {
			if _, found := customData[protocolLeftoverKey]; found {
				delete(customData, protocolLeftoverKey)
				fixed++
			}

			fixed += fixEnchantmentList(customData.GetList("Enchantments"))
		}
	}

	fixed += fixEnchantmentList(data.GetList("Enchantments"))

	return fixed
}

// fixEnchantmentLevels bumps zero levels to one in an enchantment map,
// preserving each entry's numeric width.
func fixEnchantmentLevels(enchantMap nbt.Compound) int {
	fixed := 0

	for name, level := range enchantMap {
		switch v := level.(type) {
		case nbt.Int:
			if v == 0 {
				enchantMap[name] = nbt.Int(1)
				fixed++
			}
		case nbt.Short:
			if v == 0 {
				enchantMap[name] = nbt.Short(1)
				fixed++
			}
		case nbt.Byte:
			if v == 0 {
				enchantMap[name] = nbt.Byte(1)
				fixed++
			}
		}
	}

	return fixed
}

// fixEnchantmentList bumps "lvl" Short 0 to 1 in a list of enchantment
// compounds. A nil list is fine.
func fixEnchantmentList(enchantments *nbt.List) int {
	if enchantments == nil {
		return 0
	}

	fixed := 0

	for _, enchant := range enchantments.Items {
		data, ok := enchant.(nbt.Compound)
		if !ok {
			continue
		}

		if lvl, found := data["lvl"].(nbt.Short); found && lvl == 0 {
			data["lvl"] = nbt.Short(1)
			fixed++
		}
	}

	return fixed
}
