package nbt

import (
	"fmt"
	"math"
	"sort"
)

// Serialize encodes a value tree as one named root tag with an empty name.
//
// Compound entries are written in sorted key order, which makes output
// deterministic but not necessarily byte-identical to the parsed input.
func Serialize(v Value) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("nbt: nil root value")
	}

	w := &writer{buf: make([]byte, 0, 1024)}
	w.writeTag(v.Tag())
	w.writeString("")

	if err := w.writePayload(v); err != nil {
		return nil, err
	}

	return w.buf, nil
}

type writer struct {
	buf []byte
}

func (w *writer) writeTag(tag Tag) {
	w.buf = append(w.buf, byte(tag))
}

func (w *writer) writeString(s string) {
	w.buf = engine.AppendUint16(w.buf, uint16(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) writePayload(v Value) error {
	switch val := v.(type) {
	case Byte:
		w.buf = append(w.buf, byte(val))

	case Short:
		w.buf = engine.AppendUint16(w.buf, uint16(val))

	case Int:
		w.buf = engine.AppendUint32(w.buf, uint32(val))

	case Long:
		w.buf = engine.AppendUint64(w.buf, uint64(val))

	case Float:
		w.buf = engine.AppendUint32(w.buf, math.Float32bits(float32(val)))

	case Double:
		w.buf = engine.AppendUint64(w.buf, math.Float64bits(float64(val)))

	case ByteArray:
		w.buf = engine.AppendUint32(w.buf, uint32(len(val)))
		w.buf = append(w.buf, val...)

	case String:
		w.writeString(string(val))

	case *List:
		return w.writeList(val)

	case Compound:
		return w.writeCompound(val)

	case IntArray:
		w.buf = engine.AppendUint32(w.buf, uint32(len(val)))
		for _, n := range val {
			w.buf = engine.AppendUint32(w.buf, uint32(n))
		}

	case LongArray:
		w.buf = engine.AppendUint32(w.buf, uint32(len(val)))
		for _, n := range val {
			w.buf = engine.AppendUint64(w.buf, uint64(n))
		}

	default:
		return fmt.Errorf("nbt: unsupported value type %T", v)
	}

	return nil
}

func (w *writer) writeList(list *List) error {
	elemTag := list.ElemTag
	if len(list.Items) > 0 {
		elemTag = list.Items[0].Tag()
	}

	w.writeTag(elemTag)
	w.buf = engine.AppendUint32(w.buf, uint32(len(list.Items)))

	for _, item := range list.Items {
		if item.Tag() != elemTag {
			return fmt.Errorf("nbt: list element tag %d does not match element type %d", item.Tag(), elemTag)
		}

		if err := w.writePayload(item); err != nil {
			return err
		}
	}

	return nil
}

func (w *writer) writeCompound(compound Compound) error {
	keys := make([]string, 0, len(compound))
	for key := range compound {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := compound[key]
		if value == nil {
			continue
		}

		w.writeTag(value.Tag())
		w.writeString(key)

		if err := w.writePayload(value); err != nil {
			return err
		}
	}

	w.writeTag(TagEnd)

	return nil
}
