package nbt

import (
	"fmt"
	"math"

	"github.com/arloliu/regionfile/endian"
)

var engine = endian.GetBigEndianEngine()

// Parse decodes a tagged-value payload. The payload must be one named root
// tag; the root's name is discarded and its value returned.
func Parse(data []byte) (Value, error) {
	r := &reader{data: data}

	rootTag, err := r.readTag()
	if err != nil {
		return nil, err
	}
	if rootTag == TagEnd {
		return nil, fmt.Errorf("nbt: empty root tag")
	}

	if _, err := r.readString(); err != nil {
		return nil, err
	}

	value, err := r.readPayload(rootTag, 0)
	if err != nil {
		return nil, err
	}

	return value, nil
}

// maxDepth bounds recursion while parsing untrusted payloads. Chunk trees
// are shallow in practice (< 20 levels).
const maxDepth = 512

type reader struct {
	data []byte
	pos  int
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.data) {
		return fmt.Errorf("nbt: unexpected end of data at offset %d", r.pos)
	}

	return nil
}

func (r *reader) readTag() (Tag, error) {
	if err := r.need(1); err != nil {
		return TagEnd, err
	}

	tag := Tag(r.data[r.pos])
	r.pos++

	return tag, nil
}

func (r *reader) readUint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}

	v := engine.Uint16(r.data[r.pos:])
	r.pos += 2

	return v, nil
}

func (r *reader) readUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}

	v := engine.Uint32(r.data[r.pos:])
	r.pos += 4

	return v, nil
}

func (r *reader) readUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}

	v := engine.Uint64(r.data[r.pos:])
	r.pos += 8

	return v, nil
}

func (r *reader) readString() (string, error) {
	length, err := r.readUint16()
	if err != nil {
		return "", err
	}

	if err := r.need(int(length)); err != nil {
		return "", err
	}

	s := string(r.data[r.pos : r.pos+int(length)])
	r.pos += int(length)

	return s, nil
}

func (r *reader) readCount() (int, error) {
	v, err := r.readUint32()
	if err != nil {
		return 0, err
	}

	count := int(int32(v))
	if count < 0 {
		return 0, fmt.Errorf("nbt: negative length %d at offset %d", count, r.pos)
	}

	return count, nil
}

func (r *reader) readPayload(tag Tag, depth int) (Value, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("nbt: nesting deeper than %d levels", maxDepth)
	}

	switch tag {
	case TagByte:
		if err := r.need(1); err != nil {
			return nil, err
		}
		v := Byte(r.data[r.pos])
		r.pos++

		return v, nil

	case TagShort:
		v, err := r.readUint16()
		if err != nil {
			return nil, err
		}

		return Short(v), nil

	case TagInt:
		v, err := r.readUint32()
		if err != nil {
			return nil, err
		}

		return Int(v), nil

	case TagLong:
		v, err := r.readUint64()
		if err != nil {
			return nil, err
		}

		return Long(v), nil

	case TagFloat:
		v, err := r.readUint32()
		if err != nil {
			return nil, err
		}

		return Float(math.Float32frombits(v)), nil

	case TagDouble:
		v, err := r.readUint64()
		if err != nil {
			return nil, err
		}

		return Double(math.Float64frombits(v)), nil

	case TagByteArray:
		count, err := r.readCount()
		if err != nil {
			return nil, err
		}
		if err := r.need(count); err != nil {
			return nil, err
		}

		arr := make(ByteArray, count)
		copy(arr, r.data[r.pos:r.pos+count])
		r.pos += count

		return arr, nil

	case TagString:
		s, err := r.readString()
		if err != nil {
			return nil, err
		}

		return String(s), nil

	case TagList:
		return r.readList(depth)

	case TagCompound:
		return r.readCompound(depth)

	case TagIntArray:
		count, err := r.readCount()
		if err != nil {
			return nil, err
		}
		if err := r.need(count * 4); err != nil {
			return nil, err
		}

		arr := make(IntArray, count)
		for i := range arr {
			arr[i] = int32(engine.Uint32(r.data[r.pos:]))
			r.pos += 4
		}

		return arr, nil

	case TagLongArray:
		count, err := r.readCount()
		if err != nil {
			return nil, err
		}
		if err := r.need(count * 8); err != nil {
			return nil, err
		}

		arr := make(LongArray, count)
		for i := range arr {
			arr[i] = int64(engine.Uint64(r.data[r.pos:]))
			r.pos += 8
		}

		return arr, nil

	default:
		return nil, fmt.Errorf("nbt: unknown tag %d at offset %d", tag, r.pos)
	}
}

func (r *reader) readList(depth int) (*List, error) {
	elemTag, err := r.readTag()
	if err != nil {
		return nil, err
	}

	count, err := r.readCount()
	if err != nil {
		return nil, err
	}

	if elemTag == TagEnd && count > 0 {
		return nil, fmt.Errorf("nbt: list of end tags with %d elements", count)
	}

	list := &List{ElemTag: elemTag, Items: make([]Value, 0, count)}
	for i := 0; i < count; i++ {
		item, err := r.readPayload(elemTag, depth+1)
		if err != nil {
			return nil, err
		}

		list.Items = append(list.Items, item)
	}

	return list, nil
}

func (r *reader) readCompound(depth int) (Compound, error) {
	compound := make(Compound)

	for {
		tag, err := r.readTag()
		if err != nil {
			return nil, err
		}
		if tag == TagEnd {
			return compound, nil
		}

		name, err := r.readString()
		if err != nil {
			return nil, err
		}

		value, err := r.readPayload(tag, depth+1)
		if err != nil {
			return nil, err
		}

		compound[name] = value
	}
}
