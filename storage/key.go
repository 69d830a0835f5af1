package storage

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/hatlonely/rse/tuple"
	"github.com/hatlonely/rse/tuple/codec"
)

// Key 行标识：表名加只读主键元组，创建后不可变
type Key struct {
	table string
	value tuple.Tuple
	hash  uint64
}

func NewKey(table string, value tuple.Tuple) Key {
	value = tuple.ToFastReadOnly(value)

	d := xxhash.New()
	_, _ = d.WriteString(table)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], codec.Hash(value))
	_, _ = d.Write(buf[:])

	return Key{table: table, value: value, hash: d.Sum64()}
}

func (k Key) Table() string      { return k.table }
func (k Key) Value() tuple.Tuple { return k.value }
func (k Key) Hash() uint64       { return k.hash }

func (k Key) IsZero() bool {
	return k.value == nil
}

func (k Key) Equal(other Key) bool {
	if k.hash != other.hash || k.table != other.table {
		return false
	}
	if k.value == nil || other.value == nil {
		return k.value == other.value
	}
	return tuple.Equal(k.value, other.value)
}

func (k Key) String() string {
	if k.value == nil {
		return k.table + "()"
	}
	return k.table + tuple.Format(k.value)
}
