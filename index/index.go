package index

import (
	"iter"

	"github.com/hatlonely/rse/rangeset"
	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
)

var (
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrKeyNotFound   = errors.New("key not found")
	ErrShapeMismatch = errors.New("tuple shape does not match index")
)

// SeekResultType 查找结果类型
type SeekResultType uint8

const (
	// None 沿方向没有任何元组
	None SeekResultType = iota
	// Exact 找到键完全相同的元组
	Exact
	// Nearest 没有相同的键，返回沿方向最近的元组
	Nearest
)

func (t SeekResultType) String() string {
	switch t {
	case Exact:
		return "Exact"
	case Nearest:
		return "Nearest"
	}
	return "None"
}

type SeekResult struct {
	Type   SeekResultType
	Result tuple.Tuple
}

// OrderedIndex 键唯一的有序索引
type OrderedIndex interface {
	Descriptor() *tuple.Descriptor
	KeyComparer() *KeyComparer
	// KeyOf 返回元组的键，键为只读视图
	KeyOf(t tuple.Tuple) (tuple.Tuple, error)

	Seek(ray Ray) SeekResult
	Get(key tuple.Tuple) (tuple.Tuple, bool)
	Contains(key tuple.Tuple) bool

	// Add 添加元组，键已存在时返回 ErrDuplicateKey
	Add(t tuple.Tuple) error
	// Remove 按元组的键删除，键不存在时返回 ErrKeyNotFound
	Remove(t tuple.Tuple) error
	Clear()
	Count() int

	All(direction rangeset.Direction) iter.Seq[tuple.Tuple]
	Range(r rangeset.Range[Entire], direction rangeset.Direction) iter.Seq[tuple.Tuple]
	RangeSet(set *rangeset.RangeSet[Entire], direction rangeset.Direction) iter.Seq[tuple.Tuple]

	// Snapshot 当前内容的只读快照，之后对索引的修改对快照不可见
	Snapshot() OrderedIndex
}
