package index

import (
	"iter"
	"slices"

	"github.com/google/btree"
	"github.com/hatlonely/rse/rangeset"
	"github.com/hatlonely/rse/schema"
	"github.com/hatlonely/rse/tuple"
	"github.com/hatlonely/rse/tuple/transform"
	"github.com/pkg/errors"
)

type BTreeIndexOptions struct {
	// Degree B 树的度
	Degree int `cfg:"degree" def:"32" validate:"min=2"`
	// FillFactor 大于 0 时按比例缩小度，用于模拟索引页的填充率
	FillFactor float64 `cfg:"fillFactor" validate:"gte=0,lte=1"`
}

type entry struct {
	key  Entire
	item tuple.Tuple
}

// BTreeIndex 基于 google/btree 的有序唯一索引，非并发安全，由调用方加锁
type BTreeIndex struct {
	descriptor *tuple.Descriptor
	comparer   *KeyComparer
	keyMap     *transform.SegmentTransform
	tree       *btree.BTreeG[entry]
	degree     int
	readOnly   bool
}

// NewBTreeIndexWithOptions 按索引结构创建，键为 UniqueKeyCount 列
// fill factor 取索引定义与 options 中较具体的一个
func NewBTreeIndexWithOptions(info *schema.IndexInfo, options *BTreeIndexOptions) (*BTreeIndex, error) {
	if options == nil {
		options = &BTreeIndexOptions{}
	}
	opts := *options
	if info.FillFactor() > 0 {
		opts.FillFactor = info.FillFactor()
	}
	return NewBTreeIndex(info.Descriptor(), info.UniqueKeyCount(), info.UniqueKeyDirections(), &opts)
}

func NewBTreeIndex(descriptor *tuple.Descriptor, keyCount int, directions []rangeset.Direction, options *BTreeIndexOptions) (*BTreeIndex, error) {
	keyMap, err := transform.NewSegmentTransform(true, descriptor, 0, keyCount)
	if err != nil {
		return nil, errors.WithMessage(err, "transform.NewSegmentTransform failed")
	}
	degree := 32
	if options != nil {
		if options.Degree >= 2 {
			degree = options.Degree
		}
		if options.FillFactor > 0 && options.FillFactor < 1 {
			degree = max(2, int(float64(degree)*options.FillFactor))
		}
	}
	comparer := NewKeyComparer(keyMap.Descriptor(), directions)
	return &BTreeIndex{
		descriptor: descriptor,
		comparer:   comparer,
		keyMap:     keyMap,
		tree:       btree.NewG(degree, lessFunc(comparer)),
		degree:     degree,
	}, nil
}

func lessFunc(comparer *KeyComparer) btree.LessFunc[entry] {
	return func(a, b entry) bool {
		return comparer.Compare(a.key, b.key) < 0
	}
}

func keyEntry(key Entire) entry {
	return entry{key: key}
}

// bound 把端点移到所有与它相等的键的 shift 一侧，树中的键都不带偏移，移动后不会与任何键相等
// 前缀键与多个键相等，btree 只在严格全序下才能定位到第一个相等的键
func bound(key Entire, shift rangeset.Direction) entry {
	if key.IsInfinity() || key.Shift != rangeset.None {
		return keyEntry(key)
	}
	return keyEntry(NewShiftedEntire(key.Value, shift))
}

func (b *BTreeIndex) Descriptor() *tuple.Descriptor { return b.descriptor }
func (b *BTreeIndex) KeyComparer() *KeyComparer     { return b.comparer }
func (b *BTreeIndex) Degree() int                   { return b.degree }
func (b *BTreeIndex) Count() int                    { return b.tree.Len() }

func (b *BTreeIndex) KeyOf(t tuple.Tuple) (tuple.Tuple, error) {
	if !t.Descriptor().Equal(b.descriptor) {
		return nil, errors.Wrapf(ErrShapeMismatch, "expected %s, got %s", b.descriptor, t.Descriptor())
	}
	return b.keyMap.Apply(transform.View, t)
}

func (b *BTreeIndex) Seek(ray Ray) SeekResult {
	var found entry
	var ok bool
	visit := func(e entry) bool {
		found, ok = e, true
		return false
	}
	if ray.Direction == rangeset.Negative {
		b.tree.DescendLessOrEqual(bound(ray.Point, rangeset.Positive), visit)
	} else {
		b.tree.AscendGreaterOrEqual(bound(ray.Point, rangeset.Negative), visit)
	}
	if !ok {
		return SeekResult{Type: None}
	}
	if b.comparer.Compare(found.key, ray.Point) == 0 {
		return SeekResult{Type: Exact, Result: found.item}
	}
	return SeekResult{Type: Nearest, Result: found.item}
}

func (b *BTreeIndex) Get(key tuple.Tuple) (tuple.Tuple, bool) {
	e, ok := b.tree.Get(keyEntry(NewEntire(key)))
	if !ok {
		return nil, false
	}
	return e.item, true
}

func (b *BTreeIndex) Contains(key tuple.Tuple) bool {
	return b.tree.Has(keyEntry(NewEntire(key)))
}

func (b *BTreeIndex) Add(t tuple.Tuple) error {
	if b.readOnly {
		return tuple.ErrReadOnly
	}
	item := tuple.ToFastReadOnly(t)
	key, err := b.KeyOf(item)
	if err != nil {
		return err
	}
	e := entry{key: NewEntire(key), item: item}
	if b.tree.Has(e) {
		return errors.Wrapf(ErrDuplicateKey, "key %s", tuple.Format(key))
	}
	b.tree.ReplaceOrInsert(e)
	return nil
}

func (b *BTreeIndex) Remove(t tuple.Tuple) error {
	if b.readOnly {
		return tuple.ErrReadOnly
	}
	key, err := b.KeyOf(t)
	if err != nil {
		return err
	}
	if _, ok := b.tree.Delete(keyEntry(NewEntire(key))); !ok {
		return errors.Wrapf(ErrKeyNotFound, "key %s", tuple.Format(key))
	}
	return nil
}

func (b *BTreeIndex) Clear() {
	if b.readOnly {
		return
	}
	b.tree.Clear(false)
}

func (b *BTreeIndex) All(direction rangeset.Direction) iter.Seq[tuple.Tuple] {
	return func(yield func(tuple.Tuple) bool) {
		visit := func(e entry) bool {
			return yield(e.item)
		}
		if direction == rangeset.Negative {
			b.tree.Descend(visit)
		} else {
			b.tree.Ascend(visit)
		}
	}
}

func (b *BTreeIndex) Range(r rangeset.Range[Entire], direction rangeset.Direction) iter.Seq[tuple.Tuple] {
	return func(yield func(tuple.Tuple) bool) {
		if r.IsEmpty() {
			return
		}
		first, second := r.EndPoints(b.comparer)
		lo, hi := first, second
		if b.comparer.Compare(lo, hi) > 0 {
			lo, hi = hi, lo
		}
		if direction == rangeset.Negative {
			b.tree.DescendLessOrEqual(bound(hi, rangeset.Positive), func(e entry) bool {
				if b.comparer.Compare(e.key, lo) < 0 {
					return false
				}
				return yield(e.item)
			})
			return
		}
		b.tree.AscendGreaterOrEqual(bound(lo, rangeset.Negative), func(e entry) bool {
			if b.comparer.Compare(e.key, hi) > 0 {
				return false
			}
			return yield(e.item)
		})
	}
}

// RangeSet 依次扫描集合中的区间，区间两两不相交，结果整体有序
func (b *BTreeIndex) RangeSet(set *rangeset.RangeSet[Entire], direction rangeset.Direction) iter.Seq[tuple.Tuple] {
	return func(yield func(tuple.Tuple) bool) {
		ranges := set.Ranges()
		if direction == rangeset.Negative {
			slices.Reverse(ranges)
		}
		for _, r := range ranges {
			for t := range b.Range(r, direction) {
				if !yield(t) {
					return
				}
			}
		}
	}
}

// Snapshot 基于 btree 写时复制的克隆，需要在持有写锁时调用
func (b *BTreeIndex) Snapshot() OrderedIndex {
	return &BTreeIndex{
		descriptor: b.descriptor,
		comparer:   b.comparer,
		keyMap:     b.keyMap,
		tree:       b.tree.Clone(),
		degree:     b.degree,
		readOnly:   true,
	}
}
