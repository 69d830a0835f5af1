package transform

import (
	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
)

// CombineTransform 把多个源元组首尾拼接成一个元组
type CombineTransform struct {
	*MapTransform
	sources []*tuple.Descriptor
}

func NewCombineTransform(readOnly bool, sources ...*tuple.Descriptor) (*CombineTransform, error) {
	if len(sources) == 0 {
		return nil, errors.Wrap(ErrInvalidMap, "combine requires at least one source")
	}
	var entries []MapEntry
	for s, d := range sources {
		for f := 0; f < d.Count(); f++ {
			entries = append(entries, MapEntry{Source: s, Field: f})
		}
	}
	m, err := NewMapTransform(readOnly, tuple.Concat(sources...), entries)
	if err != nil {
		return nil, err
	}
	// 末尾的源可能没有字段，源数量以参数为准
	m.sourceCount = len(sources)
	return &CombineTransform{MapTransform: m, sources: sources}, nil
}

// SourceDescriptors 各源元组的 Descriptor
func (c *CombineTransform) SourceDescriptors() []*tuple.Descriptor {
	return append([]*tuple.Descriptor(nil), c.sources...)
}

// SegmentTransform 截取单个源元组 [offset, offset+length) 的连续字段
type SegmentTransform struct {
	*MapTransform
	offset int
	length int
}

func NewSegmentTransform(readOnly bool, source *tuple.Descriptor, offset, length int) (*SegmentTransform, error) {
	if offset < 0 || length < 0 || offset+length > source.Count() {
		return nil, errors.Wrapf(tuple.ErrIndexOutOfRange, "segment [%d, %d) of %s", offset, offset+length, source)
	}
	fieldMap := make([]int, length)
	for i := range fieldMap {
		fieldMap[i] = offset + i
	}
	m, err := NewSingleMapTransform(readOnly, source, fieldMap)
	if err != nil {
		return nil, err
	}
	m.sourceCount = 1
	return &SegmentTransform{MapTransform: m, offset: offset, length: length}, nil
}

func (s *SegmentTransform) Offset() int { return s.offset }
func (s *SegmentTransform) Length() int { return s.length }
