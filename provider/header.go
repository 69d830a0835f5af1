package provider

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hatlonely/rse/rangeset"
	"github.com/hatlonely/rse/schema"
	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
)

// OrderItem 按第 Index 列以 Direction 方向排序
type OrderItem struct {
	Index     int
	Direction rangeset.Direction
}

func (o OrderItem) String() string {
	if o.Direction == rangeset.Negative {
		return fmt.Sprintf("-%d", o.Index)
	}
	return fmt.Sprintf("+%d", o.Index)
}

// Ordering 行的物理顺序，空表示无序
type Ordering []OrderItem

// Asc 按列升序
func Asc(columns ...int) Ordering {
	o := make(Ordering, len(columns))
	for i, c := range columns {
		o[i] = OrderItem{Index: c, Direction: rangeset.Positive}
	}
	return o
}

func (o Ordering) HasPrefix(prefix Ordering) bool {
	return len(prefix) <= len(o) && slices.Equal(o[:len(prefix)], prefix)
}

func (o Ordering) Equal(other Ordering) bool {
	return slices.Equal(o, other)
}

// Groups 前 len(columns) 项恰好是 columns 中的列时，相同取值的行必然相邻
func (o Ordering) Groups(columns []int) bool {
	if len(columns) > len(o) {
		return false
	}
	for _, item := range o[:len(columns)] {
		if !slices.Contains(columns, item.Index) {
			return false
		}
	}
	return true
}

func (o Ordering) Columns() []int {
	columns := make([]int, len(o))
	for i, item := range o {
		columns[i] = item.Index
	}
	return columns
}

func (o Ordering) Directions() []rangeset.Direction {
	directions := make([]rangeset.Direction, len(o))
	for i, item := range o {
		directions[i] = item.Direction
	}
	return directions
}

func (o Ordering) String() string {
	items := make([]string, len(o))
	for i, item := range o {
		items[i] = item.String()
	}
	return strings.Join(items, ", ")
}

type Column struct {
	Name string
	Type tuple.FieldType
}

// Header 描述 provider 输出行的列、形状和顺序
type Header struct {
	columns    []Column
	descriptor *tuple.Descriptor
	order      Ordering
}

func NewHeader(columns []Column, order Ordering) (*Header, error) {
	types := make([]tuple.FieldType, len(columns))
	for i, c := range columns {
		types[i] = c.Type
	}
	descriptor, err := tuple.NewDescriptor(types...)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidProvider, err.Error())
	}
	for _, item := range order {
		if item.Index < 0 || item.Index >= len(columns) {
			return nil, errors.Wrapf(ErrInvalidProvider, "order column %d out of range", item.Index)
		}
	}
	return &Header{columns: columns, descriptor: descriptor, order: order}, nil
}

// HeaderFromIndex 索引行的列布局，顺序为物理索引键
func HeaderFromIndex(info *schema.IndexInfo) *Header {
	columns := make([]Column, 0, len(info.Columns()))
	for _, c := range info.Columns() {
		columns = append(columns, Column{Name: c.Name(), Type: c.FieldType()})
	}
	order := make(Ordering, 0, info.UniqueKeyCount())
	for i, d := range info.UniqueKeyDirections() {
		order = append(order, OrderItem{Index: i, Direction: d})
	}
	return &Header{columns: columns, descriptor: info.Descriptor(), order: order}
}

func (h *Header) Columns() []Column             { return slices.Clone(h.columns) }
func (h *Header) Column(i int) Column           { return h.columns[i] }
func (h *Header) Count() int                    { return len(h.columns) }
func (h *Header) Descriptor() *tuple.Descriptor { return h.descriptor }
func (h *Header) Order() Ordering               { return slices.Clone(h.order) }

// ColumnIndex 按名字查找列，不存在时返回 -1
func (h *Header) ColumnIndex(name string) int {
	return slices.IndexFunc(h.columns, func(c Column) bool { return c.Name == name })
}

func (h *Header) checkColumn(i int) error {
	if i < 0 || i >= len(h.columns) {
		return errors.Wrapf(ErrInvalidProvider, "column %d out of range [0, %d)", i, len(h.columns))
	}
	return nil
}

func (h *Header) WithOrder(order Ordering) (*Header, error) {
	return NewHeader(h.columns, order)
}

// Select 投影后的列，原顺序中连续保留下来的前缀成为新的顺序
func (h *Header) Select(columns []int) (*Header, error) {
	selected := make([]Column, len(columns))
	for i, c := range columns {
		if err := h.checkColumn(c); err != nil {
			return nil, err
		}
		selected[i] = h.columns[c]
	}
	var order Ordering
	for _, item := range h.order {
		position := slices.Index(columns, item.Index)
		if position < 0 {
			break
		}
		order = append(order, OrderItem{Index: position, Direction: item.Direction})
	}
	return NewHeader(selected, order)
}

// Concat 拼接两个 header 的列，保留左侧的顺序
func (h *Header) Concat(other *Header) *Header {
	columns := append(slices.Clone(h.columns), other.columns...)
	return &Header{
		columns:    columns,
		descriptor: tuple.Concat(h.descriptor, other.descriptor),
		order:      slices.Clone(h.order),
	}
}

func (h *Header) String() string {
	names := make([]string, len(h.columns))
	for i, c := range h.columns {
		names[i] = c.Name + " " + c.Type.String()
	}
	if len(h.order) == 0 {
		return "[" + strings.Join(names, ", ") + "]"
	}
	return "[" + strings.Join(names, ", ") + "] order by " + h.order.String()
}
