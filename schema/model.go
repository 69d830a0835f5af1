package schema

import (
	"fmt"
	"slices"

	"github.com/hatlonely/rse/rangeset"
	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
)

var (
	ErrInvalidSchema  = errors.New("invalid schema")
	ErrTableNotFound  = errors.New("table not found")
	ErrIndexNotFound  = errors.New("index not found")
	ErrColumnNotFound = errors.New("column not found")
)

// IndexKind 索引类别
type IndexKind uint8

const (
	Primary IndexKind = iota + 1
	Secondary
	Virtual
)

func (k IndexKind) String() string {
	switch k {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	case Virtual:
		return "virtual"
	}
	return fmt.Sprintf("IndexKind(%d)", uint8(k))
}

// StorageInfo 构建完成后不可变的存储模型
type StorageInfo struct {
	tables  []*TableInfo
	byTable map[string]*TableInfo
	byIndex map[string]*IndexInfo
}

func (s *StorageInfo) Tables() []*TableInfo {
	return slices.Clone(s.tables)
}

func (s *StorageInfo) Table(name string) (*TableInfo, error) {
	if t, ok := s.byTable[name]; ok {
		return t, nil
	}
	return nil, errors.Wrapf(ErrTableNotFound, "table %q", name)
}

func (s *StorageInfo) Index(name string) (*IndexInfo, error) {
	if i, ok := s.byIndex[name]; ok {
		return i, nil
	}
	return nil, errors.Wrapf(ErrIndexNotFound, "index %q", name)
}

// TableInfo 表结构，列按主索引布局排列
type TableInfo struct {
	name        string
	columns     []*ColumnInfo
	byName      map[string]*ColumnInfo
	primary     *IndexInfo
	secondaries []*IndexInfo
}

func (t *TableInfo) Name() string                  { return t.name }
func (t *TableInfo) Columns() []*ColumnInfo        { return slices.Clone(t.columns) }
func (t *TableInfo) PrimaryIndex() *IndexInfo      { return t.primary }
func (t *TableInfo) Descriptor() *tuple.Descriptor { return t.primary.descriptor }

// SecondaryIndexes 二级索引，包括虚拟索引
func (t *TableInfo) SecondaryIndexes() []*IndexInfo {
	return slices.Clone(t.secondaries)
}

// Indexes 主索引在前
func (t *TableInfo) Indexes() []*IndexInfo {
	return append([]*IndexInfo{t.primary}, t.secondaries...)
}

func (t *TableInfo) Column(name string) (*ColumnInfo, error) {
	if c, ok := t.byName[name]; ok {
		return c, nil
	}
	return nil, errors.Wrapf(ErrColumnNotFound, "column %q of table %q", name, t.name)
}

func (t *TableInfo) String() string {
	return t.name
}

// ColumnInfo 列信息，Position 为列在主索引元组中的位置
type ColumnInfo struct {
	name      string
	fieldType tuple.FieldType
	nullable  bool
	position  int
}

func (c *ColumnInfo) Name() string               { return c.name }
func (c *ColumnInfo) FieldType() tuple.FieldType { return c.fieldType }
func (c *ColumnInfo) Nullable() bool             { return c.nullable }
func (c *ColumnInfo) Position() int              { return c.position }

func (c *ColumnInfo) String() string {
	return fmt.Sprintf("%s %s", c.name, c.fieldType)
}

// KeyColumn 索引键列及其排序方向
type KeyColumn struct {
	Column    *ColumnInfo
	Direction rangeset.Direction
}

// IndexInfo 索引结构
// 元组布局：键列在前，值列在后；二级索引的值列为未出现在键中的主键列和包含列
type IndexInfo struct {
	name          string
	table         *TableInfo
	kind          IndexKind
	keyColumns    []KeyColumn
	valueColumns  []*ColumnInfo
	included      []*ColumnInfo
	columns       []*ColumnInfo
	fillFactor    float64
	uniqueCount   int
	descriptor    *tuple.Descriptor
	keyDescriptor *tuple.Descriptor
	columnMap     []int
}

func (i *IndexInfo) Name() string      { return i.name }
func (i *IndexInfo) Table() *TableInfo { return i.table }
func (i *IndexInfo) Kind() IndexKind   { return i.kind }
func (i *IndexInfo) IsPrimary() bool   { return i.kind == Primary }
func (i *IndexInfo) IsSecondary() bool { return i.kind != Primary }
func (i *IndexInfo) IsVirtual() bool   { return i.kind == Virtual }

func (i *IndexInfo) FillFactor() float64 {
	return i.fillFactor
}

func (i *IndexInfo) KeyColumns() []KeyColumn        { return slices.Clone(i.keyColumns) }
func (i *IndexInfo) ValueColumns() []*ColumnInfo    { return slices.Clone(i.valueColumns) }
func (i *IndexInfo) IncludedColumns() []*ColumnInfo { return slices.Clone(i.included) }
func (i *IndexInfo) Columns() []*ColumnInfo         { return slices.Clone(i.columns) }
func (i *IndexInfo) KeyCount() int                  { return len(i.keyColumns) }

// UniqueKeyCount 物理索引的键长度，二级索引为键列加上回指的主键列
func (i *IndexInfo) UniqueKeyCount() int { return i.uniqueCount }

// UniqueKeyDirections 物理索引键各列的方向，回指的主键列为升序
func (i *IndexInfo) UniqueKeyDirections() []rangeset.Direction {
	directions := i.KeyDirections()
	for len(directions) < i.uniqueCount {
		directions = append(directions, rangeset.Positive)
	}
	return directions
}

// Descriptor 索引元组的形状
func (i *IndexInfo) Descriptor() *tuple.Descriptor { return i.descriptor }

// KeyDescriptor 键元组的形状
func (i *IndexInfo) KeyDescriptor() *tuple.Descriptor { return i.keyDescriptor }

// ColumnMap 索引元组第 n 个字段在主索引元组中的位置
func (i *IndexInfo) ColumnMap() []int { return slices.Clone(i.columnMap) }

func (i *IndexInfo) KeyDirections() []rangeset.Direction {
	directions := make([]rangeset.Direction, len(i.keyColumns))
	for n, k := range i.keyColumns {
		directions[n] = k.Direction
	}
	return directions
}

// ColumnIndex 列在索引元组中的位置，不存在时返回 -1
func (i *IndexInfo) ColumnIndex(name string) int {
	for n, c := range i.columns {
		if c.name == name {
			return n
		}
	}
	return -1
}

func (i *IndexInfo) String() string {
	return fmt.Sprintf("%s(%s.%s)", i.kind, i.table.name, i.name)
}
