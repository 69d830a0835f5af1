package schema

import (
	"github.com/hatlonely/rse/cfg/validator"
	"github.com/hatlonely/rse/rangeset"
	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
)

// Build 校验定义并构建不可变的存储模型
// 主索引布局：主键列，然后按定义顺序排列其余列
// 二级索引布局：键列，未出现在键中的主键列，包含列
func Build(def *StorageDef) (*StorageInfo, error) {
	if def == nil {
		return nil, errors.Wrap(ErrInvalidSchema, "definition is nil")
	}
	if err := validator.ValidateStruct(def); err != nil {
		return nil, errors.Wrap(ErrInvalidSchema, err.Error())
	}

	storage := &StorageInfo{
		byTable: map[string]*TableInfo{},
		byIndex: map[string]*IndexInfo{},
	}
	for i := range def.Tables {
		table, err := buildTable(&def.Tables[i])
		if err != nil {
			return nil, errors.WithMessagef(err, "table %q", def.Tables[i].Name)
		}
		if _, ok := storage.byTable[table.name]; ok {
			return nil, errors.Wrapf(ErrInvalidSchema, "duplicate table %q", table.name)
		}
		for _, index := range table.Indexes() {
			if _, ok := storage.byIndex[index.name]; ok {
				return nil, errors.Wrapf(ErrInvalidSchema, "duplicate index %q", index.name)
			}
			storage.byIndex[index.name] = index
		}
		storage.tables = append(storage.tables, table)
		storage.byTable[table.name] = table
	}
	return storage, nil
}

// MustBuild 与 Build 相同，出错时 panic
func MustBuild(def *StorageDef) *StorageInfo {
	storage, err := Build(def)
	if err != nil {
		panic(err)
	}
	return storage
}

func buildTable(def *TableDef) (*TableInfo, error) {
	defs := map[string]*ColumnDef{}
	for i := range def.Columns {
		c := &def.Columns[i]
		if _, ok := defs[c.Name]; ok {
			return nil, errors.Wrapf(ErrInvalidSchema, "duplicate column %q", c.Name)
		}
		if !c.Type.IsValid() {
			return nil, errors.Wrapf(ErrInvalidSchema, "column %q has invalid type", c.Name)
		}
		defs[c.Name] = c
	}

	table := &TableInfo{name: def.Name, byName: map[string]*ColumnInfo{}}
	addColumn := func(c *ColumnDef) {
		info := &ColumnInfo{name: c.Name, fieldType: c.Type, nullable: c.Nullable, position: len(table.columns)}
		table.columns = append(table.columns, info)
		table.byName[c.Name] = info
	}

	pkNames := map[string]bool{}
	for _, k := range def.PrimaryKey {
		c, ok := defs[k.Column]
		if !ok {
			return nil, errors.Wrapf(ErrInvalidSchema, "primary key refers to unknown column %q", k.Column)
		}
		if pkNames[k.Column] {
			return nil, errors.Wrapf(ErrInvalidSchema, "primary key repeats column %q", k.Column)
		}
		if c.Nullable {
			return nil, errors.Wrapf(ErrInvalidSchema, "primary key column %q is nullable", k.Column)
		}
		pkNames[k.Column] = true
		addColumn(c)
	}
	for i := range def.Columns {
		if !pkNames[def.Columns[i].Name] {
			addColumn(&def.Columns[i])
		}
	}

	primary := &IndexInfo{
		name:       "PK_" + def.Name,
		table:      table,
		kind:       Primary,
		fillFactor: def.FillFactor,
	}
	for _, k := range def.PrimaryKey {
		primary.keyColumns = append(primary.keyColumns, KeyColumn{Column: table.byName[k.Column], Direction: direction(k.Descending)})
	}
	primary.valueColumns = table.columns[len(def.PrimaryKey):]
	if err := primary.lock(); err != nil {
		return nil, err
	}
	table.primary = primary

	names := map[string]bool{primary.name: true}
	for i := range def.Indexes {
		index, err := buildIndex(table, &def.Indexes[i], def.FillFactor)
		if err != nil {
			return nil, errors.WithMessagef(err, "index %q", def.Indexes[i].Name)
		}
		if names[index.name] {
			return nil, errors.Wrapf(ErrInvalidSchema, "duplicate index %q", index.name)
		}
		names[index.name] = true
		table.secondaries = append(table.secondaries, index)
	}
	return table, nil
}

func buildIndex(table *TableInfo, def *IndexDef, tableFillFactor float64) (*IndexInfo, error) {
	index := &IndexInfo{
		name:       def.Name,
		table:      table,
		kind:       Secondary,
		fillFactor: def.FillFactor,
	}
	if def.Virtual {
		index.kind = Virtual
	}
	if index.fillFactor == 0 {
		index.fillFactor = tableFillFactor
	}

	used := map[string]bool{}
	for _, k := range def.Columns {
		c, err := table.Column(k.Column)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidSchema, err.Error())
		}
		if used[c.name] {
			return nil, errors.Wrapf(ErrInvalidSchema, "key repeats column %q", c.name)
		}
		used[c.name] = true
		index.keyColumns = append(index.keyColumns, KeyColumn{Column: c, Direction: direction(k.Descending)})
	}
	// 回指主键，保证索引键唯一
	for _, k := range table.primary.keyColumns {
		if !used[k.Column.name] {
			used[k.Column.name] = true
			index.valueColumns = append(index.valueColumns, k.Column)
		}
	}
	index.uniqueCount = len(index.keyColumns) + len(index.valueColumns)
	for _, name := range def.Include {
		c, err := table.Column(name)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidSchema, err.Error())
		}
		index.included = append(index.included, c)
		if !used[name] {
			used[name] = true
			index.valueColumns = append(index.valueColumns, c)
		}
	}
	if err := index.lock(); err != nil {
		return nil, err
	}
	return index, nil
}

// lock 生成列布局和 Descriptor，之后索引结构不再变化
func (i *IndexInfo) lock() error {
	i.columns = make([]*ColumnInfo, 0, len(i.keyColumns)+len(i.valueColumns))
	for _, k := range i.keyColumns {
		i.columns = append(i.columns, k.Column)
	}
	i.columns = append(i.columns, i.valueColumns...)
	if i.uniqueCount == 0 {
		i.uniqueCount = len(i.keyColumns)
	}

	types := make([]tuple.FieldType, len(i.columns))
	i.columnMap = make([]int, len(i.columns))
	for n, c := range i.columns {
		types[n] = c.fieldType
		i.columnMap[n] = c.position
	}
	descriptor, err := tuple.NewDescriptor(types...)
	if err != nil {
		return errors.Wrap(ErrInvalidSchema, err.Error())
	}
	keyDescriptor, err := descriptor.Segment(0, len(i.keyColumns))
	if err != nil {
		return errors.Wrap(ErrInvalidSchema, err.Error())
	}
	i.descriptor = descriptor
	i.keyDescriptor = keyDescriptor
	return nil
}

func direction(descending bool) rangeset.Direction {
	if descending {
		return rangeset.Negative
	}
	return rangeset.Positive
}
