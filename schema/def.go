package schema

import "github.com/hatlonely/rse/tuple"

// StorageDef 存储结构定义，可以直接从配置文件加载
type StorageDef struct {
	Tables []TableDef `cfg:"tables" validate:"required,min=1,dive"`
}

type TableDef struct {
	Name       string         `cfg:"name" validate:"required"`
	Columns    []ColumnDef    `cfg:"columns" validate:"required,min=1,dive"`
	PrimaryKey []KeyColumnDef `cfg:"primaryKey" validate:"required,min=1,dive"`
	Indexes    []IndexDef     `cfg:"indexes" validate:"dive"`
	// FillFactor 索引页填充率，0 表示使用存储默认值
	FillFactor float64 `cfg:"fillFactor" validate:"gte=0,lte=1"`
}

type ColumnDef struct {
	Name     string          `cfg:"name" validate:"required"`
	Type     tuple.FieldType `cfg:"type" validate:"required"`
	Nullable bool            `cfg:"nullable"`
}

type KeyColumnDef struct {
	Column     string `cfg:"column" validate:"required"`
	Descending bool   `cfg:"descending"`
}

type IndexDef struct {
	Name    string         `cfg:"name" validate:"required"`
	Columns []KeyColumnDef `cfg:"columns" validate:"required,min=1,dive"`
	// Include 额外存放在索引中的非键列
	Include []string `cfg:"include"`
	// Virtual 虚拟索引不单独存储，扫描时由主索引推导
	Virtual    bool    `cfg:"virtual"`
	FillFactor float64 `cfg:"fillFactor" validate:"gte=0,lte=1"`
}
