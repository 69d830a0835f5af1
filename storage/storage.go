package storage

import (
	"sync"

	"github.com/hatlonely/rse/index"
	"github.com/hatlonely/rse/log"
	"github.com/hatlonely/rse/log/logger"
	"github.com/hatlonely/rse/ref"
	"github.com/hatlonely/rse/schema"
	"github.com/hatlonely/rse/tuple/transform"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type IndexStorageOptions struct {
	// Name 用于指标名前缀、日志和 span 的 component
	Name  string                  `cfg:"name" def:"rse_storage"`
	Index index.BTreeIndexOptions `cfg:"index"`

	Logger        *ref.TypeOptions `cfg:"logger"`
	EnableLogging bool             `cfg:"enableLogging" def:"true"`
	EnableMetrics bool             `cfg:"enableMetrics" def:"false"`
	EnableTracing bool             `cfg:"enableTracing" def:"false"`

	// Registerer 指标注册位置，为空时注册到 prometheus 默认 registry
	Registerer prometheus.Registerer `cfg:"-"`
}

// physicalIndex 一个物理索引和把主索引行投影为该索引行的变换
type physicalIndex struct {
	info       *schema.IndexInfo
	index      index.OrderedIndex
	projection *transform.MapTransform
}

type table struct {
	info    *schema.TableInfo
	primary *physicalIndex
	// indexes 包括主索引，主索引在最后，删除时先删二级索引
	indexes []*physicalIndex
}

// IndexStorage 持有一个 schema 下所有表的物理索引
// 所有读写都在同一把互斥锁下进行，读取方通过 Snapshot 获得不受后续写入影响的快照
type IndexStorage struct {
	mu sync.Mutex

	options  IndexStorageOptions
	model    *schema.StorageInfo
	tables   map[string]*table
	indexes  map[string]*physicalIndex
	logger   logger.Logger
	observer *observer
}

func NewIndexStorageWithOptions(model *schema.StorageInfo, options *IndexStorageOptions) (*IndexStorage, error) {
	opts := IndexStorageOptions{EnableLogging: true}
	if options != nil {
		opts = *options
	}
	if opts.Name == "" {
		opts.Name = "rse_storage"
	}

	l, err := log.NewLoggerWithOptions(opts.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "log.NewLoggerWithOptions failed")
	}

	s := &IndexStorage{
		options:  opts,
		logger:   l.WithGroup("indexStorage"),
		observer: &observer{name: opts.Name},
	}
	if opts.EnableLogging {
		s.observer.logger = s.logger
	}
	if opts.EnableMetrics {
		if s.observer.metrics, err = NewMetrics(opts.Name, opts.Registerer); err != nil {
			return nil, err
		}
	}
	if opts.EnableTracing {
		s.observer.tracer = newTracer(opts.Name)
	}

	if err := s.CreateNewSchema(model); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateNewSchema 丢弃所有数据，按新的 schema 重建索引
func (s *IndexStorage) CreateNewSchema(model *schema.StorageInfo) error {
	if model == nil {
		return errors.Wrap(schema.ErrInvalidSchema, "storage model is nil")
	}

	tables := map[string]*table{}
	indexes := map[string]*physicalIndex{}
	for _, tableInfo := range model.Tables() {
		t := &table{info: tableInfo}
		for _, indexInfo := range tableInfo.SecondaryIndexes() {
			if indexInfo.IsVirtual() {
				continue
			}
			p, err := s.newPhysicalIndex(indexInfo)
			if err != nil {
				return err
			}
			t.indexes = append(t.indexes, p)
			indexes[indexInfo.Name()] = p
		}
		primary, err := s.newPhysicalIndex(tableInfo.PrimaryIndex())
		if err != nil {
			return err
		}
		t.primary = primary
		t.indexes = append(t.indexes, primary)
		indexes[primary.info.Name()] = primary
		tables[tableInfo.Name()] = t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
	s.tables = tables
	s.indexes = indexes
	s.logger.Info("schema created", "tables", len(tables), "indexes", len(indexes))
	return nil
}

func (s *IndexStorage) newPhysicalIndex(info *schema.IndexInfo) (*physicalIndex, error) {
	idx, err := index.NewBTreeIndexWithOptions(info, &s.options.Index)
	if err != nil {
		return nil, errors.WithMessagef(err, "create index %s failed", info.Name())
	}
	projection, err := transform.NewSingleMapTransform(true, info.Table().Descriptor(), info.ColumnMap())
	if err != nil {
		return nil, errors.WithMessagef(err, "create projection for index %s failed", info.Name())
	}
	return &physicalIndex{info: info, index: idx, projection: projection}, nil
}

// ClearSchema 清空所有索引中的数据，保留 schema
func (s *IndexStorage) ClearSchema() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.indexes {
		p.index.Clear()
	}
}

func (s *IndexStorage) Model() *schema.StorageInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

func (s *IndexStorage) Metrics() *Metrics {
	return s.observer.metrics
}

// CreateView 创建一个带新事务的视图
func (s *IndexStorage) CreateView(isolation IsolationLevel) *IndexStorageView {
	return &IndexStorageView{storage: s, transaction: NewTransaction(isolation)}
}

func (s *IndexStorage) physical(info *schema.IndexInfo) (*physicalIndex, error) {
	if info == nil {
		return nil, errors.Wrap(schema.ErrIndexNotFound, "index info is nil")
	}
	p, ok := s.indexes[info.Name()]
	if !ok || p.info != info {
		if info.IsVirtual() {
			return nil, errors.Wrapf(ErrInvalidOperation, "index %s is virtual", info.Name())
		}
		return nil, errors.Wrapf(schema.ErrIndexNotFound, "index %s", info.Name())
	}
	return p, nil
}
