package storage

import (
	"context"

	"github.com/hatlonely/rse/index"
	"github.com/hatlonely/rse/schema"
	"github.com/hatlonely/rse/tuple"
	"github.com/hatlonely/rse/tuple/transform"
	"github.com/pkg/errors"
)

// IndexStorageView 在一个事务中访问 IndexStorage
type IndexStorageView struct {
	storage     *IndexStorage
	transaction *Transaction
}

func (v *IndexStorageView) Storage() *IndexStorage     { return v.storage }
func (v *IndexStorageView) Transaction() *Transaction  { return v.transaction }
func (v *IndexStorageView) Model() *schema.StorageInfo { return v.storage.Model() }

func (v *IndexStorageView) CreateNewSchema(model *schema.StorageInfo) error {
	return v.storage.CreateNewSchema(model)
}

func (v *IndexStorageView) ClearSchema() {
	v.storage.ClearSchema()
}

// Execute 执行一条命令，失败时不修改任何索引
func (v *IndexStorageView) Execute(ctx context.Context, command Command) (CommandResult, error) {
	if !v.transaction.IsActive() {
		return CommandResult{}, ErrTransactionNotActive
	}
	v.storage.mu.Lock()
	defer v.storage.mu.Unlock()
	return v.storage.apply(ctx, command)
}

// ExecuteBatch 持有锁依次执行命令，遇到失败立即返回，之前的命令保持生效
// 返回已成功执行的命令的结果，key 为命令在 commands 中的下标
func (v *IndexStorageView) ExecuteBatch(ctx context.Context, commands []Command) (map[int]CommandResult, error) {
	if !v.transaction.IsActive() {
		return nil, ErrTransactionNotActive
	}
	v.storage.observer.observeBatch(len(commands))

	v.storage.mu.Lock()
	defer v.storage.mu.Unlock()
	results := make(map[int]CommandResult, len(commands))
	for i, command := range commands {
		if err := ctx.Err(); err != nil {
			return results, errors.Wrapf(err, "batch interrupted before command %d", i)
		}
		result, err := v.storage.apply(ctx, command)
		if err != nil {
			return results, errors.WithMessagef(err, "command %d (%s)", i, command)
		}
		results[i] = result
	}
	return results, nil
}

// GetIndex 返回索引本身，只能在没有并发写入时直接读取，并发场景使用 Snapshot
func (v *IndexStorageView) GetIndex(info *schema.IndexInfo) (index.OrderedIndex, error) {
	v.storage.mu.Lock()
	defer v.storage.mu.Unlock()
	p, err := v.storage.physical(info)
	if err != nil {
		return nil, err
	}
	return p.index, nil
}

// Snapshot 返回索引当前内容的只读快照
func (v *IndexStorageView) Snapshot(info *schema.IndexInfo) (index.OrderedIndex, error) {
	v.storage.mu.Lock()
	defer v.storage.mu.Unlock()
	p, err := v.storage.physical(info)
	if err != nil {
		return nil, err
	}
	return p.index.Snapshot(), nil
}

// Find 按主键查找行
func (v *IndexStorageView) Find(ctx context.Context, key Key) (tuple.Tuple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.storage.mu.Lock()
	defer v.storage.mu.Unlock()
	t, err := v.storage.table(key.Table())
	if err != nil {
		return nil, err
	}
	return t.find(key.Value())
}

// Count 返回表的行数
func (v *IndexStorageView) Count(tableName string) (int, error) {
	v.storage.mu.Lock()
	defer v.storage.mu.Unlock()
	t, err := v.storage.table(tableName)
	if err != nil {
		return 0, err
	}
	return t.primary.index.Count(), nil
}

func (s *IndexStorage) table(name string) (*table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidOperation, "%s: %q", schema.ErrTableNotFound, name)
	}
	return t, nil
}

// apply 需要持有锁
func (s *IndexStorage) apply(ctx context.Context, command Command) (CommandResult, error) {
	var result CommandResult
	err := s.observer.observe(ctx, command, func(ctx context.Context) error {
		var err error
		result, err = s.execute(command)
		return err
	})
	return result, err
}

func (s *IndexStorage) execute(command Command) (CommandResult, error) {
	if command.Type != Update {
		return CommandResult{}, errors.Wrapf(ErrInvalidOperation, "unsupported command type %s", command.Type)
	}
	t, err := s.table(command.TableName)
	if err != nil {
		return CommandResult{}, err
	}

	var key tuple.Tuple
	switch command.Operation() {
	case "insert":
		key, err = t.insert(command.Value)
	case "update":
		key, err = t.update(command.Key, command.Value)
	default:
		key, err = t.remove(command.Key)
	}
	if err != nil {
		return CommandResult{}, err
	}
	return CommandResult{Status: CommandStatusOK, Key: key}, nil
}

// checkRow 行的形状与表一致，所有字段已加载，主键不为 Null，不可空的列不为 Null
func (t *table) checkRow(row tuple.Tuple) error {
	if !row.Descriptor().Equal(t.info.Descriptor()) {
		return errors.Wrapf(ErrConstraintViolation, "table %s expects %s, got %s", t.info.Name(), t.info.Descriptor(), row.Descriptor())
	}
	for _, c := range t.info.Columns() {
		state, err := row.GetFieldState(c.Position())
		if err != nil {
			return err
		}
		switch {
		case state == tuple.NotAvailable:
			return errors.Wrapf(ErrConstraintViolation, "column %s.%s is not available", t.info.Name(), c.Name())
		case state == tuple.Null && !c.Nullable():
			return errors.Wrapf(ErrConstraintViolation, "column %s.%s is not nullable", t.info.Name(), c.Name())
		}
	}
	return nil
}

func (t *table) checkKey(key tuple.Tuple) error {
	if key == nil {
		return errors.Wrapf(ErrInvalidOperation, "key of table %s is nil", t.info.Name())
	}
	expected := t.primary.info.KeyDescriptor()
	if !key.Descriptor().Equal(expected) {
		return errors.Wrapf(ErrInvalidOperation, "key of table %s expects %s, got %s", t.info.Name(), expected, key.Descriptor())
	}
	return nil
}

// find 按完整主键精确查找
func (t *table) find(key tuple.Tuple) (tuple.Tuple, error) {
	if err := t.checkKey(key); err != nil {
		return nil, err
	}
	result := t.primary.index.Seek(index.NewRay(key))
	if result.Type != index.Exact {
		return nil, errors.Wrapf(ErrKeyNotFound, "table %s key %s", t.info.Name(), tuple.Format(key))
	}
	return result.Result, nil
}

func (t *table) insert(value tuple.Tuple) (tuple.Tuple, error) {
	if value == nil {
		return nil, errors.Wrapf(ErrInvalidOperation, "insert into %s without value", t.info.Name())
	}
	if err := t.checkRow(value); err != nil {
		return nil, err
	}
	row := tuple.ToFastReadOnly(value)
	key, err := t.primary.index.KeyOf(row)
	if err != nil {
		return nil, err
	}
	if t.primary.index.Contains(key) {
		return nil, errors.Wrapf(ErrDuplicateKey, "table %s key %s", t.info.Name(), tuple.Format(key))
	}
	if err := t.add(row); err != nil {
		return nil, err
	}
	return key, nil
}

// update 用 value 中已加载的字段覆盖旧行，主键改变且与已有行冲突时拒绝
func (t *table) update(key tuple.Tuple, value tuple.Tuple) (tuple.Tuple, error) {
	old, err := t.find(key)
	if err != nil {
		return nil, err
	}
	if !value.Descriptor().Equal(t.info.Descriptor()) {
		return nil, errors.Wrapf(ErrConstraintViolation, "table %s expects %s, got %s", t.info.Name(), t.info.Descriptor(), value.Descriptor())
	}

	merged := tuple.Clone(old)
	if err := tuple.MergeWith(merged, value, tuple.PreferDifference); err != nil {
		return nil, errors.Wrapf(ErrConstraintViolation, "merge into %s: %s", t.info.Name(), err)
	}
	if err := t.checkRow(merged); err != nil {
		return nil, err
	}
	row := tuple.ToFastReadOnly(merged)
	newKey, err := t.primary.index.KeyOf(row)
	if err != nil {
		return nil, err
	}
	if !tuple.Equal(newKey, key) && t.primary.index.Contains(newKey) {
		return nil, errors.Wrapf(ErrDuplicateKey, "table %s key %s", t.info.Name(), tuple.Format(newKey))
	}

	if err := t.delete(old); err != nil {
		return nil, err
	}
	if err := t.add(row); err != nil {
		return nil, err
	}
	return newKey, nil
}

func (t *table) remove(key tuple.Tuple) (tuple.Tuple, error) {
	old, err := t.find(key)
	if err != nil {
		return nil, err
	}
	if err := t.delete(old); err != nil {
		return nil, err
	}
	return key, nil
}

func (p *physicalIndex) project(row tuple.Tuple) (tuple.Tuple, error) {
	if p.info.IsPrimary() {
		return row, nil
	}
	return p.projection.Apply(transform.View, row)
}

// add 把行的投影加入表的每个索引
func (t *table) add(row tuple.Tuple) error {
	for _, p := range t.indexes {
		projected, err := p.project(row)
		if err != nil {
			return err
		}
		if err := p.index.Add(projected); err != nil {
			return errors.WithMessagef(err, "add to index %s", p.info.Name())
		}
	}
	return nil
}

func (t *table) delete(row tuple.Tuple) error {
	for _, p := range t.indexes {
		projected, err := p.project(row)
		if err != nil {
			return err
		}
		if err := p.index.Remove(projected); err != nil {
			return errors.WithMessagef(err, "remove from index %s", p.info.Name())
		}
	}
	return nil
}
