package storage

import (
	"bytes"
	"context"
	"math/rand"
	"slices"
	"testing"

	"github.com/hatlonely/rse/log/logger"
	"github.com/hatlonely/rse/rangeset"
	"github.com/hatlonely/rse/schema"
	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersModel() *schema.StorageInfo {
	return schema.MustBuild(&schema.StorageDef{
		Tables: []schema.TableDef{
			{
				Name: "users",
				Columns: []schema.ColumnDef{
					{Name: "id", Type: tuple.TypeInt64},
					{Name: "name", Type: tuple.TypeString},
					{Name: "age", Type: tuple.TypeInt64, Nullable: true},
					{Name: "city", Type: tuple.TypeString, Nullable: true},
				},
				PrimaryKey: []schema.KeyColumnDef{{Column: "id"}},
				Indexes: []schema.IndexDef{
					{Name: "IX_users_name", Columns: []schema.KeyColumnDef{{Column: "name"}}},
					{
						Name:    "IX_users_city",
						Columns: []schema.KeyColumnDef{{Column: "city"}, {Column: "age", Descending: true}},
						Include: []string{"name"},
					},
					{Name: "VX_users_age", Columns: []schema.KeyColumnDef{{Column: "age"}}, Virtual: true},
				},
			},
		},
	})
}

var (
	userDesc = tuple.MustNewDescriptor(tuple.TypeInt64, tuple.TypeString, tuple.TypeInt64, tuple.TypeString)
	idDesc   = tuple.MustNewDescriptor(tuple.TypeInt64)
)

func user(id int64, name string, age any, city any) tuple.Tuple {
	return tuple.MustFromValues(userDesc, id, name, age, city)
}

func id(v int64) tuple.Tuple {
	return tuple.MustFromValues(idDesc, v)
}

func newStorage(t *testing.T) *IndexStorage {
	s, err := NewIndexStorageWithOptions(usersModel(), &IndexStorageOptions{
		Name:          "test_storage",
		EnableMetrics: true,
		EnableTracing: true,
		Registerer:    prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	return s
}

func formatAll(rows func(func(tuple.Tuple) bool)) []string {
	var result []string
	for r := range rows {
		result = append(result, tuple.Format(r))
	}
	return result
}

// assertConsistent 每个二级索引的内容等于主索引每一行的投影
func assertConsistent(t *testing.T, view *IndexStorageView) {
	t.Helper()
	table, err := view.Model().Table("users")
	require.NoError(t, err)
	primary, err := view.Snapshot(table.PrimaryIndex())
	require.NoError(t, err)

	for _, info := range table.SecondaryIndexes() {
		if info.IsVirtual() {
			continue
		}
		snapshot, err := view.Snapshot(info)
		require.NoError(t, err)

		var expected []string
		for row := range primary.All(rangeset.Positive) {
			values := tuple.Values(row)
			projected := make([]any, 0, len(info.ColumnMap()))
			for _, position := range info.ColumnMap() {
				projected = append(projected, values[position])
			}
			expected = append(expected, tuple.Format(tuple.MustFromValues(info.Descriptor(), projected...)))
		}
		actual := formatAll(snapshot.All(rangeset.Positive))
		slices.Sort(expected)
		slices.Sort(actual)
		assert.Equal(t, expected, actual, "index %s", info.Name())
	}
}

func TestIndexStorageView(t *testing.T) {
	Convey("测试 IndexStorageView", t, func() {
		s := newStorage(t)
		view := s.CreateView(ReadCommitted)
		ctx := context.Background()

		results, err := view.ExecuteBatch(ctx, []Command{
			NewInsertCommand("users", user(1, "alice", 30, "beijing")),
			NewInsertCommand("users", user(2, "bob", nil, "shanghai")),
			NewInsertCommand("users", user(3, "carol", 25, "beijing")),
		})
		So(err, ShouldBeNil)
		So(results, ShouldHaveLength, 3)
		So(results[1].OK(), ShouldBeTrue)
		So(tuple.Equal(results[1].Key, id(2)), ShouldBeTrue)

		table, _ := s.Model().Table("users")
		byCity, _ := s.Model().Index("IX_users_city")

		Convey("插入后二级索引有序", func() {
			snapshot, err := view.Snapshot(byCity)
			So(err, ShouldBeNil)
			So(formatAll(snapshot.All(rangeset.Positive)), ShouldResemble, []string{
				"(beijing, 30, 1, alice)",
				"(beijing, 25, 3, carol)",
				"(shanghai, <null>, 2, bob)",
			})
			assertConsistent(t, view)
		})

		Convey("更新合并已加载字段", func() {
			patch := tuple.New(userDesc)
			So(patch.SetValue(3, "shanghai"), ShouldBeNil)
			result, err := view.Execute(ctx, NewUpdateCommand("users", id(1), patch))
			So(err, ShouldBeNil)
			So(result.Status, ShouldEqual, CommandStatusOK)

			row, err := view.Find(ctx, NewKey("users", id(1)))
			So(err, ShouldBeNil)
			So(tuple.Format(row), ShouldEqual, "(1, alice, 30, shanghai)")
			assertConsistent(t, view)
		})

		Convey("更新主键", func() {
			patch := tuple.New(userDesc)
			So(patch.SetValue(0, int64(10)), ShouldBeNil)
			result, err := view.Execute(ctx, NewUpdateCommand("users", id(1), patch))
			So(err, ShouldBeNil)
			So(tuple.Equal(result.Key, id(10)), ShouldBeTrue)

			_, err = view.Find(ctx, NewKey("users", id(1)))
			So(errors.Is(err, ErrKeyNotFound), ShouldBeTrue)
			assertConsistent(t, view)

			Convey("与已有主键冲突时拒绝", func() {
				patch := tuple.New(userDesc)
				So(patch.SetValue(0, int64(2)), ShouldBeNil)
				_, err := view.Execute(ctx, NewUpdateCommand("users", id(10), patch))
				So(errors.Is(err, ErrDuplicateKey), ShouldBeTrue)
				So(errors.Is(err, ErrInvalidOperation), ShouldBeTrue)

				row, err := view.Find(ctx, NewKey("users", id(10)))
				So(err, ShouldBeNil)
				So(tuple.Format(row), ShouldEqual, "(10, alice, 30, beijing)")
				assertConsistent(t, view)
			})
		})

		Convey("删除", func() {
			_, err := view.Execute(ctx, NewRemoveCommand("users", id(3)))
			So(err, ShouldBeNil)
			count, err := view.Count("users")
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 2)
			assertConsistent(t, view)
		})

		Convey("更新不存在的键失败且不修改索引", func() {
			before := map[string][]string{}
			for _, info := range table.Indexes() {
				if snapshot, err := view.Snapshot(info); err == nil {
					before[info.Name()] = formatAll(snapshot.All(rangeset.Positive))
				}
			}

			_, err := view.Execute(ctx, NewUpdateCommand("users", id(99), user(99, "nobody", 1, nil)))
			So(errors.Is(err, ErrKeyNotFound), ShouldBeTrue)
			So(errors.Is(err, ErrInvalidOperation), ShouldBeTrue)
			_, err = view.Execute(ctx, NewRemoveCommand("users", id(99)))
			So(errors.Is(err, ErrKeyNotFound), ShouldBeTrue)

			for name, rows := range before {
				info, _ := s.Model().Index(name)
				snapshot, _ := view.Snapshot(info)
				So(formatAll(snapshot.All(rangeset.Positive)), ShouldResemble, rows)
			}
		})

		Convey("非法命令", func() {
			_, err := view.Execute(ctx, NewInsertCommand("users", user(1, "again", nil, nil)))
			So(errors.Is(err, ErrDuplicateKey), ShouldBeTrue)

			_, err = view.Execute(ctx, NewInsertCommand("nothing", user(5, "x", nil, nil)))
			So(errors.Is(err, ErrInvalidOperation), ShouldBeTrue)

			_, err = view.Execute(ctx, Command{TableName: "users", Value: user(5, "x", nil, nil)})
			So(errors.Is(err, ErrInvalidOperation), ShouldBeTrue)

			_, err = view.Execute(ctx, NewInsertCommand("users", nil))
			So(errors.Is(err, ErrInvalidOperation), ShouldBeTrue)

			partial := tuple.New(userDesc)
			So(partial.SetValue(0, int64(5)), ShouldBeNil)
			_, err = view.Execute(ctx, NewInsertCommand("users", partial))
			So(errors.Is(err, ErrConstraintViolation), ShouldBeTrue)

			_, err = view.Execute(ctx, NewInsertCommand("users", tuple.MustFromValues(userDesc, int64(5), nil, nil, nil)))
			So(errors.Is(err, ErrConstraintViolation), ShouldBeTrue)

			_, err = view.Execute(ctx, NewRemoveCommand("users", tuple.MustFromValues(tuple.MustNewDescriptor(tuple.TypeString), "1")))
			So(errors.Is(err, ErrInvalidOperation), ShouldBeTrue)
		})

		Convey("批量中途失败时之前的命令保留", func() {
			results, err := view.ExecuteBatch(ctx, []Command{
				NewInsertCommand("users", user(4, "dave", 40, nil)),
				NewRemoveCommand("users", id(42)),
				NewInsertCommand("users", user(5, "erin", 41, nil)),
			})
			So(errors.Is(err, ErrKeyNotFound), ShouldBeTrue)
			So(results, ShouldHaveLength, 1)
			count, _ := view.Count("users")
			So(count, ShouldEqual, 4)
		})

		Convey("虚拟索引没有物理存储", func() {
			virtual, _ := s.Model().Index("VX_users_age")
			_, err := view.Snapshot(virtual)
			So(errors.Is(err, ErrInvalidOperation), ShouldBeTrue)
		})

		Convey("快照不受后续写入影响", func() {
			snapshot, err := view.Snapshot(table.PrimaryIndex())
			So(err, ShouldBeNil)
			_, err = view.Execute(ctx, NewInsertCommand("users", user(7, "grace", nil, nil)))
			So(err, ShouldBeNil)
			So(snapshot.Count(), ShouldEqual, 3)
			live, _ := view.GetIndex(table.PrimaryIndex())
			So(live.Count(), ShouldEqual, 4)
		})

		Convey("清空与重建", func() {
			view.ClearSchema()
			count, _ := view.Count("users")
			So(count, ShouldEqual, 0)

			So(view.CreateNewSchema(usersModel()), ShouldBeNil)
			_, err := view.Snapshot(table.PrimaryIndex())
			So(errors.Is(err, schema.ErrIndexNotFound), ShouldBeTrue)
			So(view.CreateNewSchema(nil), ShouldNotBeNil)
		})

		Convey("指标", func() {
			m := s.Metrics()
			So(testutil.ToFloat64(m.commandCounter.WithLabelValues("users", "insert", "success")), ShouldEqual, float64(3))
			_, _ = view.Execute(ctx, NewRemoveCommand("users", id(42)))
			So(testutil.ToFloat64(m.commandCounter.WithLabelValues("users", "remove", "error")), ShouldEqual, float64(1))
		})

		Convey("事务结束后不能执行", func() {
			So(view.Transaction().Commit(), ShouldBeNil)
			So(view.Transaction().Rollback(), ShouldEqual, ErrTransactionNotActive)
			_, err := view.Execute(ctx, NewRemoveCommand("users", id(1)))
			So(err, ShouldEqual, ErrTransactionNotActive)
		})
	})
}

func TestRandomCommandsKeepIndexesConsistent(t *testing.T) {
	s := newStorage(t)
	view := s.CreateView(Serializable)
	ctx := context.Background()
	r := rand.New(rand.NewSource(7))
	cities := []any{nil, "beijing", "shanghai", "shenzhen"}

	for i := 0; i < 500; i++ {
		k := int64(r.Intn(40))
		var command Command
		switch r.Intn(3) {
		case 0:
			command = NewInsertCommand("users", user(k, string(rune('a'+r.Intn(26))), int64(r.Intn(5)), cities[r.Intn(len(cities))]))
		case 1:
			patch := tuple.New(userDesc)
			require.NoError(t, patch.SetValue(2, int64(r.Intn(5))))
			require.NoError(t, patch.SetValue(3, cities[r.Intn(len(cities))]))
			command = NewUpdateCommand("users", id(k), patch)
		default:
			command = NewRemoveCommand("users", id(k))
		}
		// 键冲突或不存在的命令会失败，但不能破坏索引一致性
		_, _ = view.Execute(ctx, command)
	}
	assertConsistent(t, view)
}

func TestSecondaryKeyMayRepeat(t *testing.T) {
	s := newStorage(t)
	view := s.CreateView(ReadCommitted)
	ctx := context.Background()
	_, err := view.ExecuteBatch(ctx, []Command{
		NewInsertCommand("users", user(1, "alice", 30, "beijing")),
		NewInsertCommand("users", user(2, "alice", 30, "beijing")),
	})
	require.NoError(t, err)

	byCity, err := s.Model().Index("IX_users_city")
	require.NoError(t, err)
	snapshot, err := view.Snapshot(byCity)
	require.NoError(t, err)
	assert.Equal(t, []string{"(beijing, 30, 1, alice)", "(beijing, 30, 2, alice)"}, formatAll(snapshot.All(rangeset.Positive)))

	_, err = view.Execute(ctx, NewRemoveCommand("users", id(1)))
	require.NoError(t, err)
	assertConsistent(t, view)
}

func TestStorageLogging(t *testing.T) {
	var buf bytes.Buffer
	s := newStorage(t)
	s.observer.logger = newBufferLogger(t, &buf)

	view := s.CreateView(ReadCommitted)
	_, err := view.Execute(context.Background(), NewRemoveCommand("users", id(1)))
	require.Error(t, err)
	assert.Contains(t, buf.String(), "command rejected")
	assert.Contains(t, buf.String(), "operation=remove")
}

func TestNewIndexStorageKeepsCallerOptions(t *testing.T) {
	options := &IndexStorageOptions{}
	s1, err := NewIndexStorageWithOptions(usersModel(), options)
	require.NoError(t, err)
	s2, err := NewIndexStorageWithOptions(usersModel(), options)
	require.NoError(t, err)

	assert.Equal(t, "", options.Name)
	assert.Equal(t, "rse_storage", s1.options.Name)
	assert.Equal(t, "rse_storage", s2.observer.name)

	_, err = s1.CreateView(ReadCommitted).Execute(context.Background(), NewInsertCommand("users", user(1, "alice", 30, "beijing")))
	require.NoError(t, err)

	s3, err := NewIndexStorageWithOptions(usersModel(), nil)
	require.NoError(t, err)
	assert.True(t, s3.options.EnableLogging)
	assert.NotNil(t, s3.observer.logger)
}

func newBufferLogger(t *testing.T, buf *bytes.Buffer) logger.Logger {
	l, err := logger.NewSLogWithWriter(buf, &logger.SLogOptions{Level: "debug"})
	require.NoError(t, err)
	return l
}

func TestKey(t *testing.T) {
	k1 := NewKey("users", id(1))
	k2 := NewKey("users", tuple.MustFromValues(idDesc, 1))
	k3 := NewKey("orders", id(1))

	assert.True(t, k1.Equal(k2))
	assert.Equal(t, k1.Hash(), k2.Hash())
	assert.False(t, k1.Equal(k3))
	assert.Equal(t, "users(1)", k1.String())
	assert.True(t, tuple.IsReadOnly(k1.Value()))
	assert.True(t, Key{}.IsZero())
}

func TestTransaction(t *testing.T) {
	tx := NewTransaction(Snapshot)
	assert.Equal(t, Snapshot, tx.IsolationLevel())
	assert.Equal(t, TransactionActive, tx.State())
	assert.NotEqual(t, tx.ID(), NewTransaction(Snapshot).ID())

	require.NoError(t, tx.Rollback())
	assert.Equal(t, TransactionRolledBack, tx.State())
	assert.ErrorIs(t, tx.Commit(), ErrTransactionNotActive)
}
