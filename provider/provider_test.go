package provider

import (
	"testing"

	"github.com/hatlonely/rse/index"
	"github.com/hatlonely/rse/rangeset"
	"github.com/hatlonely/rse/schema"
	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
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
					{
						Name:    "IX_users_city",
						Columns: []schema.KeyColumnDef{{Column: "city"}, {Column: "age", Descending: true}},
					},
				},
			},
		},
	})
}

func mustIndex(t *testing.T, name string) *schema.IndexInfo {
	info, err := usersModel().Index(name)
	require.NoError(t, err)
	return info
}

func salesHeader(t *testing.T) *Header {
	h, err := NewHeader([]Column{
		{Name: "region", Type: tuple.TypeString},
		{Name: "amount", Type: tuple.TypeInt64},
		{Name: "price", Type: tuple.TypeDecimal},
	}, Asc(0))
	require.NoError(t, err)
	return h
}

func TestHeader(t *testing.T) {
	Convey("测试 Header", t, func() {
		Convey("索引 header 的顺序为索引键", func() {
			h := HeaderFromIndex(mustIndex(t, "IX_users_city"))
			So(h.Count(), ShouldEqual, 3)
			So(h.Column(0).Name, ShouldEqual, "city")
			So(h.Column(2).Name, ShouldEqual, "id")
			So(h.Order().String(), ShouldEqual, "+0, -1, +2")
			So(h.ColumnIndex("age"), ShouldEqual, 1)
			So(h.ColumnIndex("unknown"), ShouldEqual, -1)
		})

		Convey("投影保留连续的顺序前缀", func() {
			h := HeaderFromIndex(mustIndex(t, "IX_users_city"))
			selected, err := h.Select([]int{2, 0})
			So(err, ShouldBeNil)
			So(selected.Order().String(), ShouldEqual, "+1")
			So(selected.Descriptor().Equal(tuple.MustNewDescriptor(tuple.TypeInt64, tuple.TypeString)), ShouldBeTrue)

			selected, err = h.Select([]int{1})
			So(err, ShouldBeNil)
			So(selected.Order(), ShouldBeEmpty)

			_, err = h.Select([]int{3})
			So(errors.Is(err, ErrInvalidProvider), ShouldBeTrue)
		})

		Convey("拼接保留左侧顺序", func() {
			left := salesHeader(t)
			right := HeaderFromIndex(mustIndex(t, "PK_users"))
			h := left.Concat(right)
			So(h.Count(), ShouldEqual, 7)
			So(h.Order().Equal(Asc(0)), ShouldBeTrue)
			So(h.Descriptor().Count(), ShouldEqual, 7)
		})

		Convey("非法的顺序", func() {
			_, err := NewHeader([]Column{{Name: "a", Type: tuple.TypeInt64}}, Asc(1))
			So(errors.Is(err, ErrInvalidProvider), ShouldBeTrue)
		})
	})
}

func TestOrdering(t *testing.T) {
	o := Ordering{{Index: 2, Direction: rangeset.Positive}, {Index: 0, Direction: rangeset.Negative}, {Index: 1, Direction: rangeset.Positive}}
	assert.True(t, o.HasPrefix(Asc(2)))
	assert.False(t, o.HasPrefix(Asc(2, 0)))
	assert.True(t, o.Groups([]int{0, 2}))
	assert.False(t, o.Groups([]int{0, 1}))
	assert.False(t, Asc(0).Groups([]int{0, 1}))
	assert.True(t, o.Groups(nil))
	assert.Equal(t, []int{2, 0, 1}, o.Columns())
	assert.Equal(t, "+2, -0, +1", o.String())
}

func TestAggregateResultType(t *testing.T) {
	cases := []struct {
		name      string
		aggregate AggregateType
		source    tuple.FieldType
		want      tuple.FieldType
		wantErr   bool
	}{
		{"count 任意类型", AggregateCount, tuple.TypeString, tuple.TypeInt64, false},
		{"sum int64", AggregateSum, tuple.TypeInt64, tuple.TypeInt64, false},
		{"sum decimal", AggregateSum, tuple.TypeDecimal, tuple.TypeDecimal, false},
		{"sum string", AggregateSum, tuple.TypeString, 0, true},
		{"avg int64", AggregateAvg, tuple.TypeInt64, tuple.TypeFloat64, false},
		{"avg float64", AggregateAvg, tuple.TypeFloat64, tuple.TypeFloat64, false},
		{"avg decimal", AggregateAvg, tuple.TypeDecimal, tuple.TypeDecimal, false},
		{"avg bool", AggregateAvg, tuple.TypeBool, 0, true},
		{"min string", AggregateMin, tuple.TypeString, tuple.TypeString, false},
		{"max time", AggregateMax, tuple.TypeTime, tuple.TypeTime, false},
		{"未知聚合", AggregateType("median"), tuple.TypeInt64, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.aggregate.ResultType(tc.source)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidProvider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAggregateProvider(t *testing.T) {
	Convey("测试 AggregateProvider", t, func() {
		raw, err := NewRawProvider(salesHeader(t))
		So(err, ShouldBeNil)

		Convey("分组列在前，聚合列在后", func() {
			p, err := NewAggregateProvider(raw, []int{0},
				AggregateColumn{Source: 1, Type: AggregateSum},
				AggregateColumn{Source: 2, Type: AggregateAvg, Name: "avg_price"},
				AggregateColumn{Source: -1, Type: AggregateCount},
			)
			So(err, ShouldBeNil)
			h := p.Header()
			So(h.Count(), ShouldEqual, 4)
			So(h.Column(1).Name, ShouldEqual, "sum(amount)")
			So(h.Column(1).Type, ShouldEqual, tuple.TypeInt64)
			So(h.Column(2).Name, ShouldEqual, "avg_price")
			So(h.Column(2).Type, ShouldEqual, tuple.TypeDecimal)
			So(h.Column(3).Name, ShouldEqual, "count")
			So(h.Order().Equal(Asc(0)), ShouldBeTrue)
			So(p.IsOrderSatisfied(raw.Header().Order()), ShouldBeTrue)
			So(p.String(), ShouldEqual, "Aggregate(sum(1), avg(2), count(*); group by 0)")
		})

		Convey("输入不按分组列有序时没有顺序", func() {
			p, err := NewAggregateProvider(raw, []int{1}, AggregateColumn{Source: 2, Type: AggregateMax})
			So(err, ShouldBeNil)
			So(p.Header().Order(), ShouldBeEmpty)
			So(p.IsOrderSatisfied(raw.Header().Order()), ShouldBeFalse)
			So(p.RequiredOrder().Equal(Asc(1)), ShouldBeTrue)
		})

		Convey("非法的聚合", func() {
			_, err := NewAggregateProvider(raw, []int{0}, AggregateColumn{Source: 0, Type: AggregateSum})
			So(errors.Is(err, ErrInvalidProvider), ShouldBeTrue)
			_, err = NewAggregateProvider(raw, []int{5})
			So(errors.Is(err, ErrInvalidProvider), ShouldBeTrue)
			_, err = NewAggregateProvider(raw, []int{0, 0})
			So(errors.Is(err, ErrInvalidProvider), ShouldBeTrue)
			_, err = NewAggregateProvider(raw, []int{0, 1, 0})
			So(errors.Is(err, ErrInvalidProvider), ShouldBeTrue)
			_, err = NewAggregateProvider(raw, []int{1, 0}, AggregateColumn{Source: -1, Type: AggregateCount})
			So(err, ShouldBeNil)
			_, err = NewAggregateProvider(raw, nil, AggregateColumn{Source: -1, Type: AggregateMin})
			So(errors.Is(err, ErrInvalidProvider), ShouldBeTrue)
		})
	})
}

func TestProviders(t *testing.T) {
	Convey("测试 provider 树", t, func() {
		pk, err := NewIndexProvider(mustIndex(t, "PK_users"))
		So(err, ShouldBeNil)
		So(pk.Header().Order().Equal(Asc(0)), ShouldBeTrue)

		Convey("RawProvider 校验行形状", func() {
			h := salesHeader(t)
			_, err := NewRawProvider(h, tuple.MustFromValues(tuple.MustNewDescriptor(tuple.TypeString), "a"))
			So(errors.Is(err, ErrInvalidProvider), ShouldBeTrue)

			row := tuple.MustFromValues(h.Descriptor(), "A", 1, nil)
			raw, err := NewRawProvider(h, row)
			So(err, ShouldBeNil)
			So(row.SetValue(0, "B"), ShouldBeNil)
			v, _, _ := raw.Rows()[0].GetValue(0)
			So(v, ShouldEqual, "A")
		})

		Convey("Sort 与 Reindex 改变顺序", func() {
			sort, err := NewSortProvider(pk, Ordering{{Index: 1, Direction: rangeset.Negative}})
			So(err, ShouldBeNil)
			So(sort.Header().Order().String(), ShouldEqual, "-1")
			So(sort.IsRedundant(), ShouldBeFalse)

			redundant, err := NewSortProvider(pk, Asc(0))
			So(err, ShouldBeNil)
			So(redundant.IsRedundant(), ShouldBeTrue)

			reindex, err := NewReindexProvider(pk, Asc(2, 0))
			So(err, ShouldBeNil)
			So(reindex.Header().Order().Equal(Asc(2, 0)), ShouldBeTrue)

			_, err = NewSortProvider(pk, nil)
			So(errors.Is(err, ErrInvalidProvider), ShouldBeTrue)
		})

		Convey("Take 与 Skip", func() {
			take, err := NewTakeProvider(pk, ConstCount(2))
			So(err, ShouldBeNil)
			So(take.Header(), ShouldEqual, pk.Header())
			So(take.String(), ShouldEqual, "Take(2)")

			_, err = NewSkipProvider(pk, ConstCount(-1))
			So(errors.Is(err, ErrInvalidProvider), ShouldBeTrue)
			_, err = NewSkipProvider(pk, ParamCount(NewParameter("n", tuple.TypeString)))
			So(errors.Is(err, ErrParameterType), ShouldBeTrue)

			limit := NewParameter("limit", tuple.TypeInt64)
			skip, err := NewSkipProvider(pk, ParamCount(limit))
			So(err, ShouldBeNil)
			So(skip.String(), ShouldEqual, "Skip(@limit)")
			n, err := skip.Count().Resolve(NewParameterContext(BindValue(limit, -5)))
			So(err, ShouldBeNil)
			So(n, ShouldEqual, int64(0))
		})

		Convey("Join 拼接两侧的列", func() {
			city, err := NewIndexProvider(mustIndex(t, "IX_users_city"))
			So(err, ShouldBeNil)
			join, err := NewJoinProvider(pk, city, LeftOuterJoin, JoinPair{Left: 0, Right: 2})
			So(err, ShouldBeNil)
			So(join.Header().Count(), ShouldEqual, 7)
			So(join.Header().Order().Equal(Asc(0)), ShouldBeTrue)
			So(join.String(), ShouldEqual, "Join(LeftOuter, l0 = r2)")
			So(join.Sources(), ShouldHaveLength, 2)

			_, err = NewJoinProvider(pk, city, InnerJoin, JoinPair{Left: 0, Right: 0})
			So(errors.Is(err, ErrInvalidProvider), ShouldBeTrue)
		})

		Convey("WithSources 按新数据源重建", func() {
			sel, err := NewSelectProvider(pk, 1, 0)
			So(err, ShouldBeNil)
			take, err := NewTakeProvider(sel, ConstCount(3))
			So(err, ShouldBeNil)

			sorted, err := NewSortProvider(pk, Asc(1))
			So(err, ShouldBeNil)
			rebuilt, err := sel.WithSources(sorted)
			So(err, ShouldBeNil)
			So(rebuilt.Header().Order().Equal(Asc(0)), ShouldBeTrue)

			_, err = take.WithSources()
			So(errors.Is(err, ErrInvalidProvider), ShouldBeTrue)

			So(Format(take), ShouldEqual, "Take(3)\n  Select(1, 0)\n    Index(PK_users)\n")
		})

		Convey("StoreProvider 默认生成名字", func() {
			store, err := NewStoreProvider(pk, "")
			So(err, ShouldBeNil)
			So(store.Name(), ShouldNotBeEmpty)
			again, err := store.WithSources(pk)
			So(err, ShouldBeNil)
			So(again.(*StoreProvider).Name(), ShouldEqual, store.Name())
		})
	})
}

func TestParameterContext(t *testing.T) {
	Convey("测试参数绑定", t, func() {
		p := NewParameter("age", tuple.TypeInt64)
		calls := 0
		ctx := NewParameterContext(Bind(p, func() any {
			calls++
			return 30
		}))

		Convey("取值函数只调用一次，整数统一为 int64", func() {
			v, err := ctx.Value(p)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, int64(30))
			_, _ = ctx.Value(p)
			So(calls, ShouldEqual, 1)
		})

		Convey("未绑定与类型不匹配", func() {
			_, err := ctx.Value(NewParameter("age", tuple.TypeInt64))
			So(errors.Is(err, ErrParameterNotBound), ShouldBeTrue)

			s := NewParameter("name", tuple.TypeString)
			_, err = NewParameterContext(BindValue(s, 1)).Value(s)
			So(errors.Is(err, ErrParameterType), ShouldBeTrue)

			var empty *ParameterContext
			_, err = empty.Value(p)
			So(errors.Is(err, ErrParameterNotBound), ShouldBeTrue)
		})

		Convey("Null 参数", func() {
			v, err := NewParameterContext(BindValue(p, nil)).Value(p)
			So(err, ShouldBeNil)
			So(v, ShouldBeNil)
			_, err = NewParameterContext(BindValue(p, nil)).Int64(p)
			So(errors.Is(err, ErrParameterType), ShouldBeTrue)
		})
	})
}

func TestWhere(t *testing.T) {
	pk, err := NewIndexProvider(mustIndex(t, "PK_users"))
	require.NoError(t, err)
	minAge := NewParameter("min_age", tuple.TypeInt64)
	filter, err := Where(pk,
		Condition{Left: ColumnOf(2), Op: OpGe, Right: Param(minAge)},
		Condition{Left: ColumnOf(3), Op: OpNe, Right: mustConst(t, tuple.TypeString, "shanghai")},
	)
	require.NoError(t, err)
	assert.Equal(t, "Filter($2 >= @min_age AND $3 <> shanghai)", filter.String())

	params := NewParameterContext(BindValue(minAge, 18))
	desc := pk.Header().Descriptor()
	cases := []struct {
		name string
		row  tuple.Tuple
		want bool
	}{
		{"满足条件", tuple.MustFromValues(desc, 1, "a", 20, "beijing"), true},
		{"年龄不够", tuple.MustFromValues(desc, 2, "b", 10, "beijing"), false},
		{"城市被排除", tuple.MustFromValues(desc, 3, "c", 30, "shanghai"), false},
		{"Null 不满足任何比较", tuple.MustFromValues(desc, 4, "d", nil, "beijing"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := filter.Predicate()(tc.row, params)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}

	_, err = Where(pk, Condition{Left: ColumnOf(1), Op: OpEq, Right: Param(minAge)})
	assert.ErrorIs(t, err, ErrUnsupportedOperand)
	_, err = Where(pk, Condition{Left: ColumnOf(1), Op: "like", Right: ColumnOf(1)})
	assert.ErrorIs(t, err, ErrUnsupportedOperand)
	_, err = Const(tuple.TypeInt64, "x")
	assert.ErrorIs(t, err, ErrUnsupportedOperand)

	_, err = filter.Predicate()(tuple.MustFromValues(desc, 1, "a", 20, "beijing"), NewParameterContext())
	assert.ErrorIs(t, err, ErrParameterNotBound)
}

func mustConst(t *testing.T, fieldType tuple.FieldType, value any) Operand {
	o, err := Const(fieldType, value)
	require.NoError(t, err)
	return o
}

func TestRangeSource(t *testing.T) {
	info := mustIndex(t, "IX_users_city")
	comparer := index.NewKeyComparer(info.KeyDescriptor(), info.KeyDirections())
	city := NewParameter("city", tuple.TypeString)

	p, err := NewRangeSetProvider(info, KeyEqual(city), "city = @city")
	require.NoError(t, err)
	assert.Equal(t, "RangeSet(IX_users_city, city = @city)", p.String())

	set, err := p.RangeSet(comparer, NewParameterContext(BindValue(city, "beijing")))
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
	key := tuple.MustFromValues(info.KeyDescriptor(), "beijing", 20)
	assert.True(t, set.Contains(index.NewEntire(key)))

	set, err = p.RangeSet(comparer, NewParameterContext(BindValue(city, nil)))
	require.NoError(t, err)
	assert.True(t, set.IsEmpty())

	_, err = p.RangeSet(comparer, NewParameterContext())
	assert.ErrorIs(t, err, ErrParameterNotBound)

	q, err := NewRangeSetProvider(info, RangeQuery(&index.RangeQuery{}), "")
	require.NoError(t, err)
	set, err = q.RangeSet(comparer, nil)
	require.NoError(t, err)
	assert.True(t, set.IsFull())
}
