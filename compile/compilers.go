package compile

import (
	"github.com/hatlonely/rse/executable"
	"github.com/hatlonely/rse/provider"
	"github.com/hatlonely/rse/schema"
	"github.com/pkg/errors"
)

var builtinCompilers = map[provider.ProviderType]TypeCompiler{
	provider.TypeIndex:     TypeCompilerFunc(compileIndex),
	provider.TypeRangeSet:  TypeCompilerFunc(compileRangeSet),
	provider.TypeRaw:       TypeCompilerFunc(compileRaw),
	provider.TypeFilter:    TypeCompilerFunc(compileFilter),
	provider.TypeSelect:    TypeCompilerFunc(compileSelect),
	provider.TypeSort:      TypeCompilerFunc(compileSort),
	provider.TypeReindex:   TypeCompilerFunc(compileReindex),
	provider.TypeTake:      TypeCompilerFunc(compileTake),
	provider.TypeSkip:      TypeCompilerFunc(compileSkip),
	provider.TypeAggregate: TypeCompilerFunc(compileAggregate),
	provider.TypeJoin:      TypeCompilerFunc(compileJoin),
	provider.TypeStore:     TypeCompilerFunc(compileStore),
}

func as[T provider.CompilableProvider](node provider.CompilableProvider) (T, error) {
	p, ok := node.(T)
	if !ok {
		return p, errors.Wrapf(ErrUnsupportedProvider, "unexpected %T for %s", node, node.Type())
	}
	return p, nil
}

// inherit 流式算子的结果和数据源一样可以重复读取
func inherit(source CompileResult, p executable.Provider) CompileResult {
	if source.IsCompatible() {
		return Compiled(p)
	}
	return Incompatible(p)
}

func (c *Compilation) checkIndex(info *schema.IndexInfo) error {
	model := c.compiler.model
	if model == nil {
		return nil
	}
	found, err := model.Index(info.Name())
	if err != nil {
		return err
	}
	if found != info {
		return errors.Wrapf(schema.ErrIndexNotFound, "index %s does not belong to the current model", info.Name())
	}
	return nil
}

func compileIndex(c *Compilation, node provider.CompilableProvider, _ []CompileResult) (CompileResult, error) {
	p, err := as[*provider.IndexProvider](node)
	if err != nil {
		return CompileResult{}, err
	}
	if err := c.checkIndex(p.Index()); err != nil {
		return CompileResult{}, err
	}
	if p.Index().IsVirtual() {
		return compileVirtualIndex(p)
	}
	return Compiled(executable.NewIndexProvider(p)), nil
}

// compileVirtualIndex 虚拟索引没有物理存储，展开为主索引扫描、投影和排序
func compileVirtualIndex(p *provider.IndexProvider) (CompileResult, error) {
	info := p.Index()
	primary, err := provider.NewIndexProvider(info.Table().PrimaryIndex())
	if err != nil {
		return CompileResult{}, err
	}
	sel, err := provider.NewSelectProvider(primary, info.ColumnMap()...)
	if err != nil {
		return CompileResult{}, err
	}
	sort, err := provider.NewSortProvider(sel, p.Header().Order())
	if err != nil {
		return CompileResult{}, err
	}
	selected, err := executable.NewSelectProvider(sel, executable.NewIndexProvider(primary))
	if err != nil {
		return CompileResult{}, err
	}
	return Incompatible(executable.NewSortProvider(sort, selected)), nil
}

func compileRangeSet(c *Compilation, node provider.CompilableProvider, _ []CompileResult) (CompileResult, error) {
	p, err := as[*provider.RangeSetProvider](node)
	if err != nil {
		return CompileResult{}, err
	}
	if p.Index().IsVirtual() {
		return CompileResult{}, errors.Wrapf(ErrUnsupportedProvider, "range seek on virtual index %s", p.Index().Name())
	}
	if err := c.checkIndex(p.Index()); err != nil {
		return CompileResult{}, err
	}
	return Compiled(executable.NewRangeSetProvider(p)), nil
}

func compileRaw(_ *Compilation, node provider.CompilableProvider, _ []CompileResult) (CompileResult, error) {
	p, err := as[*provider.RawProvider](node)
	if err != nil {
		return CompileResult{}, err
	}
	return Compiled(executable.NewRawProvider(p)), nil
}

func compileFilter(_ *Compilation, node provider.CompilableProvider, sources []CompileResult) (CompileResult, error) {
	p, err := as[*provider.FilterProvider](node)
	if err != nil {
		return CompileResult{}, err
	}
	return inherit(sources[0], executable.NewFilterProvider(p, sources[0].Provider())), nil
}

func compileSelect(_ *Compilation, node provider.CompilableProvider, sources []CompileResult) (CompileResult, error) {
	p, err := as[*provider.SelectProvider](node)
	if err != nil {
		return CompileResult{}, err
	}
	sel, err := executable.NewSelectProvider(p, sources[0].Provider())
	if err != nil {
		return CompileResult{}, err
	}
	return inherit(sources[0], sel), nil
}

func compileSort(_ *Compilation, node provider.CompilableProvider, sources []CompileResult) (CompileResult, error) {
	p, err := as[*provider.SortProvider](node)
	if err != nil {
		return CompileResult{}, err
	}
	return Incompatible(executable.NewSortProvider(p, sources[0].Provider())), nil
}

func compileReindex(c *Compilation, node provider.CompilableProvider, sources []CompileResult) (CompileResult, error) {
	p, err := as[*provider.ReindexProvider](node)
	if err != nil {
		return CompileResult{}, err
	}
	return Incompatible(executable.NewReindexProvider(p, sources[0].Provider(), c.compiler.options.ReindexDegree)), nil
}

func compileTake(_ *Compilation, node provider.CompilableProvider, sources []CompileResult) (CompileResult, error) {
	p, err := as[*provider.TakeProvider](node)
	if err != nil {
		return CompileResult{}, err
	}
	return inherit(sources[0], executable.NewTakeProvider(p, sources[0].Provider())), nil
}

func compileSkip(_ *Compilation, node provider.CompilableProvider, sources []CompileResult) (CompileResult, error) {
	p, err := as[*provider.SkipProvider](node)
	if err != nil {
		return CompileResult{}, err
	}
	return inherit(sources[0], executable.NewSkipProvider(p, sources[0].Provider())), nil
}

// compileAggregate 分组聚合要求数据源按分组列有序，由排序修正保证
func compileAggregate(_ *Compilation, node provider.CompilableProvider, sources []CompileResult) (CompileResult, error) {
	p, err := as[*provider.AggregateProvider](node)
	if err != nil {
		return CompileResult{}, err
	}
	source := sources[0].Provider()
	if order := source.Header().Order(); !p.IsOrderSatisfied(order) {
		return CompileResult{}, errors.Wrapf(ErrOrderNotSatisfied, "group by %v, source order [%s]", p.GroupColumns(), order)
	}
	group, err := executable.NewOrderedGroupProvider(p, source)
	if err != nil {
		return CompileResult{}, err
	}
	return Incompatible(group), nil
}

// compileJoin 内侧会被反复枚举，先转换为可以重复读取的结果
func compileJoin(c *Compilation, node provider.CompilableProvider, sources []CompileResult) (CompileResult, error) {
	p, err := as[*provider.JoinProvider](node)
	if err != nil {
		return CompileResult{}, err
	}
	right, err := c.ToCompatible(sources[1])
	if err != nil {
		return CompileResult{}, err
	}
	join, err := executable.NewNestedLoopJoinProvider(p, sources[0].Provider(), right.Provider())
	if err != nil {
		return CompileResult{}, err
	}
	return Incompatible(join), nil
}

func compileStore(_ *Compilation, node provider.CompilableProvider, sources []CompileResult) (CompileResult, error) {
	p, err := as[*provider.StoreProvider](node)
	if err != nil {
		return CompileResult{}, err
	}
	return Compiled(executable.NewStoredProvider(p, sources[0].Provider(), p.Name())), nil
}
