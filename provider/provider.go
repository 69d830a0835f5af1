package provider

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidProvider    = errors.New("invalid provider")
	ErrParameterNotBound  = errors.New("parameter not bound")
	ErrParameterType      = errors.New("parameter type mismatch")
	ErrUnsupportedOperand = errors.New("unsupported operand")
)

// ProviderType 可编译 provider 的类型，编译器按类型查找对应的 TypeCompiler
type ProviderType string

const (
	TypeIndex     ProviderType = "Index"
	TypeRangeSet  ProviderType = "RangeSet"
	TypeRaw       ProviderType = "Raw"
	TypeFilter    ProviderType = "Filter"
	TypeSelect    ProviderType = "Select"
	TypeSort      ProviderType = "Sort"
	TypeReindex   ProviderType = "Reindex"
	TypeTake      ProviderType = "Take"
	TypeSkip      ProviderType = "Skip"
	TypeAggregate ProviderType = "Aggregate"
	TypeJoin      ProviderType = "Join"
	TypeStore     ProviderType = "Store"
)

// CompilableProvider 声明式的关系代数节点，不可变
type CompilableProvider interface {
	Type() ProviderType
	Header() *Header
	Sources() []CompilableProvider
	// WithSources 返回替换了数据源的新节点，header 按新数据源重新计算
	WithSources(sources ...CompilableProvider) (CompilableProvider, error)
	String() string
}

// Format 以缩进的形式输出整棵树
func Format(p CompilableProvider) string {
	var sb strings.Builder
	format(&sb, p, 0)
	return sb.String()
}

func format(sb *strings.Builder, p CompilableProvider, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(p.String())
	sb.WriteByte('\n')
	for _, source := range p.Sources() {
		format(sb, source, depth+1)
	}
}

func checkSourceCount(p CompilableProvider, sources []CompilableProvider, expected int) error {
	if len(sources) != expected {
		return errors.Wrapf(ErrInvalidProvider, "%s expects %d sources, got %d", p.Type(), expected, len(sources))
	}
	for _, source := range sources {
		if source == nil {
			return errors.Wrapf(ErrInvalidProvider, "%s has nil source", p.Type())
		}
	}
	return nil
}

// leaf 没有数据源的节点
type leaf struct{}

func (leaf) Sources() []CompilableProvider { return nil }

// unary 只有一个数据源的节点
type unary struct {
	source CompilableProvider
}

func (u unary) Source() CompilableProvider    { return u.source }
func (u unary) Sources() []CompilableProvider { return []CompilableProvider{u.source} }

func checkSource(source CompilableProvider) error {
	if source == nil {
		return errors.Wrap(ErrInvalidProvider, "source is nil")
	}
	return nil
}
