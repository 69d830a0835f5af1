package executable

import (
	"fmt"
	"iter"
	"strings"

	"github.com/hatlonely/rse/provider"
	"github.com/hatlonely/rse/tuple"
)

// Provider 可执行的算子，每次调用 Enumerate 都是一个新的拉取游标，中途放弃是安全的
type Provider interface {
	Origin() provider.CompilableProvider
	Header() *provider.Header
	Sources() []Provider
	Enumerate(ctx *EnumerationContext) iter.Seq2[tuple.Tuple, error]
}

type base struct {
	origin  provider.CompilableProvider
	sources []Provider
}

func (b *base) Origin() provider.CompilableProvider { return b.origin }
func (b *base) Header() *provider.Header            { return b.origin.Header() }
func (b *base) Sources() []Provider                 { return b.sources }

func fail(err error) iter.Seq2[tuple.Tuple, error] {
	return func(yield func(tuple.Tuple, error) bool) {
		yield(nil, err)
	}
}

// Collect 枚举出全部行，遇到错误时返回已经读到的行
func Collect(ctx *EnumerationContext, p Provider) ([]tuple.Tuple, error) {
	var rows []tuple.Tuple
	for row, err := range p.Enumerate(ctx) {
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Format 以缩进的形式输出算子树
func Format(p Provider) string {
	var sb strings.Builder
	format(&sb, p, 0)
	return sb.String()
}

func format(sb *strings.Builder, p Provider, depth int) {
	fmt.Fprintf(sb, "%s%s: %s\n", strings.Repeat("  ", depth), Name(p), p.Origin())
	for _, source := range p.Sources() {
		format(sb, source, depth+1)
	}
}

// Name 算子的类型名
func Name(p Provider) string {
	t := fmt.Sprintf("%T", p)
	return t[strings.LastIndex(t, ".")+1:]
}
