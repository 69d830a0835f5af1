package provider

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

type JoinType int

const (
	InnerJoin JoinType = iota
	LeftOuterJoin
)

func (t JoinType) String() string {
	if t == LeftOuterJoin {
		return "LeftOuter"
	}
	return "Inner"
}

// JoinPair 左侧第 Left 列等于右侧第 Right 列
type JoinPair struct {
	Left  int
	Right int
}

// JoinProvider 等值连接，输出左侧列加右侧列，保持左侧顺序
// 左外连接中没有匹配的左侧行，右侧列全部为 Null
type JoinProvider struct {
	left     CompilableProvider
	right    CompilableProvider
	joinType JoinType
	pairs    []JoinPair
	header   *Header
}

func NewJoinProvider(left, right CompilableProvider, joinType JoinType, pairs ...JoinPair) (*JoinProvider, error) {
	if left == nil || right == nil {
		return nil, errors.Wrap(ErrInvalidProvider, "join source is nil")
	}
	if joinType != InnerJoin && joinType != LeftOuterJoin {
		return nil, errors.Wrapf(ErrInvalidProvider, "unknown join type %d", joinType)
	}
	lh, rh := left.Header(), right.Header()
	for _, pair := range pairs {
		if err := lh.checkColumn(pair.Left); err != nil {
			return nil, err
		}
		if err := rh.checkColumn(pair.Right); err != nil {
			return nil, err
		}
		if lt, rt := lh.Column(pair.Left).Type, rh.Column(pair.Right).Type; lt != rt {
			return nil, errors.Wrapf(ErrInvalidProvider, "join column type mismatch %s = %s", lt, rt)
		}
	}
	return &JoinProvider{
		left:     left,
		right:    right,
		joinType: joinType,
		pairs:    slices.Clone(pairs),
		header:   lh.Concat(rh),
	}, nil
}

func (p *JoinProvider) Type() ProviderType            { return TypeJoin }
func (p *JoinProvider) Header() *Header               { return p.header }
func (p *JoinProvider) Left() CompilableProvider      { return p.left }
func (p *JoinProvider) Right() CompilableProvider     { return p.right }
func (p *JoinProvider) JoinType() JoinType            { return p.joinType }
func (p *JoinProvider) Pairs() []JoinPair             { return slices.Clone(p.pairs) }
func (p *JoinProvider) Sources() []CompilableProvider { return []CompilableProvider{p.left, p.right} }

func (p *JoinProvider) WithSources(sources ...CompilableProvider) (CompilableProvider, error) {
	if err := checkSourceCount(p, sources, 2); err != nil {
		return nil, err
	}
	return NewJoinProvider(sources[0], sources[1], p.joinType, p.pairs...)
}

func (p *JoinProvider) String() string {
	conditions := make([]string, len(p.pairs))
	for i, pair := range p.pairs {
		conditions[i] = fmt.Sprintf("l%d = r%d", pair.Left, pair.Right)
	}
	if len(conditions) == 0 {
		return fmt.Sprintf("Join(%s)", p.joinType)
	}
	return fmt.Sprintf("Join(%s, %s)", p.joinType, strings.Join(conditions, " AND "))
}
