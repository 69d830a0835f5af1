package compile

import (
	"github.com/hatlonely/rse/provider"
	"github.com/pkg/errors"
)

// CorrectionMode 排序修正模式
type CorrectionMode string

const (
	// CorrectionFull 在顺序不满足要求的节点下插入 Sort，去掉数据源已经满足的 Sort
	CorrectionFull CorrectionMode = "full"
	// CorrectionActualOrder 只去掉数据源实际顺序已经满足的 Sort，不插入新的 Sort
	CorrectionActualOrder CorrectionMode = "actualOrder"
	CorrectionNone        CorrectionMode = "none"
)

// OrderRequirer 对数据源顺序有要求的节点
type OrderRequirer interface {
	RequiredOrder() provider.Ordering
	IsOrderSatisfied(order provider.Ordering) bool
}

// OrderingCorrector 自底向上重写 provider 树，重复执行结果不变
type OrderingCorrector struct {
	mode CorrectionMode
}

// NewOrderingCorrector 模式为空时使用 CorrectionFull
func NewOrderingCorrector(mode CorrectionMode) *OrderingCorrector {
	if mode == "" {
		mode = CorrectionFull
	}
	return &OrderingCorrector{mode: mode}
}

func (c *OrderingCorrector) Correct(root provider.CompilableProvider) (provider.CompilableProvider, error) {
	if c.mode == CorrectionNone {
		return root, nil
	}
	return c.rewrite(root, map[provider.CompilableProvider]provider.CompilableProvider{})
}

func (c *OrderingCorrector) rewrite(p provider.CompilableProvider, done map[provider.CompilableProvider]provider.CompilableProvider) (provider.CompilableProvider, error) {
	if rewritten, ok := done[p]; ok {
		return rewritten, nil
	}

	sources := p.Sources()
	changed := false
	rewrittenSources := make([]provider.CompilableProvider, len(sources))
	for i, source := range sources {
		rewritten, err := c.rewrite(source, done)
		if err != nil {
			return nil, err
		}
		rewrittenSources[i] = rewritten
		changed = changed || rewritten != source
	}

	if sort, ok := p.(*provider.SortProvider); ok && rewrittenSources[0].Header().Order().HasPrefix(sort.Order()) {
		done[p] = rewrittenSources[0]
		return rewrittenSources[0], nil
	}
	if c.mode == CorrectionFull {
		if r, ok := p.(OrderRequirer); ok && len(rewrittenSources) == 1 && !r.IsOrderSatisfied(rewrittenSources[0].Header().Order()) {
			sort, err := provider.NewSortProvider(rewrittenSources[0], r.RequiredOrder())
			if err != nil {
				return nil, errors.WithMessagef(err, "correct order of %s", p)
			}
			rewrittenSources[0], changed = sort, true
		}
	}

	result := p
	if changed {
		rebuilt, err := p.WithSources(rewrittenSources...)
		if err != nil {
			return nil, errors.WithMessagef(err, "rebuild %s", p)
		}
		result = rebuilt
	}
	done[p] = result
	return result, nil
}
