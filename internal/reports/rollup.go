package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erpledger/erpledger/internal/accounts"
	"github.com/erpledger/erpledger/internal/model"
	"github.com/erpledger/erpledger/internal/store"
)

// RollupNode is an account with its own balance and the balance of its
// whole subtree.
type RollupNode struct {
	Code     string
	Name     string
	Type     model.AccountType
	Balance  decimal.Decimal // lines posted to this account
	Total    decimal.Decimal // Balance plus every descendant's Balance
	Children []*RollupNode
}

// Rollup returns the chart as a forest with balances as of asOf (zero means
// all time) aggregated up the hierarchy.
func (g *Generator) Rollup(ctx context.Context, tenantID string, asOf time.Time) ([]*RollupNode, error) {
	defer g.observe("rollup", tenantID, time.Now())

	s, err := g.load(ctx, tenantID, store.LineFilter{To: asOf})
	if err != nil {
		return nil, err
	}
	roots, err := accounts.NewChart(s.accounts).Tree()
	if err != nil {
		return nil, err
	}

	out := make([]*RollupNode, len(roots))
	for i, r := range roots {
		out[i] = s.rollup(r)
	}
	return out, nil
}

func (s snapshot) rollup(n *accounts.Node) *RollupNode {
	sum := s.sums[n.Code]
	own := n.Type.SignedBalance(sum.Debit, sum.Credit)
	rn := &RollupNode{
		Code:    n.Code,
		Name:    n.Name,
		Type:    n.Type,
		Balance: own,
		Total:   own,
	}
	for _, k := range n.Children {
		child := s.rollup(k)
		rn.Total = rn.Total.Add(child.Total)
		rn.Children = append(rn.Children, child)
	}
	return rn
}
