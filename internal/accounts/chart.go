package accounts

import (
	"slices"
	"strings"

	"github.com/erpledger/erpledger/internal/apperr"
	"github.com/erpledger/erpledger/internal/model"
)

// Chart is an immutable arena of a tenant's accounts addressed by code.
// Children are resolved by index lookup; accounts hold no references to
// each other.
type Chart struct {
	byCode   map[string]model.Account
	children map[string][]string
	roots    []string
}

// Node is one account in a hierarchy snapshot returned by Tree.
type Node struct {
	model.Account
	Children []*Node
}

// NewChart indexes accounts in one pass. An account whose parent is absent
// is treated as a root.
func NewChart(accts []model.Account) *Chart {
	c := &Chart{
		byCode:   make(map[string]model.Account, len(accts)),
		children: make(map[string][]string),
	}
	for _, a := range accts {
		c.byCode[a.Code] = a
	}
	for _, a := range accts {
		if _, ok := c.byCode[a.ParentCode]; a.ParentCode != "" && ok {
			c.children[a.ParentCode] = append(c.children[a.ParentCode], a.Code)
			continue
		}
		c.roots = append(c.roots, a.Code)
	}
	slices.Sort(c.roots)
	for _, kids := range c.children {
		slices.Sort(kids)
	}
	return c
}

// Len returns the number of accounts.
func (c *Chart) Len() int { return len(c.byCode) }

// Get returns an account by code.
func (c *Chart) Get(code string) (model.Account, bool) {
	a, ok := c.byCode[code]
	return a, ok
}

// Accounts returns all accounts ordered by code.
func (c *Chart) Accounts() []model.Account {
	out := make([]model.Account, 0, len(c.byCode))
	for _, a := range c.byCode {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b model.Account) int { return strings.Compare(a.Code, b.Code) })
	return out
}

// Children returns the direct children of code ordered by code.
func (c *Chart) Children(code string) []model.Account {
	kids := c.children[code]
	out := make([]model.Account, len(kids))
	for i, k := range kids {
		out[i] = c.byCode[k]
	}
	return out
}

// Roots returns top-level accounts ordered by code.
func (c *Chart) Roots() []model.Account {
	out := make([]model.Account, len(c.roots))
	for i, r := range c.roots {
		out[i] = c.byCode[r]
	}
	return out
}

// IsAncestor reports whether ancestor appears on the parent chain of code.
// The walk is bounded by the chart size so a corrupt cycle terminates.
func (c *Chart) IsAncestor(ancestor, code string) bool {
	cur := code
	for n := len(c.byCode) + 1; n > 0; n-- {
		a, ok := c.byCode[cur]
		if !ok || a.ParentCode == "" {
			return false
		}
		if a.ParentCode == ancestor {
			return true
		}
		cur = a.ParentCode
	}
	return false
}

// Tree links the chart into a forest. Accounts that are only reachable
// through a parent cycle cannot be placed and yield ErrCycleDetected.
func (c *Chart) Tree() ([]*Node, error) {
	placed := 0
	var build func(code string) *Node
	build = func(code string) *Node {
		placed++
		n := &Node{Account: c.byCode[code]}
		for _, k := range c.children[code] {
			n.Children = append(n.Children, build(k))
		}
		return n
	}

	roots := make([]*Node, 0, len(c.roots))
	for _, r := range c.roots {
		roots = append(roots, build(r))
	}

	if placed != len(c.byCode) {
		return nil, apperr.Validation(apperr.ErrCycleDetected, c.firstUnplaced(roots), "")
	}
	return roots, nil
}

func (c *Chart) firstUnplaced(roots []*Node) string {
	seen := make(map[string]bool, len(c.byCode))
	var walk func(n *Node)
	walk = func(n *Node) {
		seen[n.Account.Code] = true
		for _, k := range n.Children {
			walk(k)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	for _, a := range c.Accounts() {
		if !seen[a.Code] {
			return a.Code
		}
	}
	return ""
}

// Walk visits nodes depth-first, parents before children.
func Walk(nodes []*Node, fn func(n *Node, depth int)) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		fn(n, depth)
		for _, k := range n.Children {
			visit(k, depth+1)
		}
	}
	for _, n := range nodes {
		visit(n, 0)
	}
}
