package optimizer

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/JyotinderSingh/plandb/logical"
)

// JoinOrderer chooses the order in which the tables of a join are read.
type JoinOrderer struct{}

// Order returns the positions of costs cheapest first. Equal costs keep
// input order.
func (o JoinOrderer) Order(costs []float64) []int {
	order, _ := o.plan(costs)
	return order
}

// plan stable-sorts the positions by cost and runs an interval DP over the
// sorted sequence to find the cheapest bushy tree over it,
// dp[i][j] = min over k of dp[i][k] + dp[k+1][j] + costs[i] + costs[j].
// The tree is flattened left to right, so its leaves stay cheapest first.
// plan returns the flattened order and the cost of the tree.
func (JoinOrderer) plan(costs []float64) ([]int, float64) {
	n := len(costs)
	if n == 0 {
		return nil, 0
	}
	positions := make([]int, n)
	for i := range positions {
		positions[i] = i
	}
	slices.SortStableFunc(positions, func(a, b int) int {
		return cmp.Compare(costs[a], costs[b])
	})
	sorted := make([]float64, n)
	for i, pos := range positions {
		sorted[i] = costs[pos]
	}

	dp := make([][]float64, n)
	split := make([][]int, n)
	for i := range dp {
		dp[i] = make([]float64, n)
		split[i] = make([]int, n)
		dp[i][i] = sorted[i]
	}
	for length := 2; length <= n; length++ {
		for i := 0; i+length-1 < n; i++ {
			j := i + length - 1
			dp[i][j] = -1
			for k := i; k < j; k++ {
				c := dp[i][k] + dp[k+1][j] + sorted[i] + sorted[j]
				if dp[i][j] < 0 || c < dp[i][j] {
					dp[i][j] = c
					split[i][j] = k
				}
			}
		}
	}

	order := make([]int, 0, n)
	var flatten func(i, j int)
	flatten = func(i, j int) {
		if i == j {
			order = append(order, positions[i])
			return
		}
		k := split[i][j]
		flatten(i, k)
		flatten(k+1, j)
	}
	flatten(0, n-1)
	return order, dp[0][n-1]
}

// Reorder rearranges the table reads under the topmost join of plan in
// the order chosen from their costs. The join tree keeps its shape.
func (o JoinOrderer) Reorder(plan logical.Operator) error {
	join := topJoin(plan)
	if join == nil {
		return nil
	}
	var leaves []*logical.TableGet
	if !collectLeaves(join, &leaves) {
		return nil
	}

	costs := make([]float64, len(leaves))
	for i, get := range leaves {
		costs[i] = get.Cost
	}
	order, treeCost := o.plan(costs)
	ordered := make([]*logical.TableGet, len(order))
	names := make([]string, len(order))
	for i, pos := range order {
		ordered[i] = leaves[pos]
		names[i] = leaves[pos].Name
	}
	next := 0
	assignLeaves(join, ordered, &next)
	slog.Debug("optimizer: join order", "tables", names, "cost", treeCost)
	return nil
}

func topJoin(op logical.Operator) *logical.Join {
	if join, ok := op.(*logical.Join); ok {
		return join
	}
	for _, child := range op.Children() {
		if join := topJoin(child); join != nil {
			return join
		}
	}
	return nil
}

// collectLeaves appends the leaves of a join tree in order. It reports
// false when a leaf is not a table read.
func collectLeaves(op logical.Operator, leaves *[]*logical.TableGet) bool {
	switch op := op.(type) {
	case *logical.Join:
		for _, child := range op.Children() {
			if !collectLeaves(child, leaves) {
				return false
			}
		}
		return true
	case *logical.TableGet:
		*leaves = append(*leaves, op)
		return true
	default:
		return false
	}
}

func assignLeaves(join *logical.Join, ordered []*logical.TableGet, next *int) {
	children := join.Children()
	for i, child := range children {
		if sub, ok := child.(*logical.Join); ok {
			assignLeaves(sub, ordered, next)
			continue
		}
		children[i] = ordered[*next]
		*next++
	}
}
