// Package optimizer estimates access costs, orders table reads and
// rewrites logical plans.
package optimizer

import (
	"log/slog"
	"math"

	"github.com/JyotinderSingh/plandb/index/btree"
	"github.com/JyotinderSingh/plandb/logical"
	"github.com/JyotinderSingh/plandb/query"
	"github.com/JyotinderSingh/plandb/stats"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/JyotinderSingh/plandb/types"
)

const (
	SeqPageCost       = 1.0
	RandomPageCost    = 4.0
	CPUTupleCost      = 0.01
	CPUIndexTupleCost = 0.005
	CPUOperatorCost   = 0.0025
)

// FullScanCost is the cost of reading every row of a table.
func FullScanCost(rows, pages int) float64 {
	return (CPUTupleCost+CPUOperatorCost)*float64(rows) + SeqPageCost*float64(pages)
}

// ReducedCost adds the cost of the rows a predicate of the given
// selectivity keeps.
func ReducedCost(full, sel float64, rows int) float64 {
	return full + sel*float64(rows)*(CPUTupleCost+SeqPageCost)
}

// IndexScanCost is the cost of descending an index and fetching the
// matched rows one page at a time.
func IndexScanCost(rows, pages int, sel float64) float64 {
	perPage := 1
	if pages > 0 {
		perPage = max(1, rows/pages)
	}
	matched := sel * float64(rows)
	fetched := math.Ceil(sel * float64(pages))
	descent := float64(btree.SearchCost(pages, perPage))
	return RandomPageCost*(descent+fetched) + CPUIndexTupleCost*matched + CPUTupleCost*matched
}

// Selectivity estimates the share of rows for which "column op v" holds.
// It is the position of the first boundary not below v over the number of
// buckets, measured from the top for > and >=. A value beyond every
// boundary, or a missing histogram, gives 1.
func Selectivity(h *stats.Histogram, op types.Operator, v types.Value) float64 {
	if h == nil || h.Empty() {
		return 1
	}
	j, ok := h.BoundaryIndex(v)
	if !ok {
		return 1
	}
	n := float64(h.Buckets())
	sel := float64(j) / n
	if op == types.GT || op == types.GE {
		sel = (n - float64(j) + 1) / n
	}
	return min(max(sel, 0), 1)
}

// CostModel assigns costs to table reads from the statistics table.
type CostModel struct {
	store *stats.Store
}

func NewCostModel(store *stats.Store) *CostModel {
	return &CostModel{store: store}
}

// CalculateCost stores the access cost of get on the node. Tables that
// were never analyzed cost a full scan; otherwise the most selective
// filter on an analyzed column reduces the estimate.
func (m *CostModel) CalculateCost(txn *tx.Transaction, get *logical.TableGet) error {
	rows, pages, err := get.Table.Size(txn)
	if err != nil {
		return err
	}
	full := FullScanCost(rows, pages)

	analyzed, err := m.store.TableRows(txn, get.Table.Name())
	if err != nil {
		return err
	}
	byColumn := make(map[string]stats.Row, len(analyzed))
	for _, r := range analyzed {
		byColumn[r.Column] = r
	}

	get.Cost = full
	best := -1.0
	for _, f := range get.Filters {
		sel, ok, err := m.filterSelectivity(get, f, byColumn)
		if err != nil {
			return err
		}
		if ok && (best < 0 || sel < best) {
			best = sel
		}
	}
	if best >= 0 {
		get.Cost = ReducedCost(full, best, rows)
	}

	get.IndexCost = 0
	if f, _, ok := get.IndexFilter(); ok {
		sel, found, err := m.filterSelectivity(get, f, byColumn)
		if err != nil {
			return err
		}
		if !found {
			sel = 1 / float64(max(rows, 1))
		}
		get.IndexCost = IndexScanCost(rows, pages, sel)
	}

	slog.Debug("optimizer: table cost", "table", get.Name, "rows", rows, "pages", pages, "analyzed", len(analyzed) > 0, "cost", get.Cost)
	return nil
}

func (m *CostModel) filterSelectivity(get *logical.TableGet, f *query.ComparisonExpr, byColumn map[string]stats.Row) (float64, bool, error) {
	field, ok := f.Left.(*query.FieldExpr)
	if !ok {
		return 0, false, nil
	}
	lit, ok := f.Right.(*query.ValueExpr)
	if !ok {
		return 0, false, nil
	}
	row, ok := byColumn[field.Field]
	if !ok {
		return 0, false, nil
	}
	meta, ok := get.Table.Field(field.Field)
	if !ok {
		return 0, false, nil
	}
	h, err := row.Parse(meta.Type)
	if err != nil {
		return 0, false, err
	}
	return Selectivity(h, f.Op, lit.Value), true, nil
}

// Annotate costs every table read of plan.
func (m *CostModel) Annotate(txn *tx.Transaction, plan logical.Operator) error {
	for _, get := range logical.TableGets(plan) {
		if err := m.CalculateCost(txn, get); err != nil {
			return err
		}
	}
	return nil
}
