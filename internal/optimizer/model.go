package optimizer

import (
	"fmt"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
	"github.com/andresuchdata/stockopt/backend-go/internal/solver"
)

// TransferVar ties a transfer triple to its variable index.
type TransferVar struct {
	From    int
	To      int
	Product int
	Var     int
}

// Model is the built LP plus the lookups needed to read a solution back.
type Model struct {
	Problem   *solver.Problem
	Mfg       map[domain.PairKey]int
	Final     map[domain.PairKey]int
	Transfers []TransferVar

	index    *pairIndex
	costs    *CostModel
	inbound  map[domain.PairKey][]int
	outbound map[domain.PairKey][]int
}

// ModelStats summarizes the size of a built model.
type ModelStats struct {
	Stores            int `json:"stores"`
	Products          int `json:"products"`
	Pairs             int `json:"pairs"`
	TransferVariables int `json:"transfer_variables"`
	Variables         int `json:"variables"`
	Constraints       int `json:"constraints"`
}

// Stats reports the model dimensions.
func (m *Model) Stats() ModelStats {
	return ModelStats{
		Stores:            len(m.index.stores),
		Products:          len(m.index.products),
		Pairs:             len(m.index.byKey),
		TransferVariables: len(m.Transfers),
		Variables:         m.Problem.NumVariables(),
		Constraints:       m.Problem.NumConstraints(),
	}
}

// Records returns the valid-pair records in index order.
func (m *Model) Records() []domain.StoreProductRecord {
	return m.index.records
}

// BuildModel formulates
//
//	min Σ mfg[s]·x[s,p] + Σ transport[i,j]·t[i,j,p] + Σ holding·final[s,p]
//
// subject to, for every valid pair (s,p):
//
//	final − x − Σ_i t[i,s,p] + Σ_j t[s,j,p] = current   (balance)
//	final ≥ target                                       (service)
//	Σ_j t[s,j,p] ≤ current                               (transfer feasibility)
//
// and, for every store, Σ_p x[s,p] ≤ capacity.
//
// The feasibility row is only emitted for pairs with outbound transfer
// variables; without them it reads 0 ≤ current.
func BuildModel(records []domain.StoreProductRecord, costs *CostModel, p Params) *Model {
	ix := newPairIndex(records)
	prob := solver.NewProblem()

	m := &Model{
		Problem:  prob,
		Mfg:      make(map[domain.PairKey]int, len(ix.byKey)),
		Final:    make(map[domain.PairKey]int, len(ix.byKey)),
		index:    ix,
		costs:    costs,
		inbound:  make(map[domain.PairKey][]int),
		outbound: make(map[domain.PairKey][]int),
	}

	// Pair variables in (store, product) order.
	for _, s := range ix.stores {
		mfgCost := costs.Manufacturing(s)
		for _, pr := range ix.productsByStore[s] {
			key := domain.PairKey{StoreID: s, ProductID: pr}
			m.Mfg[key] = prob.NewVariable(fmt.Sprintf("mfg[%d,%d]", s, pr), mfgCost)
			m.Final[key] = prob.NewVariable(fmt.Sprintf("final_inv[%d,%d]", s, pr), p.HoldingCost)
		}
	}

	for _, tr := range ix.transferTriples() {
		from, to, pr := tr[0], tr[1], tr[2]
		v := prob.NewVariable(fmt.Sprintf("transfer[%d,%d,%d]", from, to, pr), costs.Transport(from, to))
		m.Transfers = append(m.Transfers, TransferVar{From: from, To: to, Product: pr, Var: v})

		src := domain.PairKey{StoreID: from, ProductID: pr}
		dst := domain.PairKey{StoreID: to, ProductID: pr}
		m.outbound[src] = append(m.outbound[src], v)
		m.inbound[dst] = append(m.inbound[dst], v)
	}

	for _, s := range ix.stores {
		for _, pr := range ix.productsByStore[s] {
			key := domain.PairKey{StoreID: s, ProductID: pr}
			rec, _ := ix.record(key)

			balance := []solver.Term{
				{Var: m.Final[key], Coef: 1},
				{Var: m.Mfg[key], Coef: -1},
			}
			for _, v := range m.inbound[key] {
				balance = append(balance, solver.Term{Var: v, Coef: -1})
			}
			for _, v := range m.outbound[key] {
				balance = append(balance, solver.Term{Var: v, Coef: 1})
			}
			prob.AddConstraint(fmt.Sprintf("balance[%d,%d]", s, pr), solver.Equal, rec.CurrentInventory, balance...)

			prob.AddConstraint(fmt.Sprintf("service[%d,%d]", s, pr), solver.GreaterOrEqual, rec.TargetInventory,
				solver.Term{Var: m.Final[key], Coef: 1})

			if out := m.outbound[key]; len(out) > 0 {
				terms := make([]solver.Term, 0, len(out))
				for _, v := range out {
					terms = append(terms, solver.Term{Var: v, Coef: 1})
				}
				prob.AddConstraint(fmt.Sprintf("transfer_limit[%d,%d]", s, pr), solver.LessOrEqual, rec.CurrentInventory, terms...)
			}
		}
	}

	for _, s := range ix.stores {
		products := ix.productsByStore[s]
		terms := make([]solver.Term, 0, len(products))
		for _, pr := range products {
			terms = append(terms, solver.Term{Var: m.Mfg[domain.PairKey{StoreID: s, ProductID: pr}], Coef: 1})
		}
		prob.AddConstraint(fmt.Sprintf("capacity[%d]", s), solver.LessOrEqual, p.MfgCapacity, terms...)
	}

	return m
}

// Inbound returns the transfer variable indices arriving at a pair.
func (m *Model) Inbound(key domain.PairKey) []int {
	return m.inbound[key]
}

// Outbound returns the transfer variable indices leaving a pair.
func (m *Model) Outbound(key domain.PairKey) []int {
	return m.outbound[key]
}
