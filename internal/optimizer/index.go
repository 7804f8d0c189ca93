package optimizer

import (
	"sort"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
)

// pairIndex is a sparse view over the valid pairs. Transfer triples are
// enumerated from storesByProduct, so only stores that actually carry a
// product are ever paired for it.
type pairIndex struct {
	records         []domain.StoreProductRecord
	byKey           map[domain.PairKey]int
	stores          []int
	products        []int
	storesByProduct map[int][]int
	productsByStore map[int][]int
}

func newPairIndex(records []domain.StoreProductRecord) *pairIndex {
	ix := &pairIndex{
		records:         records,
		byKey:           make(map[domain.PairKey]int, len(records)),
		storesByProduct: make(map[int][]int),
		productsByStore: make(map[int][]int),
	}
	for i, rec := range records {
		key := rec.Key()
		if _, dup := ix.byKey[key]; dup {
			continue
		}
		ix.byKey[key] = i
		if _, ok := ix.productsByStore[rec.StoreID]; !ok {
			ix.stores = append(ix.stores, rec.StoreID)
		}
		if _, ok := ix.storesByProduct[rec.ProductID]; !ok {
			ix.products = append(ix.products, rec.ProductID)
		}
		ix.storesByProduct[rec.ProductID] = append(ix.storesByProduct[rec.ProductID], rec.StoreID)
		ix.productsByStore[rec.StoreID] = append(ix.productsByStore[rec.StoreID], rec.ProductID)
	}

	sort.Ints(ix.stores)
	sort.Ints(ix.products)
	for _, s := range ix.storesByProduct {
		sort.Ints(s)
	}
	for _, p := range ix.productsByStore {
		sort.Ints(p)
	}
	return ix
}

func (ix *pairIndex) record(key domain.PairKey) (domain.StoreProductRecord, bool) {
	i, ok := ix.byKey[key]
	if !ok {
		return domain.StoreProductRecord{}, false
	}
	return ix.records[i], true
}

func (ix *pairIndex) valid(store, product int) bool {
	_, ok := ix.byKey[domain.PairKey{StoreID: store, ProductID: product}]
	return ok
}

// transferTriples lists (from, to, product) for every product carried by at
// least two stores, ordered by product, then source, then destination.
func (ix *pairIndex) transferTriples() [][3]int {
	var triples [][3]int
	for _, p := range ix.products {
		stores := ix.storesByProduct[p]
		if len(stores) < 2 {
			continue
		}
		for _, i := range stores {
			for _, j := range stores {
				if i == j {
					continue
				}
				triples = append(triples, [3]int{i, j, p})
			}
		}
	}
	return triples
}
