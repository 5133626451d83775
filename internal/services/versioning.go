package services

import (
	"hash"
	"hash/fnv"
	"sort"
	"strconv"

	"kakeibo/internal/core"
)

// Content-derived version hashes for cache keys. Items are folded in id order
// so the hash is independent of slice ordering; any insert, delete, or
// updatedAt change must move the hash, otherwise stale cache entries leak.

type versionHash struct {
	h hash.Hash64
}

func newVersionHash() *versionHash {
	return &versionHash{h: fnv.New64a()}
}

func (v *versionHash) fold(parts ...string) {
	for _, p := range parts {
		v.h.Write([]byte(p))
		v.h.Write([]byte{0})
	}
}

func (v *versionHash) sum() uint64 {
	return v.h.Sum64()
}

// TransactionsVersion hashes a transaction set by id and updatedAt.
func TransactionsVersion(transactions []core.Transaction) uint64 {
	ids := make([]int, len(transactions))
	for i := range ids {
		ids[i] = i
	}
	sort.Slice(ids, func(a, b int) bool {
		return transactions[ids[a]].ID < transactions[ids[b]].ID
	})
	v := newVersionHash()
	for _, i := range ids {
		t := transactions[i]
		v.fold(t.ID, strconv.FormatInt(t.UpdatedAt.UnixNano(), 10))
	}
	return v.sum()
}

// BudgetsVersion hashes a budget set by id and updatedAt.
func BudgetsVersion(budgets []core.Budget) uint64 {
	ids := make([]int, len(budgets))
	for i := range ids {
		ids[i] = i
	}
	sort.Slice(ids, func(a, b int) bool {
		return budgets[ids[a]].ID < budgets[ids[b]].ID
	})
	v := newVersionHash()
	for _, i := range ids {
		b := budgets[i]
		v.fold(b.ID, strconv.FormatInt(b.UpdatedAt.UnixNano(), 10))
	}
	return v.sum()
}

// DefinitionsVersion hashes recurring-payment definitions. Occurrence edits do
// not touch the parent definition's updatedAt, so the occurrence count and the
// newest occurrence updatedAt are folded in as well.
func DefinitionsVersion(definitions []core.RecurringPaymentDefinition) uint64 {
	ids := make([]int, len(definitions))
	for i := range ids {
		ids[i] = i
	}
	sort.Slice(ids, func(a, b int) bool {
		return definitions[ids[a]].ID < definitions[ids[b]].ID
	})
	v := newVersionHash()
	for _, i := range ids {
		d := definitions[i]
		var maxOccurrence int64
		for _, occ := range d.Occurrences {
			if ts := occ.UpdatedAt.UnixNano(); ts > maxOccurrence {
				maxOccurrence = ts
			}
		}
		v.fold(
			d.ID,
			strconv.FormatInt(d.UpdatedAt.UnixNano(), 10),
			strconv.Itoa(len(d.Occurrences)),
			strconv.FormatInt(maxOccurrence, 10),
		)
	}
	return v.sum()
}

// BalancesVersion hashes saving balances by id and updatedAt.
func BalancesVersion(balances []core.RecurringPaymentSavingBalance) uint64 {
	ids := make([]int, len(balances))
	for i := range ids {
		ids[i] = i
	}
	sort.Slice(ids, func(a, b int) bool {
		return balances[ids[a]].ID < balances[ids[b]].ID
	})
	v := newVersionHash()
	for _, i := range ids {
		b := balances[i]
		v.fold(b.ID, strconv.FormatInt(b.UpdatedAt.UnixNano(), 10))
	}
	return v.sum()
}

// FilterSignature renders an aggregation filter into a stable cache-key
// component.
func FilterSignature(f core.AggregationFilter) string {
	sig := "t:" + strconv.FormatBool(f.IncludeOnlyCalculationTarget) +
		";x:" + strconv.FormatBool(f.ExcludeTransfers)
	if f.FinancialInstitutionID != nil {
		sig += ";fi:" + *f.FinancialInstitutionID
	}
	if f.CategoryID != nil {
		sig += ";c:" + *f.CategoryID
	}
	return sig
}

// ExclusionSignature renders an excluded-category id set into a stable
// cache-key component. Order of the input does not matter.
func ExclusionSignature(categoryIDs []string) string {
	if len(categoryIDs) == 0 {
		return ""
	}
	sorted := make([]string, len(categoryIDs))
	copy(sorted, categoryIDs)
	sort.Strings(sorted)
	sig := sorted[0]
	for _, id := range sorted[1:] {
		sig += "," + id
	}
	return sig
}
