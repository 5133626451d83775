package services

import (
	"testing"
	"time"

	"kakeibo/internal/core"
)

func TestTransactionsVersion(t *testing.T) {
	t1 := core.Transaction{ID: "a", UpdatedAt: time.Unix(100, 0)}
	t2 := core.Transaction{ID: "b", UpdatedAt: time.Unix(200, 0)}

	base := TransactionsVersion([]core.Transaction{t1, t2})

	if got := TransactionsVersion([]core.Transaction{t2, t1}); got != base {
		t.Fatal("version must be independent of slice order")
	}

	edited := t1
	edited.UpdatedAt = time.Unix(101, 0)
	if got := TransactionsVersion([]core.Transaction{edited, t2}); got == base {
		t.Fatal("editing a transaction must change the version")
	}

	if got := TransactionsVersion([]core.Transaction{t1}); got == base {
		t.Fatal("removing a transaction must change the version")
	}
}

func TestDefinitionsVersionTracksOccurrences(t *testing.T) {
	def := core.RecurringPaymentDefinition{
		ID:        "d1",
		UpdatedAt: time.Unix(100, 0),
		Occurrences: []core.RecurringPaymentOccurrence{
			{ID: "o1", UpdatedAt: time.Unix(50, 0)},
		},
	}
	base := DefinitionsVersion([]core.RecurringPaymentDefinition{def})

	// Editing an occurrence does not touch the definition's UpdatedAt but must
	// still move the version.
	edited := def
	edited.Occurrences = []core.RecurringPaymentOccurrence{
		{ID: "o1", UpdatedAt: time.Unix(60, 0)},
	}
	if got := DefinitionsVersion([]core.RecurringPaymentDefinition{edited}); got == base {
		t.Fatal("occurrence edit must change the version")
	}

	added := def
	added.Occurrences = append([]core.RecurringPaymentOccurrence{}, def.Occurrences...)
	added.Occurrences = append(added.Occurrences, core.RecurringPaymentOccurrence{ID: "o2", UpdatedAt: time.Unix(40, 0)})
	if got := DefinitionsVersion([]core.RecurringPaymentDefinition{added}); got == base {
		t.Fatal("added occurrence must change the version")
	}
}

func TestBalancesVersion(t *testing.T) {
	b1 := core.RecurringPaymentSavingBalance{ID: "a", UpdatedAt: time.Unix(100, 0)}
	b2 := core.RecurringPaymentSavingBalance{ID: "b", UpdatedAt: time.Unix(200, 0)}

	base := BalancesVersion([]core.RecurringPaymentSavingBalance{b1, b2})
	if got := BalancesVersion([]core.RecurringPaymentSavingBalance{b2, b1}); got != base {
		t.Fatal("version must be independent of slice order")
	}

	edited := b1
	edited.UpdatedAt = time.Unix(150, 0)
	if got := BalancesVersion([]core.RecurringPaymentSavingBalance{edited, b2}); got == base {
		t.Fatal("edited balance must change the version")
	}
}

func TestFilterSignature(t *testing.T) {
	a := FilterSignature(core.DefaultAggregationFilter())
	b := FilterSignature(core.AggregationFilter{})
	if a == b {
		t.Fatal("different filters must have different signatures")
	}

	withCategory := core.DefaultAggregationFilter()
	withCategory.CategoryID = strPtr("food")
	if FilterSignature(withCategory) == a {
		t.Fatal("category restriction must change the signature")
	}
}

func TestExclusionSignature(t *testing.T) {
	if got := ExclusionSignature(nil); got != "" {
		t.Fatalf("empty exclusion = %q, want empty", got)
	}
	a := ExclusionSignature([]string{"food", "transport"})
	b := ExclusionSignature([]string{"transport", "food"})
	if a != b {
		t.Fatal("exclusion signature must be order independent")
	}
	if c := ExclusionSignature([]string{"food"}); c == a {
		t.Fatal("different exclusion sets must differ")
	}
}
