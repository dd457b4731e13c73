package matcher

import (
	"context"
	"reflect"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"bank-ledger-reconciler/internal/models"
)

func createTestLedger() []models.Record {
	return []models.Record{
		rec(0, "2024-01-15", "100.50", "stripe payout"),
		rec(1, "2024-01-10", "250.00", "aws invoice"),
		rec(2, "2024-01-15", "75.25", "client payment"),
		rec(3, "", "10.00", "unknown"),
		rec(4, "2024-01-18", "500.00", "office rent"),
		rec(5, "2024-01-12", "12.00", "coffee"),
	}
}

func TestNewLedgerIndex(t *testing.T) {
	index := NewLedgerIndex(createTestLedger())

	stats := index.GetIndexStats()
	if stats.TotalRecords != 6 {
		t.Errorf("expected 6 records, got %d", stats.TotalRecords)
	}
	if stats.DistinctDates != 4 {
		t.Errorf("expected 4 distinct dates, got %d", stats.DistinctDates)
	}
	if stats.InvalidDates != 1 {
		t.Errorf("expected 1 invalid date, got %d", stats.InvalidDates)
	}

	for i := 1; i < len(index.Dates); i++ {
		if !index.Dates[i-1].Before(index.Dates[i]) {
			t.Fatalf("dates are not sorted: %v", index.Dates)
		}
	}

	jan15 := civil.Date{Year: 2024, Month: time.January, Day: 15}
	if got := index.DateIndex[jan15]; !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("expected positions [0 2] on 2024-01-15, got %v", got)
	}
}

func TestLedgerIndex_GetByDateRange(t *testing.T) {
	index := NewLedgerIndex(createTestLedger())

	tests := []struct {
		name  string
		start civil.Date
		end   civil.Date
		want  []int
	}{
		{"single day", civil.Date{Year: 2024, Month: 1, Day: 15}, civil.Date{Year: 2024, Month: 1, Day: 15}, []int{0, 2}},
		{"window", civil.Date{Year: 2024, Month: 1, Day: 12}, civil.Date{Year: 2024, Month: 1, Day: 18}, []int{0, 2, 4, 5}},
		{"everything", civil.Date{Year: 2023, Month: 1, Day: 1}, civil.Date{Year: 2025, Month: 1, Day: 1}, []int{0, 1, 2, 4, 5}},
		{"nothing", civil.Date{Year: 2024, Month: 2, Day: 1}, civil.Date{Year: 2024, Month: 2, Day: 28}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := index.GetByDateRange(tt.start, tt.end)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GetByDateRange(%s, %s) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestLedgerIndex_GetCandidates(t *testing.T) {
	index := NewLedgerIndex(createTestLedger())

	got := index.GetCandidates(civil.Date{Year: 2024, Month: 1, Day: 13}, 2)
	if !reflect.DeepEqual(got, []int{0, 2, 5}) {
		t.Errorf("expected [0 2 5], got %v", got)
	}

	if got := index.GetCandidates(civil.Date{}, 3); got != nil {
		t.Errorf("an invalid date should have no candidates, got %v", got)
	}

	if got := index.GetCandidates(civil.Date{Year: 2024, Month: 1, Day: 10}, 0); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("zero tolerance should only return same-day positions, got %v", got)
	}
}

func TestLedgerIndex_Empty(t *testing.T) {
	index := NewLedgerIndex(nil)
	if got := index.GetCandidates(civil.Date{Year: 2024, Month: 1, Day: 1}, 3); len(got) != 0 {
		t.Errorf("expected no candidates, got %v", got)
	}
}

func BenchmarkReconcileIndexed(b *testing.B) {
	bank, ledger := generateDataset(42, 2000)
	engine := NewEngine(DefaultThresholds())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = engine.Reconcile(context.Background(), bank, ledger)
	}
}

func BenchmarkReconcileFullScan(b *testing.B) {
	bank, ledger := generateDataset(42, 2000)
	engine := NewEngine(DefaultThresholds(), WithFullScan())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = engine.Reconcile(context.Background(), bank, ledger)
	}
}
