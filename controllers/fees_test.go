package controllers

import (
	"strings"
	"testing"

	"edumesh/models"

	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

func TestSummarizeFees(t *testing.T) {
	fees := []models.Fee{
		{Amount: 1000, Status: models.FeeStatusPaid},
		{Amount: 2500, Status: models.FeeStatusPending},
		{Amount: 500, Status: models.FeeStatusOverdue},
		{Amount: 750, Status: models.FeeStatusPaid},
		{Amount: 9999, Status: models.FeeStatusCancelled},
	}

	s := SummarizeFees(fees)

	if s.TotalCount != 4 {
		t.Errorf("cancelled fees must be excluded; got total count %d", s.TotalCount)
	}
	if s.TotalAmount != 4750 {
		t.Errorf("expected total 4750, got %.2f", s.TotalAmount)
	}
	if s.PaidAmount != 1750 || s.PaidCount != 2 {
		t.Errorf("unexpected paid totals: %.2f / %d", s.PaidAmount, s.PaidCount)
	}
	if s.PendingAmount != 2500 || s.PendingCount != 1 {
		t.Errorf("unexpected pending totals: %.2f / %d", s.PendingAmount, s.PendingCount)
	}
	if s.OverdueAmount != 500 || s.OverdueCount != 1 {
		t.Errorf("unexpected overdue totals: %.2f / %d", s.OverdueAmount, s.OverdueCount)
	}
}

func TestPayableFeeGuardsOnStatus(t *testing.T) {
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}

	stmt := payableFee(db.Session(&gorm.Session{DryRun: true}).Model(&models.Fee{}), 7).
		Updates(map[string]interface{}{"status": models.FeeStatusPaid}).Statement
	sql := stmt.SQL.String()

	if !strings.HasPrefix(sql, "UPDATE") {
		t.Fatalf("expected an UPDATE, got: %s", sql)
	}
	if !strings.Contains(sql, "status IN") {
		t.Fatalf("payment must be guarded on current status, got: %s", sql)
	}
	for _, want := range []interface{}{models.FeeStatusPending, models.FeeStatusOverdue} {
		found := false
		for _, v := range stmt.Vars {
			if v == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("guard should accept status %v, vars: %v", want, stmt.Vars)
		}
	}
	// The guard binds exactly the id and the two payable statuses; a wider
	// IN list would make settled fees payable again.
	whereAt := strings.Index(sql, "WHERE")
	if whereAt < 0 {
		t.Fatalf("update carries no guard: %s", sql)
	}
	if got := strings.Count(sql[whereAt:], "?"); got != 3 {
		t.Errorf("expected 3 bound guard values, got %d in: %s", got, sql[whereAt:])
	}
}

func TestSummarizeFeesEmpty(t *testing.T) {
	s := SummarizeFees(nil)
	if s.TotalAmount != 0 || s.TotalCount != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
}
