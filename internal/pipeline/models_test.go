package pipeline

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Brownbull/gabeda-backend/internal/entity"
)

func testTransactions(t *testing.T) []entity.Transaction {
	t.Helper()
	data := "trans_id,fecha,producto,glosa,cantidad,total,hora,customer_id\n" +
		"T-1,2026-03-02,P-10,Cafe Grano,2,5000,9,C-1\n" +
		"T-2,2026-03-02,P-11,Te Verde,1,1500,9,C-2\n" +
		"T-3,2026-03-02,P-10,Cafe Grano,1,2500,18,C-1\n" +
		"T-4,2026-03-03,P-10,Cafe Grano,4,10000,10,\n" +
		"T-5,2026-04-01,P-11,Te Verde,2,3000,12,C-1\n"
	txs, err := Normalize(mustReadCSV(t, data), DefaultSchema(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	return txs
}

func runCatalogModel(t *testing.T, name string, in *ModelInput) (*Frame, *Frame) {
	t.Helper()
	for _, spec := range Catalog() {
		if spec.Name == name {
			filters, attrs, err := spec.Run(in)
			if err != nil {
				t.Fatalf("%s returned error: %v", name, err)
			}
			return filters, attrs
		}
	}
	t.Fatalf("model %s not in catalog", name)
	return nil, nil
}

func TestTransactionsModelFlags(t *testing.T) {
	txs := testTransactions(t)
	filters, attrs := runCatalogModel(t, ModelTransactions, &ModelInput{Transactions: txs})

	if attrs.RowCount() != 5 {
		t.Errorf("attrs rows = %d, want 5", attrs.RowCount())
	}
	if filters.RowCount() != 5 {
		t.Errorf("filters rows = %d, want 5", filters.RowCount())
	}
	// T-4 has no customer id.
	row := filters.Rows[3]
	if row["transaction_id"] != "T-4" || row["missing_customer"] != true {
		t.Errorf("filters row 3 = %v, want T-4 flagged missing_customer", row)
	}
	if filters.Rows[0]["missing_customer"] != false {
		t.Errorf("T-1 flagged missing_customer, customer is present")
	}
}

func TestDailyModelAggregates(t *testing.T) {
	txs := testTransactions(t)
	_, attrs := runCatalogModel(t, ModelDaily, &ModelInput{Transactions: txs})

	if attrs.RowCount() != 3 {
		t.Fatalf("daily rows = %d, want 3", attrs.RowCount())
	}
	first := attrs.Rows[0]
	if first["date"] != "2026-03-02" {
		t.Fatalf("first day = %v, want 2026-03-02 (sorted)", first["date"])
	}
	if first["transactions"] != 3 || first["units"] != 4.0 || first["revenue"] != 9000.0 {
		t.Errorf("2026-03-02 = %v, want 3 transactions, 4 units, 9000 revenue", first)
	}
	if first["avg_ticket"] != 3000.0 {
		t.Errorf("avg_ticket = %v, want 3000", first["avg_ticket"])
	}
}

func TestDailyHourModelSplitsHours(t *testing.T) {
	txs := testTransactions(t)
	_, attrs := runCatalogModel(t, ModelDailyHour, &ModelInput{Transactions: txs})

	// 2026-03-02 splits into hours 9 and 18.
	if attrs.RowCount() != 4 {
		t.Fatalf("daily_hour rows = %d, want 4", attrs.RowCount())
	}
	first := attrs.Rows[0]
	if first["date"] != "2026-03-02" || first["hour"] != 9 {
		t.Fatalf("first bucket = %v, want 2026-03-02 hour 9", first)
	}
	if first["transactions"] != 2 || first["revenue"] != 6500.0 {
		t.Errorf("hour 9 bucket = %v, want 2 transactions, 6500 revenue", first)
	}
}

func TestMonthlyRollsUpDaily(t *testing.T) {
	txs := testTransactions(t)
	_, daily := runCatalogModel(t, ModelDaily, &ModelInput{Transactions: txs})
	_, attrs := runCatalogModel(t, ModelMonthly, &ModelInput{Deps: map[string]*Frame{ModelDaily: daily}})

	if attrs.RowCount() != 2 {
		t.Fatalf("monthly rows = %d, want 2", attrs.RowCount())
	}
	march := attrs.Rows[0]
	if march["month"] != "2026-03" {
		t.Fatalf("first month = %v, want 2026-03", march["month"])
	}
	if march["days"] != 2 || march["revenue"] != 19000.0 {
		t.Errorf("2026-03 = %v, want 2 days, 19000 revenue", march)
	}
	if march["avg_daily_revenue"] != 9500.0 {
		t.Errorf("avg_daily_revenue = %v, want 9500", march["avg_daily_revenue"])
	}
}

func TestWeeklyUsesISOWeeks(t *testing.T) {
	txs := testTransactions(t)
	_, daily := runCatalogModel(t, ModelDaily, &ModelInput{Transactions: txs})
	_, attrs := runCatalogModel(t, ModelWeekly, &ModelInput{Deps: map[string]*Frame{ModelDaily: daily}})

	if attrs.RowCount() != 2 {
		t.Fatalf("weekly rows = %d, want 2", attrs.RowCount())
	}
	year, week := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC).ISOWeek()
	wantKey := "2026-W10"
	if year != 2026 || week != 10 {
		t.Fatalf("test premise wrong: 2026-03-02 ISO week = %d-W%d", year, week)
	}
	if attrs.Rows[0]["week"] != wantKey {
		t.Errorf("first week = %v, want %s", attrs.Rows[0]["week"], wantKey)
	}
}

func TestProductMonthRollsUpProductDaily(t *testing.T) {
	txs := testTransactions(t)
	_, productDaily := runCatalogModel(t, ModelProductDaily, &ModelInput{Transactions: txs})
	_, attrs := runCatalogModel(t, ModelProductMonth, &ModelInput{Deps: map[string]*Frame{ModelProductDaily: productDaily}})

	// P-10 March, P-11 March, P-11 April.
	if attrs.RowCount() != 3 {
		t.Fatalf("product_month rows = %d, want 3", attrs.RowCount())
	}
	p10 := attrs.Rows[0]
	if p10["product_id"] != "P-10" || p10["month"] != "2026-03" {
		t.Fatalf("first row = %v, want P-10 2026-03", p10)
	}
	if p10["active_days"] != 2 || p10["revenue"] != 17500.0 || p10["units"] != 7.0 {
		t.Errorf("P-10 2026-03 = %v, want 2 active days, 7 units, 17500 revenue", p10)
	}
	if p10["product_description"] != "Cafe Grano" {
		t.Errorf("description = %v, want Cafe Grano", p10["product_description"])
	}
}

func TestCustomerDailySkipsAnonymous(t *testing.T) {
	txs := testTransactions(t)
	_, attrs := runCatalogModel(t, ModelCustomerDaily, &ModelInput{Transactions: txs})

	// T-4 has no customer and contributes nothing.
	for _, row := range attrs.Rows {
		if row["customer_id"] == "" {
			t.Fatalf("customer_daily produced an anonymous bucket: %v", row)
		}
	}
	if attrs.RowCount() != 3 {
		t.Errorf("customer_daily rows = %d, want 3 (C-1 twice, C-2 once)", attrs.RowCount())
	}
}

func TestCustomerProfileSpan(t *testing.T) {
	txs := testTransactions(t)
	_, customerDaily := runCatalogModel(t, ModelCustomerDaily, &ModelInput{Transactions: txs})
	filters, attrs := runCatalogModel(t, ModelCustomerProfile, &ModelInput{Deps: map[string]*Frame{ModelCustomerDaily: customerDaily}})

	if attrs.RowCount() != 2 {
		t.Fatalf("customer_profile rows = %d, want 2", attrs.RowCount())
	}
	c1 := attrs.Rows[0]
	if c1["customer_id"] != "C-1" {
		t.Fatalf("first profile = %v, want C-1", c1)
	}
	if c1["first_date"] != "2026-03-02" || c1["last_date"] != "2026-04-01" {
		t.Errorf("C-1 span = %v..%v, want 2026-03-02..2026-04-01", c1["first_date"], c1["last_date"])
	}
	if c1["transactions"] != 3 || c1["active_days"] != 2 {
		t.Errorf("C-1 = %v, want 3 transactions over 2 active days", c1)
	}

	if filters.Rows[1]["customer_id"] != "C-2" || filters.Rows[1]["one_time_buyer"] != true {
		t.Errorf("C-2 filters = %v, want one_time_buyer", filters.Rows[1])
	}
}
