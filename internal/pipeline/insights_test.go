package pipeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Brownbull/gabeda-backend/internal/entity"
)

func defaultParams() InsightParams {
	return InsightParams{TopProductsThreshold: 0.20, DeadStockDays: 30, Currency: "CLP"}
}

func findInsight(results []entity.AnalyticsResult, kind string) *entity.AnalyticsResult {
	for i := range results {
		if results[i].ResultType == kind {
			return &results[i]
		}
	}
	return nil
}

func decodeValue(t *testing.T, r *entity.AnalyticsResult) map[string]interface{} {
	t.Helper()
	var value map[string]interface{}
	if err := json.Unmarshal(r.Value, &value); err != nil {
		t.Fatalf("%s value is not valid JSON: %v", r.ResultType, err)
	}
	return value
}

func TestDeriveInsightsEmptyInput(t *testing.T) {
	results, err := DeriveInsights(uuid.New(), uuid.New(), nil, nil, defaultParams())
	if err != nil {
		t.Fatalf("DeriveInsights returned error: %v", err)
	}
	if results != nil {
		t.Errorf("results = %v, want none for empty input", results)
	}
}

func TestDeriveInsightsKPI(t *testing.T) {
	txs := testTransactions(t)
	results, err := DeriveInsights(uuid.New(), uuid.New(), txs, nil, defaultParams())
	if err != nil {
		t.Fatalf("DeriveInsights returned error: %v", err)
	}

	kpi := findInsight(results, entity.AnalyticsKindKPI)
	if kpi == nil {
		t.Fatal("no kpi insight derived")
	}
	value := decodeValue(t, kpi)
	if value["total_revenue"] != 22000.0 {
		t.Errorf("total_revenue = %v, want 22000", value["total_revenue"])
	}
	if value["total_transactions"] != 5.0 {
		t.Errorf("total_transactions = %v, want 5", value["total_transactions"])
	}
	if value["avg_transaction"] != 4400.0 {
		t.Errorf("avg_transaction = %v, want 4400", value["avg_transaction"])
	}
	if len(kpi.VisibleToRoles) != 0 {
		t.Errorf("kpi roles = %s, want unrestricted", kpi.VisibleToRoles)
	}
	if kpi.AnalysisDate == nil || kpi.AnalysisDate.Format("2006-01-02") != "2026-04-01" {
		t.Errorf("analysis date = %v, want latest transaction date 2026-04-01", kpi.AnalysisDate)
	}
}

func TestDeriveInsightsPareto(t *testing.T) {
	txs := testTransactions(t)
	results, err := DeriveInsights(uuid.New(), uuid.New(), txs, nil, defaultParams())
	if err != nil {
		t.Fatalf("DeriveInsights returned error: %v", err)
	}

	pareto := findInsight(results, entity.AnalyticsKindPareto)
	if pareto == nil {
		t.Fatal("no pareto insight derived")
	}
	value := decodeValue(t, pareto)
	// Two products at a 20% threshold still keeps at least one.
	if value["top_count"] != 1.0 {
		t.Errorf("top_count = %v, want 1", value["top_count"])
	}
	top, ok := value["top_products"].([]interface{})
	if !ok || len(top) != 1 {
		t.Fatalf("top_products = %v, want one entry", value["top_products"])
	}
	leader := top[0].(map[string]interface{})
	if leader["product_id"] != "P-10" {
		t.Errorf("top product = %v, want P-10", leader["product_id"])
	}
	// P-10: 17500 of 22000.
	share := leader["share"].(float64)
	if share < 0.79 || share > 0.80 {
		t.Errorf("P-10 share = %v, want ~0.795", share)
	}
}

func TestDeriveInsightsDeadStock(t *testing.T) {
	// P-OLD last sold 60 days before the latest transaction.
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	txs := []entity.Transaction{
		{TransactionID: "T-1", Date: base.AddDate(0, 0, -60), ProductID: "P-OLD", ProductDescription: "Descontinuado", Quantity: 1, Total: 1000},
		{TransactionID: "T-2", Date: base, ProductID: "P-NEW", Quantity: 1, Total: 2000},
	}
	results, err := DeriveInsights(uuid.New(), uuid.New(), txs, nil, defaultParams())
	if err != nil {
		t.Fatalf("DeriveInsights returned error: %v", err)
	}

	inventory := findInsight(results, entity.AnalyticsKindInventory)
	if inventory == nil {
		t.Fatal("no inventory insight derived")
	}
	value := decodeValue(t, inventory)
	if value["product_count"] != 1.0 {
		t.Errorf("product_count = %v, want 1", value["product_count"])
	}
	products := value["products"].([]interface{})
	dead := products[0].(map[string]interface{})
	if dead["product_id"] != "P-OLD" || dead["days_inactive"] != 60.0 {
		t.Errorf("dead product = %v, want P-OLD at 60 days", dead)
	}

	var roles []string
	if err := json.Unmarshal(inventory.VisibleToRoles, &roles); err != nil {
		t.Fatalf("inventory roles are not valid JSON: %v", err)
	}
	if len(roles) != 3 {
		t.Errorf("inventory roles = %v, want admin, business_owner, operations_manager", roles)
	}
}

func TestDeriveInsightsPeakTimes(t *testing.T) {
	txs := testTransactions(t)
	_, dailyHour := runCatalogModel(t, ModelDailyHour, &ModelInput{Transactions: txs})
	frames := map[string]*Frame{ModelDailyHour: dailyHour}

	results, err := DeriveInsights(uuid.New(), uuid.New(), txs, frames, defaultParams())
	if err != nil {
		t.Fatalf("DeriveInsights returned error: %v", err)
	}

	peak := findInsight(results, entity.AnalyticsKindPeakTimes)
	if peak == nil {
		t.Fatal("no peak_times insight derived")
	}
	value := decodeValue(t, peak)
	// Hour 10 carries the single 10000 transaction.
	if value["peak_hour"] != 10.0 {
		t.Errorf("peak_hour = %v, want 10", value["peak_hour"])
	}

	var roles []string
	if err := json.Unmarshal(peak.VisibleToRoles, &roles); err != nil {
		t.Fatalf("peak_times roles are not valid JSON: %v", err)
	}
	if len(roles) != 2 {
		t.Errorf("peak_times roles = %v, want admin and operations_manager", roles)
	}
}

func TestDeriveInsightsAlerts(t *testing.T) {
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	txs := []entity.Transaction{
		{TransactionID: "T-1", Date: base, ProductID: "P-1", Quantity: 0, Total: 0},
		{TransactionID: "T-2", Date: base, ProductID: "P-1", Quantity: 1, Total: 1000},
	}
	results, err := DeriveInsights(uuid.New(), uuid.New(), txs, nil, defaultParams())
	if err != nil {
		t.Fatalf("DeriveInsights returned error: %v", err)
	}

	alert := findInsight(results, entity.AnalyticsKindAlert)
	if alert == nil {
		t.Fatal("no alert derived for zero-quantity transactions")
	}
	value := decodeValue(t, alert)
	if value["count"] != 1.0 {
		t.Errorf("alert count = %v, want 1", value["count"])
	}

	var roles []string
	if err := json.Unmarshal(alert.VisibleToRoles, &roles); err != nil {
		t.Fatalf("alert roles are not valid JSON: %v", err)
	}
	if len(roles) != 2 {
		t.Errorf("alert roles = %v, want admin and business_owner", roles)
	}
}
