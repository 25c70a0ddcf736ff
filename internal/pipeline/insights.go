package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Brownbull/gabeda-backend/internal/entity"
)

// InsightParams carries the tunable analysis settings from the company row.
type InsightParams struct {
	TopProductsThreshold float64
	DeadStockDays        int
	Currency             string
}

var (
	rolesManagement = []string{entity.RoleAdmin, entity.RoleBusinessOwner}
	rolesOperations = []string{entity.RoleAdmin, entity.RoleOperationsManager}
	rolesInventory  = []string{entity.RoleAdmin, entity.RoleBusinessOwner, entity.RoleOperationsManager}
)

// DeriveInsights turns the raw transactions and the completed model attrs
// into business-level analytics rows: KPIs, a Pareto breakdown, dead stock,
// peak selling hours and alerts. Models that failed simply contribute no
// insight; the derivation never errors on missing deps.
func DeriveInsights(companyID, uploadID uuid.UUID, txs []entity.Transaction, frames map[string]*Frame, params InsightParams) ([]entity.AnalyticsResult, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	var out []entity.AnalyticsResult
	analysisDate := latestDate(txs)

	kpi, err := buildKPI(companyID, uploadID, txs, params, analysisDate)
	if err != nil {
		return nil, err
	}
	out = append(out, *kpi)

	if pareto, err := buildPareto(companyID, uploadID, txs, params, analysisDate); err != nil {
		return nil, err
	} else if pareto != nil {
		out = append(out, *pareto)
	}

	if inventory, err := buildDeadStock(companyID, uploadID, txs, params, analysisDate); err != nil {
		return nil, err
	} else if inventory != nil {
		out = append(out, *inventory)
	}

	if daily, ok := frames[ModelDailyHour]; ok {
		peak, err := buildPeakTimes(companyID, uploadID, daily, analysisDate)
		if err != nil {
			return nil, err
		}
		if peak != nil {
			out = append(out, *peak)
		}
	}

	alerts, err := buildAlerts(companyID, uploadID, txs, analysisDate)
	if err != nil {
		return nil, err
	}
	out = append(out, alerts...)

	return out, nil
}

func buildKPI(companyID, uploadID uuid.UUID, txs []entity.Transaction, params InsightParams, analysisDate time.Time) (*entity.AnalyticsResult, error) {
	var revenue, quantity float64
	for _, tx := range txs {
		revenue += tx.Total
		quantity += tx.Quantity
	}
	avg := 0.0
	if len(txs) > 0 {
		avg = revenue / float64(len(txs))
	}
	value := map[string]interface{}{
		"total_revenue":      revenue,
		"total_transactions": len(txs),
		"avg_transaction":    avg,
		"total_quantity":     quantity,
		"currency":           params.Currency,
	}
	return newAnalytics(companyID, uploadID, entity.AnalyticsKindKPI, "Sales overview", value, nil, analysisDate)
}

type productShare struct {
	ProductID   string  `json:"product_id"`
	Description string  `json:"description"`
	Revenue     float64 `json:"revenue"`
	Share       float64 `json:"share"`
}

func buildPareto(companyID, uploadID uuid.UUID, txs []entity.Transaction, params InsightParams, analysisDate time.Time) (*entity.AnalyticsResult, error) {
	revenueByProduct := make(map[string]*productShare)
	var total float64
	for _, tx := range txs {
		p, ok := revenueByProduct[tx.ProductID]
		if !ok {
			p = &productShare{ProductID: tx.ProductID, Description: tx.ProductDescription}
			revenueByProduct[tx.ProductID] = p
		}
		p.Revenue += tx.Total
		total += tx.Total
	}
	if total <= 0 {
		return nil, nil
	}

	products := make([]productShare, 0, len(revenueByProduct))
	for _, id := range sortedKeys(revenueByProduct) {
		products = append(products, *revenueByProduct[id])
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Revenue > products[j].Revenue
	})

	threshold := params.TopProductsThreshold
	if threshold <= 0 {
		threshold = 0.20
	}
	topCount := int(float64(len(products)) * threshold)
	if topCount < 1 {
		topCount = 1
	}

	var topRevenue float64
	for i := range products {
		products[i].Share = products[i].Revenue / total
		if i < topCount {
			topRevenue += products[i].Revenue
		}
	}

	value := map[string]interface{}{
		"threshold":         threshold,
		"top_count":         topCount,
		"product_count":     len(products),
		"top_revenue_share": topRevenue / total,
		"top_products":      products[:topCount],
	}
	return newAnalytics(companyID, uploadID, entity.AnalyticsKindPareto, "Top products by revenue", value, nil, analysisDate)
}

func buildDeadStock(companyID, uploadID uuid.UUID, txs []entity.Transaction, params InsightParams, analysisDate time.Time) (*entity.AnalyticsResult, error) {
	lastSold := make(map[string]time.Time)
	descriptions := make(map[string]string)
	for _, tx := range txs {
		if tx.Date.After(lastSold[tx.ProductID]) {
			lastSold[tx.ProductID] = tx.Date
		}
		if descriptions[tx.ProductID] == "" {
			descriptions[tx.ProductID] = tx.ProductDescription
		}
	}

	days := params.DeadStockDays
	if days <= 0 {
		days = 30
	}
	cutoff := analysisDate.AddDate(0, 0, -days)

	type deadProduct struct {
		ProductID    string `json:"product_id"`
		Description  string `json:"description"`
		LastSoldDate string `json:"last_sold_date"`
		DaysInactive int    `json:"days_inactive"`
	}
	var dead []deadProduct
	for _, id := range sortedKeys(lastSold) {
		last := lastSold[id]
		if last.Before(cutoff) {
			dead = append(dead, deadProduct{
				ProductID:    id,
				Description:  descriptions[id],
				LastSoldDate: last.Format(dateKey),
				DaysInactive: int(analysisDate.Sub(last).Hours() / 24),
			})
		}
	}
	if len(dead) == 0 {
		return nil, nil
	}

	value := map[string]interface{}{
		"dead_stock_days": days,
		"product_count":   len(dead),
		"products":        dead,
	}
	return newAnalytics(companyID, uploadID, entity.AnalyticsKindInventory, "Dead stock", value, rolesInventory, analysisDate)
}

func buildPeakTimes(companyID, uploadID uuid.UUID, dailyHour *Frame, analysisDate time.Time) (*entity.AnalyticsResult, error) {
	type hourTotal struct {
		Hour         int     `json:"hour"`
		Transactions int     `json:"transactions"`
		Revenue      float64 `json:"revenue"`
	}
	totals := make(map[int]*hourTotal)
	for _, row := range dailyHour.Rows {
		hour := toInt(row["hour"])
		t, ok := totals[hour]
		if !ok {
			t = &hourTotal{Hour: hour}
			totals[hour] = t
		}
		t.Transactions += toInt(row["transactions"])
		t.Revenue += toFloat(row["revenue"])
	}
	if len(totals) == 0 {
		return nil, nil
	}

	hours := make([]hourTotal, 0, len(totals))
	for _, t := range totals {
		hours = append(hours, *t)
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].Hour < hours[j].Hour })

	peak := hours[0]
	for _, h := range hours[1:] {
		if h.Revenue > peak.Revenue {
			peak = h
		}
	}

	value := map[string]interface{}{
		"peak_hour":    peak.Hour,
		"peak_revenue": peak.Revenue,
		"by_hour":      hours,
	}
	return newAnalytics(companyID, uploadID, entity.AnalyticsKindPeakTimes, "Peak selling hours", value, rolesOperations, analysisDate)
}

func buildAlerts(companyID, uploadID uuid.UUID, txs []entity.Transaction, analysisDate time.Time) ([]entity.AnalyticsResult, error) {
	var zeroQuantity, missingCustomer int
	for _, tx := range txs {
		if tx.Quantity == 0 {
			zeroQuantity++
		}
		if tx.CustomerID == "" {
			missingCustomer++
		}
	}

	var out []entity.AnalyticsResult
	if zeroQuantity > 0 {
		value := map[string]interface{}{
			"kind":  "zero_quantity_transactions",
			"count": zeroQuantity,
			"total": len(txs),
		}
		alert, err := newAnalytics(companyID, uploadID, entity.AnalyticsKindAlert,
			fmt.Sprintf("%d transactions with zero quantity", zeroQuantity), value, rolesManagement, analysisDate)
		if err != nil {
			return nil, err
		}
		out = append(out, *alert)
	}
	if missingCustomer > len(txs)/2 {
		value := map[string]interface{}{
			"kind":  "missing_customer_ids",
			"count": missingCustomer,
			"total": len(txs),
		}
		alert, err := newAnalytics(companyID, uploadID, entity.AnalyticsKindAlert,
			"Most transactions are missing a customer id", value, rolesManagement, analysisDate)
		if err != nil {
			return nil, err
		}
		out = append(out, *alert)
	}
	return out, nil
}

func newAnalytics(companyID, uploadID uuid.UUID, kind, title string, value map[string]interface{}, roles []string, analysisDate time.Time) (*entity.AnalyticsResult, error) {
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding %s value: %w", kind, err)
	}
	result := &entity.AnalyticsResult{
		CompanyID:    companyID,
		UploadID:     uploadID,
		ResultType:   kind,
		Title:        title,
		Value:        valueJSON,
		AnalysisDate: &analysisDate,
	}
	if len(roles) > 0 {
		rolesJSON, err := json.Marshal(roles)
		if err != nil {
			return nil, fmt.Errorf("encoding %s roles: %w", kind, err)
		}
		result.VisibleToRoles = rolesJSON
	}
	return result, nil
}

func latestDate(txs []entity.Transaction) time.Time {
	var latest time.Time
	for _, tx := range txs {
		if tx.Date.After(latest) {
			latest = tx.Date
		}
	}
	return latest
}
