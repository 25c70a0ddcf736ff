package pipeline

import (
	"fmt"
	"sort"
	"time"
)

// Model bodies. Each consumes canonical transactions and/or dependency
// attrs and returns deterministic, sorted frames so previews and tests are
// stable across runs.

const dateKey = "2006-01-02"

func runTransactions(in *ModelInput) (*Frame, *Frame, error) {
	attrs := NewFrame("transaction_id", "date", "product_id", "quantity", "unit_price", "total", "hour", "weekday", "month")
	filters := NewFrame("transaction_id", "zero_quantity", "missing_customer", "missing_cost")

	for _, tx := range in.Transactions {
		row := map[string]interface{}{
			"transaction_id": tx.TransactionID,
			"date":           tx.Date.Format(dateKey),
			"product_id":     tx.ProductID,
			"quantity":       tx.Quantity,
			"unit_price":     tx.UnitPrice,
			"total":          tx.Total,
		}
		if tx.Hour != nil {
			row["hour"] = *tx.Hour
		}
		if tx.Weekday != nil {
			row["weekday"] = *tx.Weekday
		}
		if tx.Month != nil {
			row["month"] = *tx.Month
		}
		attrs.Append(row)

		filters.Append(map[string]interface{}{
			"transaction_id":   tx.TransactionID,
			"zero_quantity":    tx.Quantity == 0,
			"missing_customer": tx.CustomerID == "",
			"missing_cost":     tx.Cost == nil,
		})
	}

	return filters, attrs, nil
}

type dailyBucket struct {
	transactions int
	units        float64
	revenue      float64
}

func runDaily(in *ModelInput) (*Frame, *Frame, error) {
	buckets := make(map[string]*dailyBucket)
	for _, tx := range in.Transactions {
		key := tx.Date.Format(dateKey)
		b, ok := buckets[key]
		if !ok {
			b = &dailyBucket{}
			buckets[key] = b
		}
		b.transactions++
		b.units += tx.Quantity
		b.revenue += tx.Total
	}

	attrs := NewFrame("date", "transactions", "units", "revenue", "avg_ticket")
	for _, key := range sortedKeys(buckets) {
		b := buckets[key]
		avg := 0.0
		if b.transactions > 0 {
			avg = b.revenue / float64(b.transactions)
		}
		attrs.Append(map[string]interface{}{
			"date":         key,
			"transactions": b.transactions,
			"units":        b.units,
			"revenue":      b.revenue,
			"avg_ticket":   avg,
		})
	}
	return nil, attrs, nil
}

func runDailyHour(in *ModelInput) (*Frame, *Frame, error) {
	type hourBucket struct {
		transactions int
		units        float64
		revenue      float64
	}
	buckets := make(map[string]*hourBucket)
	for _, tx := range in.Transactions {
		hour := 0
		if tx.Hour != nil {
			hour = *tx.Hour
		}
		key := fmt.Sprintf("%s %02d", tx.Date.Format(dateKey), hour)
		b, ok := buckets[key]
		if !ok {
			b = &hourBucket{}
			buckets[key] = b
		}
		b.transactions++
		b.units += tx.Quantity
		b.revenue += tx.Total
	}

	attrs := NewFrame("date", "hour", "transactions", "units", "revenue")
	for _, key := range sortedKeys(buckets) {
		b := buckets[key]
		date := key[:10]
		hour := 0
		fmt.Sscanf(key[11:], "%d", &hour)
		attrs.Append(map[string]interface{}{
			"date":         date,
			"hour":         hour,
			"transactions": b.transactions,
			"units":        b.units,
			"revenue":      b.revenue,
		})
	}
	return nil, attrs, nil
}

// rollupDaily regroups the daily attrs frame by a key derived from the
// date column. Weekly and monthly are both thin rollups of daily.
func rollupDaily(daily *Frame, keyName string, keyFn func(date string) string) *Frame {
	type rollupBucket struct {
		days         int
		transactions int
		units        float64
		revenue      float64
	}
	buckets := make(map[string]*rollupBucket)
	for _, row := range daily.Rows {
		date, _ := row["date"].(string)
		key := keyFn(date)
		b, ok := buckets[key]
		if !ok {
			b = &rollupBucket{}
			buckets[key] = b
		}
		b.days++
		b.transactions += toInt(row["transactions"])
		b.units += toFloat(row["units"])
		b.revenue += toFloat(row["revenue"])
	}

	attrs := NewFrame(keyName, "days", "transactions", "units", "revenue", "avg_daily_revenue")
	for _, key := range sortedKeys(buckets) {
		b := buckets[key]
		avg := 0.0
		if b.days > 0 {
			avg = b.revenue / float64(b.days)
		}
		attrs.Append(map[string]interface{}{
			keyName:             key,
			"days":              b.days,
			"transactions":      b.transactions,
			"units":             b.units,
			"revenue":           b.revenue,
			"avg_daily_revenue": avg,
		})
	}
	return attrs
}

func runWeekly(in *ModelInput) (*Frame, *Frame, error) {
	daily, ok := in.Deps[ModelDaily]
	if !ok {
		return nil, nil, fmt.Errorf("weekly requires daily attrs")
	}
	attrs := rollupDaily(daily, "week", func(date string) string {
		t, err := parseDate(date)
		if err != nil {
			return "unknown"
		}
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	})
	return nil, attrs, nil
}

func runMonthly(in *ModelInput) (*Frame, *Frame, error) {
	daily, ok := in.Deps[ModelDaily]
	if !ok {
		return nil, nil, fmt.Errorf("monthly requires daily attrs")
	}
	attrs := rollupDaily(daily, "month", func(date string) string {
		if len(date) >= 7 {
			return date[:7]
		}
		return "unknown"
	})
	return nil, attrs, nil
}

func runProductDaily(in *ModelInput) (*Frame, *Frame, error) {
	type productBucket struct {
		description  string
		transactions int
		units        float64
		revenue      float64
	}
	buckets := make(map[string]*productBucket)
	for _, tx := range in.Transactions {
		key := tx.ProductID + "\x00" + tx.Date.Format(dateKey)
		b, ok := buckets[key]
		if !ok {
			b = &productBucket{description: tx.ProductDescription}
			buckets[key] = b
		}
		b.transactions++
		b.units += tx.Quantity
		b.revenue += tx.Total
	}

	attrs := NewFrame("product_id", "date", "product_description", "transactions", "units", "revenue")
	for _, key := range sortedKeys(buckets) {
		b := buckets[key]
		productID, date := splitKey(key)
		attrs.Append(map[string]interface{}{
			"product_id":          productID,
			"date":                date,
			"product_description": b.description,
			"transactions":        b.transactions,
			"units":               b.units,
			"revenue":             b.revenue,
		})
	}
	return nil, attrs, nil
}

func runProductMonth(in *ModelInput) (*Frame, *Frame, error) {
	productDaily, ok := in.Deps[ModelProductDaily]
	if !ok {
		return nil, nil, fmt.Errorf("product_month requires product_daily attrs")
	}

	type monthBucket struct {
		description string
		activeDays  int
		units       float64
		revenue     float64
	}
	buckets := make(map[string]*monthBucket)
	for _, row := range productDaily.Rows {
		productID, _ := row["product_id"].(string)
		date, _ := row["date"].(string)
		month := "unknown"
		if len(date) >= 7 {
			month = date[:7]
		}
		key := productID + "\x00" + month
		b, ok := buckets[key]
		if !ok {
			desc, _ := row["product_description"].(string)
			b = &monthBucket{description: desc}
			buckets[key] = b
		}
		b.activeDays++
		b.units += toFloat(row["units"])
		b.revenue += toFloat(row["revenue"])
	}

	attrs := NewFrame("product_id", "month", "product_description", "active_days", "units", "revenue")
	for _, key := range sortedKeys(buckets) {
		b := buckets[key]
		productID, month := splitKey(key)
		attrs.Append(map[string]interface{}{
			"product_id":          productID,
			"month":               month,
			"product_description": b.description,
			"active_days":         b.activeDays,
			"units":               b.units,
			"revenue":             b.revenue,
		})
	}
	return nil, attrs, nil
}

func runCustomerDaily(in *ModelInput) (*Frame, *Frame, error) {
	type customerBucket struct {
		transactions int
		units        float64
		revenue      float64
	}
	buckets := make(map[string]*customerBucket)
	for _, tx := range in.Transactions {
		if tx.CustomerID == "" {
			continue
		}
		key := tx.CustomerID + "\x00" + tx.Date.Format(dateKey)
		b, ok := buckets[key]
		if !ok {
			b = &customerBucket{}
			buckets[key] = b
		}
		b.transactions++
		b.units += tx.Quantity
		b.revenue += tx.Total
	}

	attrs := NewFrame("customer_id", "date", "transactions", "units", "revenue")
	for _, key := range sortedKeys(buckets) {
		b := buckets[key]
		customerID, date := splitKey(key)
		attrs.Append(map[string]interface{}{
			"customer_id":  customerID,
			"date":         date,
			"transactions": b.transactions,
			"units":        b.units,
			"revenue":      b.revenue,
		})
	}
	return nil, attrs, nil
}

func runCustomerProfile(in *ModelInput) (*Frame, *Frame, error) {
	customerDaily, ok := in.Deps[ModelCustomerDaily]
	if !ok {
		return nil, nil, fmt.Errorf("customer_profile requires customer_daily attrs")
	}

	type profile struct {
		firstDate    string
		lastDate     string
		activeDays   int
		transactions int
		revenue      float64
	}
	profiles := make(map[string]*profile)
	for _, row := range customerDaily.Rows {
		customerID, _ := row["customer_id"].(string)
		date, _ := row["date"].(string)
		p, ok := profiles[customerID]
		if !ok {
			p = &profile{firstDate: date, lastDate: date}
			profiles[customerID] = p
		}
		if date < p.firstDate {
			p.firstDate = date
		}
		if date > p.lastDate {
			p.lastDate = date
		}
		p.activeDays++
		p.transactions += toInt(row["transactions"])
		p.revenue += toFloat(row["revenue"])
	}

	attrs := NewFrame("customer_id", "first_date", "last_date", "active_days", "transactions", "revenue", "avg_daily_revenue")
	filters := NewFrame("customer_id", "one_time_buyer")
	for _, customerID := range sortedKeys(profiles) {
		p := profiles[customerID]
		avg := 0.0
		if p.activeDays > 0 {
			avg = p.revenue / float64(p.activeDays)
		}
		attrs.Append(map[string]interface{}{
			"customer_id":       customerID,
			"first_date":        p.firstDate,
			"last_date":         p.lastDate,
			"active_days":       p.activeDays,
			"transactions":      p.transactions,
			"revenue":           p.revenue,
			"avg_daily_revenue": avg,
		})
		filters.Append(map[string]interface{}{
			"customer_id":    customerID,
			"one_time_buyer": p.transactions == 1,
		})
	}
	return filters, attrs, nil
}

func parseDate(date string) (time.Time, error) {
	return time.Parse(dateKey, date)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func splitKey(key string) (string, string) {
	for i := 0; i < len(key); i++ {
		if key[i] == 0 {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
