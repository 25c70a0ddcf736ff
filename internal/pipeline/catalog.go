package pipeline

import "github.com/Brownbull/gabeda-backend/internal/entity"

// Model names in the fixed catalog.
const (
	ModelTransactions    = "transactions"
	ModelDaily           = "daily"
	ModelDailyHour       = "daily_hour"
	ModelWeekly          = "weekly"
	ModelMonthly         = "monthly"
	ModelProductDaily    = "product_daily"
	ModelProductMonth    = "product_month"
	ModelCustomerDaily   = "customer_daily"
	ModelCustomerProfile = "customer_profile"
)

// ModelInput is what a model body may read: the canonical transactions of
// the upload plus the attrs frames of its declared dependencies. Nothing
// else — models never see outputs of models later in the order.
type ModelInput struct {
	Transactions []entity.Transaction
	Deps         map[string]*Frame
}

// ModelFunc computes a model's filters and attrs frames. Either frame may
// be nil, but never both.
type ModelFunc func(in *ModelInput) (filters, attrs *Frame, err error)

// ModelSpec is one catalog entry: a name, the names it depends on, and the
// body the executor invokes.
type ModelSpec struct {
	Name      string
	DependsOn []string
	Run       ModelFunc
}

// Catalog returns the model catalog in declared order. The dependency
// edges are kept as data so the DAG can become tenant-configurable without
// touching the resolver.
func Catalog() []ModelSpec {
	return []ModelSpec{
		{Name: ModelTransactions, Run: runTransactions},
		{Name: ModelDaily, DependsOn: []string{ModelTransactions}, Run: runDaily},
		{Name: ModelDailyHour, DependsOn: []string{ModelTransactions}, Run: runDailyHour},
		{Name: ModelWeekly, DependsOn: []string{ModelDaily}, Run: runWeekly},
		{Name: ModelMonthly, DependsOn: []string{ModelDaily}, Run: runMonthly},
		{Name: ModelProductDaily, DependsOn: []string{ModelTransactions}, Run: runProductDaily},
		{Name: ModelProductMonth, DependsOn: []string{ModelProductDaily}, Run: runProductMonth},
		{Name: ModelCustomerDaily, DependsOn: []string{ModelTransactions}, Run: runCustomerDaily},
		{Name: ModelCustomerProfile, DependsOn: []string{ModelCustomerDaily}, Run: runCustomerProfile},
	}
}

// CatalogNames returns every model name in declared order.
func CatalogNames() []string {
	specs := Catalog()
	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.Name
	}
	return names
}
