package pipeline

import (
	"errors"
	"reflect"
	"testing"
)

func indexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}

func TestResolveOrderFullCatalog(t *testing.T) {
	order, err := ResolveOrder(nil)
	if err != nil {
		t.Fatalf("ResolveOrder(nil) returned error: %v", err)
	}
	if len(order) != len(CatalogNames()) {
		t.Fatalf("got %d models, want the full catalog of %d", len(order), len(CatalogNames()))
	}
	for _, spec := range Catalog() {
		for _, dep := range spec.DependsOn {
			if indexOf(order, dep) > indexOf(order, spec.Name) {
				t.Errorf("%s ordered before its dependency %s", spec.Name, dep)
			}
		}
	}
}

func TestResolveOrderPullsDependencies(t *testing.T) {
	order, err := ResolveOrder([]string{ModelWeekly})
	if err != nil {
		t.Fatalf("ResolveOrder returned error: %v", err)
	}
	want := []string{ModelTransactions, ModelDaily, ModelWeekly}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestResolveOrderDeterministic(t *testing.T) {
	a, err := ResolveOrder([]string{ModelMonthly, ModelCustomerProfile, ModelWeekly})
	if err != nil {
		t.Fatalf("ResolveOrder returned error: %v", err)
	}
	b, err := ResolveOrder([]string{ModelWeekly, ModelMonthly, ModelCustomerProfile})
	if err != nil {
		t.Fatalf("ResolveOrder returned error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("order depends on request order: %v vs %v", a, b)
	}
}

func TestResolveOrderUnknownModels(t *testing.T) {
	_, err := ResolveOrder([]string{ModelDaily, "velocity", "churn"})
	var uerr *UnknownModelsError
	if !errors.As(err, &uerr) {
		t.Fatalf("ResolveOrder returned %v, want *UnknownModelsError", err)
	}
	if !reflect.DeepEqual(uerr.Names, []string{"churn", "velocity"}) {
		t.Errorf("Names = %v, want [churn velocity]", uerr.Names)
	}
}
