package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func mustReadCSV(t *testing.T, data string) *RawTable {
	t.Helper()
	table, err := ReadCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadCSV returned error: %v", err)
	}
	return table
}

func TestReadCSVRejectsEmptyInput(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); err == nil {
		t.Error("ReadCSV accepted an empty file")
	}
	if _, err := ReadCSV(strings.NewReader("fecha,trans_id,producto\n")); err == nil {
		t.Error("ReadCSV accepted a header-only file")
	}
}

func TestNormalizeSixColumnExport(t *testing.T) {
	// The common POS export: six columns, no cost, customer or hour.
	data := "trans_id,fecha,producto,glosa,cantidad,total\n" +
		"T-1,2026-03-02,P-10,Cafe Grano,2,5000\n" +
		"T-2,2026-03-02,P-11,Te Verde,3,4500\n" +
		"T-3,2026-03-03,P-10,Cafe Grano,1,2500\n"

	companyID, uploadID := uuid.New(), uuid.New()
	txs, err := Normalize(mustReadCSV(t, data), DefaultSchema(), companyID, uploadID)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txs))
	}

	first := txs[0]
	if first.CompanyID != companyID || first.UploadID != uploadID {
		t.Error("transaction not stamped with company and upload ids")
	}
	if first.TransactionID != "T-1" || first.ProductID != "P-10" {
		t.Errorf("identity columns = (%s, %s), want (T-1, P-10)", first.TransactionID, first.ProductID)
	}
	if first.UnitPrice != 2500 {
		t.Errorf("unit price = %v, want 2500", first.UnitPrice)
	}
	if txs[1].UnitPrice != 1500 {
		t.Errorf("unit price = %v, want 1500", txs[1].UnitPrice)
	}
	if first.Cost != nil {
		t.Error("cost should be unset when the export has no costo column")
	}
	if first.CustomerID != "" {
		t.Errorf("customer id = %q, want empty", first.CustomerID)
	}
	// 2026-03-02 is a Monday.
	if first.Weekday == nil || *first.Weekday != 0 {
		t.Errorf("weekday = %v, want 0 (Monday)", first.Weekday)
	}
	if first.Hour == nil || *first.Hour != 0 {
		t.Errorf("hour = %v, want 0 from a date-only column", first.Hour)
	}
	if first.Month == nil || *first.Month != 3 {
		t.Errorf("month = %v, want 3", first.Month)
	}
}

func TestNormalizeZeroQuantity(t *testing.T) {
	data := "trans_id,fecha,producto,glosa,cantidad,total\n" +
		"T-1,2026-03-02,P-10,Cafe Grano,0,0\n"

	txs, err := Normalize(mustReadCSV(t, data), DefaultSchema(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if txs[0].UnitPrice != 0 {
		t.Errorf("unit price = %v, want 0 for zero quantity", txs[0].UnitPrice)
	}
}

func TestNormalizeExplicitHourWins(t *testing.T) {
	data := "trans_id,fecha,producto,glosa,cantidad,total,hora\n" +
		"T-1,2026-03-02,P-10,Cafe Grano,1,2500,18\n"

	txs, err := Normalize(mustReadCSV(t, data), DefaultSchema(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if txs[0].Hour == nil || *txs[0].Hour != 18 {
		t.Errorf("hour = %v, want 18 from the hora column", txs[0].Hour)
	}
}

func TestNormalizeMissingRequiredColumns(t *testing.T) {
	data := "trans_id,producto\nT-1,P-10\n"

	_, err := Normalize(mustReadCSV(t, data), DefaultSchema(), uuid.New(), uuid.New())
	var nerr *NormalizationError
	if !errors.As(err, &nerr) {
		t.Fatalf("Normalize returned %v, want *NormalizationError", err)
	}
	want := []string{"fecha", "cantidad", "total"}
	if !reflect.DeepEqual(nerr.MissingColumns, want) {
		t.Errorf("MissingColumns = %v, want %v", nerr.MissingColumns, want)
	}
}

func TestNormalizeReportsRowOfBadValue(t *testing.T) {
	data := "trans_id,fecha,producto,glosa,cantidad,total\n" +
		"T-1,2026-03-02,P-10,Cafe Grano,1,2500\n" +
		"T-2,2026-03-02,P-11,Te Verde,dos,4500\n"

	_, err := Normalize(mustReadCSV(t, data), DefaultSchema(), uuid.New(), uuid.New())
	if err == nil {
		t.Fatal("Normalize accepted a non-numeric quantity")
	}
	if !strings.Contains(err.Error(), "row 3") {
		t.Errorf("error %q does not name row 3", err.Error())
	}
}

func TestNormalizeCustomDateFormat(t *testing.T) {
	schema := DefaultSchema()
	spec := schema[FieldTransactionDate]
	spec.Format = "02/01/2006"
	schema[FieldTransactionDate] = spec

	data := "trans_id,fecha,producto,glosa,cantidad,total\n" +
		"T-1,02/03/2026,P-10,Cafe Grano,1,2500\n"

	txs, err := Normalize(mustReadCSV(t, data), schema, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if got := txs[0].Date.Format("2006-01-02"); got != "2026-03-02" {
		t.Errorf("date = %s, want 2026-03-02", got)
	}
}

func TestNormalizeThreeRowCatalogExport(t *testing.T) {
	data := "trans_id,fecha,producto,glosa,cantidad,total\n" +
		`1,2025-01-01,SKU001,"Product 1",5,100.00` + "\n" +
		`2,2025-01-02,SKU002,"Product 2",3,75.50` + "\n" +
		`3,2025-01-03,SKU001,"Product 1",2,40.00` + "\n"

	txs, err := Normalize(mustReadCSV(t, data), DefaultSchema(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txs))
	}
	wantUnitPrices := []float64{20.0, 75.50 / 3, 20.0}
	for i, want := range wantUnitPrices {
		if diff := txs[i].UnitPrice - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("row %d unit price = %v, want %v", i+1, txs[i].UnitPrice, want)
		}
	}

	// Running only the transactions model over this upload completes
	// exactly one model and persists its artifacts.
	order, err := ResolveOrder([]string{ModelTransactions})
	if err != nil {
		t.Fatalf("ResolveOrder returned error: %v", err)
	}
	sink := &memorySink{}
	e := testExecutor(sink, NewMemoryTracker(), nil)
	outcome, err := e.ExecuteAll(context.Background(), uuid.New(), order, txs)
	if err != nil {
		t.Fatalf("ExecuteAll returned error: %v", err)
	}
	if len(outcome.Completed) != 1 || outcome.Completed[0] != ModelTransactions {
		t.Errorf("Completed = %v, want [transactions]", outcome.Completed)
	}
	if len(sink.results) == 0 || len(sink.results) > 2 {
		t.Errorf("%d results persisted, want one or two (filters/attrs)", len(sink.results))
	}
}
