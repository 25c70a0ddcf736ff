package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Brownbull/gabeda-backend/internal/entity"
)

// RawTable is a parsed CSV: a header plus string-valued rows.
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// ReadCSV parses an uploaded file into a RawTable. An empty file, or one
// with a header but no data rows, is a structural error.
func ReadCSV(r io.Reader) (*RawTable, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("file has a header but no data rows")
	}

	return &RawTable{Columns: header, Rows: rows}, nil
}

// NormalizationError is a structural failure of the whole file: required
// source columns the schema declares but the CSV does not have. All missing
// names are reported together.
type NormalizationError struct {
	MissingColumns []string
}

func (e *NormalizationError) Error() string {
	return "missing required source columns: " + strings.Join(e.MissingColumns, ", ")
}

// Normalize applies a resolved schema to a raw table and produces canonical
// transactions for (companyID, uploadID). Required fields whose source
// column is absent fail the whole batch; optional fields with no matching
// column are left unset. Rows with quantity zero get unit price zero.
func Normalize(table *RawTable, schema ColumnSchema, companyID, uploadID uuid.UUID) ([]entity.Transaction, error) {
	index := make(map[string]int, len(table.Columns))
	for i, name := range table.Columns {
		index[name] = i
	}

	fieldIdx := make(map[string]int, len(schema))
	var missing []string
	for _, field := range requiredFields {
		spec, ok := schema[field]
		if !ok {
			missing = append(missing, field)
			continue
		}
		col, ok := index[spec.SourceColumn]
		if !ok {
			missing = append(missing, spec.SourceColumn)
			continue
		}
		fieldIdx[field] = col
	}
	if len(missing) > 0 {
		return nil, &NormalizationError{MissingColumns: missing}
	}
	for _, field := range optionalFields {
		spec, ok := schema[field]
		if !ok {
			continue
		}
		if col, ok := index[spec.SourceColumn]; ok {
			fieldIdx[field] = col
		}
	}

	dateFormat := schema[FieldTransactionDate].Format
	if dateFormat == "" {
		dateFormat = DefaultDateFormat
	}

	cell := func(row []string, field string) (string, bool) {
		col, ok := fieldIdx[field]
		if !ok || col >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[col]), true
	}

	transactions := make([]entity.Transaction, 0, len(table.Rows))
	for i, row := range table.Rows {
		rowNum := i + 2 // 1-based, after the header

		rawDate, _ := cell(row, FieldTransactionDate)
		date, err := time.Parse(dateFormat, rawDate)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date %q: %w", rowNum, rawDate, err)
		}

		rawQty, _ := cell(row, FieldQuantity)
		quantity, err := strconv.ParseFloat(rawQty, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid quantity %q: %w", rowNum, rawQty, err)
		}

		rawTotal, _ := cell(row, FieldRevenueTotal)
		total, err := strconv.ParseFloat(rawTotal, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid revenue total %q: %w", rowNum, rawTotal, err)
		}

		// Zero quantity means zero unit price, never a division error.
		unitPrice := 0.0
		if quantity > 0 {
			unitPrice = total / quantity
		}

		txID, _ := cell(row, FieldTransactionID)
		if txID == "" {
			return nil, fmt.Errorf("row %d: empty transaction id", rowNum)
		}
		productID, _ := cell(row, FieldProductID)

		tx := entity.Transaction{
			CompanyID:     companyID,
			UploadID:      uploadID,
			TransactionID: txID,
			Date:          date,
			ProductID:     productID,
			Quantity:      quantity,
			UnitPrice:     unitPrice,
			Total:         total,
		}

		if desc, ok := cell(row, FieldProductDescription); ok {
			tx.ProductDescription = desc
		}
		if rawCost, ok := cell(row, FieldCost); ok && rawCost != "" {
			cost, err := strconv.ParseFloat(rawCost, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid cost %q: %w", rowNum, rawCost, err)
			}
			tx.Cost = &cost
		}
		if customer, ok := cell(row, FieldCustomerID); ok {
			tx.CustomerID = customer
		}
		if category, ok := cell(row, FieldCategory); ok {
			tx.Category = category
		}

		// An explicit hour column wins over the parsed timestamp.
		hour := date.Hour()
		if rawHour, ok := cell(row, FieldHour); ok && rawHour != "" {
			h, err := strconv.Atoi(rawHour)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid hour %q: %w", rowNum, rawHour, err)
			}
			hour = h
		}
		weekday := (int(date.Weekday()) + 6) % 7 // Monday=0
		month := int(date.Month())
		tx.Hour = &hour
		tx.Weekday = &weekday
		tx.Month = &month

		transactions = append(transactions, tx)
	}

	return transactions, nil
}
