package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// DataType enumerates the column types a tenant schema may declare.
type DataType string

const (
	DataTypeDate    DataType = "date"
	DataTypeString  DataType = "string"
	DataTypeFloat   DataType = "float"
	DataTypeInteger DataType = "integer"
)

// Canonical field names. The pipeline only ever sees these; tenant CSV
// column names are mapped away by the schema resolver.
const (
	FieldTransactionDate    = "transaction_date"
	FieldTransactionID      = "transaction_id"
	FieldProductID          = "product_id"
	FieldProductDescription = "product_description"
	FieldQuantity           = "quantity"
	FieldRevenueTotal       = "revenue_total"
	FieldCost               = "cost"
	FieldCustomerID         = "customer_id"
	FieldCategory           = "category"
	FieldHour               = "hour"
)

// DefaultDateFormat applies when a date column declares no format.
const DefaultDateFormat = "2006-01-02"

// ColumnSpec declares where a canonical field comes from in the tenant CSV.
type ColumnSpec struct {
	SourceColumn string   `json:"source_column"`
	DataType     DataType `json:"data_type"`
	Format       string   `json:"format,omitempty"`
}

// ColumnSchema maps canonical field names to column declarations.
type ColumnSchema map[string]ColumnSpec

// requiredFields must be present and well formed in every schema.
var requiredFields = []string{
	FieldTransactionDate,
	FieldTransactionID,
	FieldProductID,
	FieldQuantity,
	FieldRevenueTotal,
}

var optionalFields = []string{
	FieldProductDescription,
	FieldCost,
	FieldCustomerID,
	FieldCategory,
	FieldHour,
}

var fieldTypes = map[string]DataType{
	FieldTransactionDate:    DataTypeDate,
	FieldTransactionID:      DataTypeString,
	FieldProductID:          DataTypeString,
	FieldProductDescription: DataTypeString,
	FieldQuantity:           DataTypeFloat,
	FieldRevenueTotal:       DataTypeFloat,
	FieldCost:               DataTypeFloat,
	FieldCustomerID:         DataTypeString,
	FieldCategory:           DataTypeString,
	FieldHour:               DataTypeInteger,
}

// DefaultSchema is the documented default mapping, matching the column
// layout of a Chilean retail POS export.
func DefaultSchema() ColumnSchema {
	return ColumnSchema{
		FieldTransactionDate:    {SourceColumn: "fecha", DataType: DataTypeDate, Format: DefaultDateFormat},
		FieldTransactionID:      {SourceColumn: "trans_id", DataType: DataTypeString},
		FieldProductID:          {SourceColumn: "producto", DataType: DataTypeString},
		FieldProductDescription: {SourceColumn: "glosa", DataType: DataTypeString},
		FieldQuantity:           {SourceColumn: "cantidad", DataType: DataTypeFloat},
		FieldRevenueTotal:       {SourceColumn: "total", DataType: DataTypeFloat},
		FieldCost:               {SourceColumn: "costo", DataType: DataTypeFloat},
		FieldCustomerID:         {SourceColumn: "customer_id", DataType: DataTypeString},
		FieldCategory:           {SourceColumn: "category", DataType: DataTypeString},
		FieldHour:               {SourceColumn: "hora", DataType: DataTypeInteger},
	}
}

// RequiredFields returns the canonical fields every schema must map.
func RequiredFields() []string {
	return append([]string(nil), requiredFields...)
}

// ValidationError reports every problem with a tenant schema at once, so a
// misconfigured mapping can be fixed in a single round trip.
type ValidationError struct {
	MissingFields    []string
	MalformedEntries []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.MissingFields) > 0 {
		parts = append(parts, fmt.Sprintf("missing required fields: %s", strings.Join(e.MissingFields, ", ")))
	}
	if len(e.MalformedEntries) > 0 {
		parts = append(parts, fmt.Sprintf("malformed entries: %s", strings.Join(e.MalformedEntries, "; ")))
	}
	return "invalid column schema: " + strings.Join(parts, "; ")
}

func validDataType(t DataType) bool {
	switch t {
	case DataTypeDate, DataTypeString, DataTypeFloat, DataTypeInteger:
		return true
	}
	return false
}

// ResolveSchema validates a tenant-supplied schema into the form the
// normalizer consumes. A nil or empty schema resolves to DefaultSchema; a
// supplied schema is authoritative and must declare every required field
// itself. All missing fields and malformed entries are reported together.
func ResolveSchema(raw ColumnSchema) (ColumnSchema, error) {
	if len(raw) == 0 {
		return DefaultSchema(), nil
	}

	verr := &ValidationError{}

	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			verr.MissingFields = append(verr.MissingFields, field)
		}
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := raw[name]
		if _, known := fieldTypes[name]; !known {
			verr.MalformedEntries = append(verr.MalformedEntries, fmt.Sprintf("%s: unrecognized canonical field", name))
			continue
		}
		if spec.SourceColumn == "" {
			verr.MalformedEntries = append(verr.MalformedEntries, fmt.Sprintf("%s: source column is required", name))
		}
		if spec.DataType == "" {
			verr.MalformedEntries = append(verr.MalformedEntries, fmt.Sprintf("%s: data type is required", name))
		} else if !validDataType(spec.DataType) {
			verr.MalformedEntries = append(verr.MalformedEntries, fmt.Sprintf("%s: unknown data type %q", name, spec.DataType))
		}
	}

	if len(verr.MissingFields) > 0 || len(verr.MalformedEntries) > 0 {
		return nil, verr
	}

	resolved := make(ColumnSchema, len(raw))
	for name, spec := range raw {
		if name == FieldTransactionDate && spec.Format == "" {
			spec.Format = DefaultDateFormat
		}
		resolved[name] = spec
	}
	return resolved, nil
}
