package pipeline

// PreviewRows is how many head rows of a frame are persisted inline with a
// model result. A fixed head slice keeps previews reproducible.
const PreviewRows = 10

// Frame is an in-memory table produced by a model body: an ordered column
// list plus rows keyed by column name.
type Frame struct {
	Columns []string
	Rows    []map[string]interface{}
}

func NewFrame(columns ...string) *Frame {
	return &Frame{Columns: columns}
}

func (f *Frame) Append(row map[string]interface{}) {
	f.Rows = append(f.Rows, row)
}

func (f *Frame) RowCount() int {
	return len(f.Rows)
}

func (f *Frame) ColumnCount() int {
	return len(f.Columns)
}

// Preview returns the first n rows.
func (f *Frame) Preview(n int) []map[string]interface{} {
	if n > len(f.Rows) {
		n = len(f.Rows)
	}
	return f.Rows[:n]
}
