package stats

import (
	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/table"
	"github.com/JyotinderSingh/plandb/types"
)

// Row is one line of the statistics table.
type Row struct {
	Table           string
	Column          string
	BucketCount     int
	Histogram       string
	SampledRowCount int
}

// Parse decodes the histogram of the row for a column of type typ.
func (r Row) Parse(typ types.FieldType) (*Histogram, error) {
	return ParseHistogram(r.Histogram, typ)
}

// Collector turns the column values of a table into statistics rows.
type Collector struct {
	buckets int
	sampler *Sampler
}

// NewCollector returns a collector building histograms with the given
// number of buckets.
func NewCollector(buckets int, sampler *Sampler) *Collector {
	return &Collector{buckets: buckets, sampler: sampler}
}

// ResolveColumns checks that every column is a user field of meta. An
// empty list selects all user fields.
func ResolveColumns(meta table.Meta, columns []string) ([]table.FieldMeta, error) {
	if len(columns) == 0 {
		return meta.VisibleFields(), nil
	}
	fields := make([]table.FieldMeta, 0, len(columns))
	for _, name := range columns {
		field, ok := meta.Field(name)
		if !ok || !field.Visible {
			return nil, dberr.Newf(dberr.ErrSchemaFieldNotExist, "field %s not found in %s", name, meta.Name)
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// Collect builds one statistics row per column. rows[i][j] holds the value
// of columns[j] in the i-th table row.
func (c *Collector) Collect(meta table.Meta, columns []string, rows [][]types.Value) ([]Row, error) {
	fields, err := ResolveColumns(meta, columns)
	if err != nil {
		return nil, err
	}
	positions := c.sampler.Sample(len(rows))

	out := make([]Row, 0, len(fields))
	for j, field := range fields {
		samples := make([]types.Value, len(positions))
		for i, pos := range positions {
			if j >= len(rows[pos]) {
				return nil, dberr.Newf(dberr.ErrInternal, "row %d has %d values, want %d", pos, len(rows[pos]), len(fields))
			}
			samples[i] = rows[pos][j]
		}
		h, err := Build(samples, c.buckets)
		if err != nil {
			return nil, err
		}
		out = append(out, Row{
			Table:           meta.Name,
			Column:          field.Name,
			BucketCount:     c.buckets,
			Histogram:       h.String(),
			SampledRowCount: len(samples),
		})
	}
	return out, nil
}
