// Package stats builds and stores the column histograms collected by
// ANALYZE.
package stats

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/types"
	"github.com/cockroachdb/errors"
)

// DefaultBuckets is the number of buckets of a histogram.
const DefaultBuckets = 10

// Histogram summarizes the distribution of one column. Bucket i spans
// Boundaries[i] to Boundaries[i+1]. A histogram of an empty sample has no
// boundaries.
type Histogram struct {
	Type       types.FieldType
	Boundaries []types.Value
	// Counts holds the number of samples per bucket. It is only known for
	// histograms built in this process.
	Counts []int
}

// Build computes a histogram with the given number of buckets over
// samples, which must all have the same type.
func Build(samples []types.Value, buckets int) (*Histogram, error) {
	if buckets <= 0 {
		return nil, dberr.Newf(dberr.ErrInvalidArgument, "histogram needs at least one bucket, got %d", buckets)
	}
	if len(samples) == 0 {
		return &Histogram{}, nil
	}
	sorted := slices.Clone(samples)
	var cmpErr error
	slices.SortStableFunc(sorted, func(a, b types.Value) int {
		c, err := a.CompareTo(b)
		if err != nil && cmpErr == nil {
			cmpErr = err
		}
		return c
	})
	if cmpErr != nil {
		return nil, cmpErr
	}

	h := &Histogram{Type: sorted[0].Type()}
	if _, ok := sorted[0].Numeric(); ok {
		h.Boundaries = widthBoundaries(sorted, buckets)
	} else {
		h.Boundaries = frequencyBoundaries(sorted, buckets)
	}
	h.Counts = make([]int, buckets)
	cursor := 0
	for _, v := range sorted {
		for cursor < buckets-1 && compare(v, h.Boundaries[cursor+1]) > 0 {
			cursor++
		}
		h.Counts[cursor]++
	}
	return h, nil
}

// widthBoundaries places interior boundary i at the first sample not below
// min + i*width.
func widthBoundaries(sorted []types.Value, buckets int) []types.Value {
	minV, _ := sorted[0].Numeric()
	maxV, _ := sorted[len(sorted)-1].Numeric()
	width := (maxV - minV) / float64(buckets)

	bounds := make([]types.Value, buckets+1)
	bounds[0] = sorted[0]
	bounds[buckets] = sorted[len(sorted)-1]
	for i := 1; i < buckets; i++ {
		target := minV + float64(i)*width
		pos := sort.Search(len(sorted), func(j int) bool {
			n, _ := sorted[j].Numeric()
			return n >= target
		})
		if pos == len(sorted) {
			bounds[i] = bounds[buckets]
		} else {
			bounds[i] = sorted[pos]
		}
	}
	return bounds
}

// frequencyBoundaries places boundaries at evenly spaced sample positions.
func frequencyBoundaries(sorted []types.Value, buckets int) []types.Value {
	bounds := make([]types.Value, buckets+1)
	last := len(sorted) - 1
	for i := 0; i <= buckets; i++ {
		bounds[i] = sorted[i*last/buckets]
	}
	return bounds
}

func compare(a, b types.Value) int {
	c, _ := a.CompareTo(b)
	return c
}

// Buckets returns the number of buckets, zero for an empty histogram.
func (h *Histogram) Buckets() int {
	if len(h.Boundaries) == 0 {
		return 0
	}
	return len(h.Boundaries) - 1
}

// Empty reports whether the histogram was built from no samples.
func (h *Histogram) Empty() bool {
	return len(h.Boundaries) == 0
}

// Min returns the smallest sampled value.
func (h *Histogram) Min() types.Value {
	return h.Boundaries[0]
}

// Max returns the largest sampled value.
func (h *Histogram) Max() types.Value {
	return h.Boundaries[len(h.Boundaries)-1]
}

// BoundaryIndex returns the position of the first boundary not below v,
// and false when v lies beyond every boundary.
func (h *Histogram) BoundaryIndex(v types.Value) (int, bool) {
	for i, b := range h.Boundaries {
		c, err := v.CompareTo(b)
		if err != nil {
			return 0, false
		}
		if c <= 0 {
			return i, true
		}
	}
	return 0, false
}

// String renders the histogram as "(lo,hi),(lo,hi),..." with one pair per
// bucket. String values are quoted.
func (h *Histogram) String() string {
	var sb strings.Builder
	for i := 0; i < h.Buckets(); i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('(')
		sb.WriteString(formatBoundary(h.Boundaries[i]))
		sb.WriteByte(',')
		sb.WriteString(formatBoundary(h.Boundaries[i+1]))
		sb.WriteByte(')')
	}
	return sb.String()
}

func formatBoundary(v types.Value) string {
	if v.Type().IsString() {
		return strconv.Quote(v.AsString())
	}
	return v.String()
}

// ParseHistogram decodes the output of Histogram.String for a column of
// type typ.
func ParseHistogram(s string, typ types.FieldType) (*Histogram, error) {
	h := &Histogram{Type: typ}
	rest := strings.TrimSpace(s)
	for rest != "" {
		if len(h.Boundaries) > 0 {
			if rest[0] != ',' {
				return nil, malformed(s)
			}
			rest = rest[1:]
		}
		if rest == "" || rest[0] != '(' {
			return nil, malformed(s)
		}
		lo, tail, err := parseBoundary(rest[1:], typ)
		if err != nil {
			return nil, errors.Wrapf(err, "histogram %q", s)
		}
		if tail == "" || tail[0] != ',' {
			return nil, malformed(s)
		}
		hi, tail, err := parseBoundary(tail[1:], typ)
		if err != nil {
			return nil, errors.Wrapf(err, "histogram %q", s)
		}
		if tail == "" || tail[0] != ')' {
			return nil, malformed(s)
		}
		rest = tail[1:]
		if len(h.Boundaries) == 0 {
			h.Boundaries = append(h.Boundaries, lo)
		}
		h.Boundaries = append(h.Boundaries, hi)
	}
	return h, nil
}

func malformed(s string) error {
	return dberr.Newf(dberr.ErrInvalidArgument, "malformed histogram %q", s)
}

// parseBoundary reads one value from the front of s and returns the rest.
func parseBoundary(s string, typ types.FieldType) (types.Value, string, error) {
	if typ.IsString() {
		quoted, err := strconv.QuotedPrefix(s)
		if err != nil {
			return types.Value{}, "", dberr.Wrapf(err, dberr.ErrInvalidArgument, "boundary %q", s)
		}
		text, _ := strconv.Unquote(quoted)
		v, err := types.NewStringValue(text).CastTo(typ)
		return v, s[len(quoted):], err
	}
	end := strings.IndexAny(s, ",)")
	if end < 0 {
		return types.Value{}, "", dberr.Newf(dberr.ErrInvalidArgument, "unterminated boundary %q", s)
	}
	v, err := parseScalar(s[:end], typ)
	return v, s[end:], err
}

func parseScalar(s string, typ types.FieldType) (types.Value, error) {
	switch typ {
	case types.Integer:
		n, err := strconv.Atoi(s)
		if err != nil {
			return types.Value{}, dberr.Wrapf(err, dberr.ErrInvalidArgument, "integer boundary %q", s)
		}
		return types.NewIntValue(n), nil
	case types.Float:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.Value{}, dberr.Wrapf(err, dberr.ErrInvalidArgument, "float boundary %q", s)
		}
		return types.NewFloatValue(f), nil
	case types.Date:
		days, err := types.ParseDate(s)
		if err != nil {
			return types.Value{}, err
		}
		return types.NewDateValue(days), nil
	case types.Boolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return types.Value{}, dberr.Wrapf(err, dberr.ErrInvalidArgument, "boolean boundary %q", s)
		}
		return types.NewBoolValue(b), nil
	default:
		return types.Value{}, dberr.Newf(dberr.ErrInvalidArgument, "no histogram for %s values", typ)
	}
}
