package features

import (
	"math"
	"time"
)

// Matrix is a feature table aligned to the index of its source series.
// Column order is fixed by Keys; absent values are NaN.
type Matrix struct {
	Index   []time.Time
	Keys    []Key
	columns map[Key][]float64
}

func newMatrix(index []time.Time) *Matrix {
	idx := make([]time.Time, len(index))
	copy(idx, index)
	return &Matrix{
		Index:   idx,
		columns: make(map[Key][]float64),
	}
}

// set appends a column. Keys are unique per matrix.
func (m *Matrix) set(key Key, values []float64) {
	key = key.Canonical()
	if _, exists := m.columns[key]; !exists {
		m.Keys = append(m.Keys, key)
	}
	m.columns[key] = values
}

// Len returns the number of rows.
func (m *Matrix) Len() int {
	return len(m.Index)
}

// Width returns the number of columns.
func (m *Matrix) Width() int {
	return len(m.Keys)
}

// Column returns a copy of the column for key, or nil if absent.
func (m *Matrix) Column(key Key) []float64 {
	col, ok := m.columns[key.Canonical()]
	if !ok {
		return nil
	}
	out := make([]float64, len(col))
	copy(out, col)
	return out
}

// Has reports whether the matrix has a column for key.
func (m *Matrix) Has(key Key) bool {
	_, ok := m.columns[key.Canonical()]
	return ok
}

// Value returns the value at (key, row) and whether it is present.
func (m *Matrix) Value(key Key, row int) (float64, bool) {
	col, ok := m.columns[key.Canonical()]
	if !ok || row < 0 || row >= len(col) {
		return math.NaN(), false
	}
	v := col[row]
	return v, !math.IsNaN(v)
}

// Row returns the values of one row in column order.
func (m *Matrix) Row(row int) []float64 {
	out := make([]float64, len(m.Keys))
	for j, k := range m.Keys {
		out[j] = m.columns[k][row]
	}
	return out
}

// RowComplete reports whether every column is present at row.
func (m *Matrix) RowComplete(row int) bool {
	for _, k := range m.Keys {
		if math.IsNaN(m.columns[k][row]) {
			return false
		}
	}
	return true
}

// Select returns a new matrix holding only the given row positions, in order.
func (m *Matrix) Select(rows []int) *Matrix {
	idx := make([]time.Time, len(rows))
	for i, r := range rows {
		idx[i] = m.Index[r]
	}
	out := newMatrix(idx)
	for _, k := range m.Keys {
		src := m.columns[k]
		col := make([]float64, len(rows))
		for i, r := range rows {
			col[i] = src[r]
		}
		out.set(k, col)
	}
	return out
}

// Locate returns the row positions of the given timestamps. Timestamps not
// present in the index are skipped.
func (m *Matrix) Locate(timestamps []time.Time) []int {
	pos := make(map[int64]int, len(m.Index))
	for i, t := range m.Index {
		pos[t.UnixNano()] = i
	}
	rows := make([]int, 0, len(timestamps))
	for _, t := range timestamps {
		if i, ok := pos[t.UnixNano()]; ok {
			rows = append(rows, i)
		}
	}
	return rows
}
