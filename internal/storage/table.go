package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/orbprop/internal/propagate"
)

// WriteCSV writes rows with a header in the canonical column order.
func WriteCSV(w io.Writer, rows []propagate.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(propagate.Columns); err != nil {
		return err
	}
	record := make([]string, len(propagate.Columns))
	for _, r := range rows {
		v := r.Values()
		record[0] = strconv.Itoa(r.OrbitID)
		for j := 1; j < len(v); j++ {
			record[j] = formatFloat(v[j])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV. The header must match.
func ReadCSV(r io.Reader) ([]propagate.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(propagate.Columns)

	header, err := cr.Read()
	if err == io.EOF {
		return []propagate.Row{}, nil
	}
	if err != nil {
		return nil, err
	}
	for i, name := range propagate.Columns {
		if header[i] != name {
			return nil, fmt.Errorf("storage: column %d is %q, want %q", i, header[i], name)
		}
	}

	rows := make([]propagate.Row, 0)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		id, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("storage: line %d: orbit_id: %w", line, err)
		}
		var v [7]float64
		for j := range v {
			v[j], err = strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("storage: line %d: %s: %w", line, propagate.Columns[j+1], err)
			}
		}
		rows = append(rows, propagate.Row{
			OrbitID: id, EpochMJDTDB: v[0],
			X: v[1], Y: v[2], Z: v[3],
			VX: v[4], VY: v[5], VZ: v[6],
		})
	}
	return rows, nil
}

// ExportJSON writes the full result, including the resolved configuration.
func ExportJSON(w io.Writer, res *propagate.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
