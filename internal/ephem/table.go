package ephem

import "fmt"

// Columns of a freshly propagated table.
var Columns = []string{"orbit_id", "epoch_mjd", "x", "y", "z", "vx", "vy", "vz"}

// Table is a named-column result, one row per orbit and target epoch.
type Table struct {
	Columns []string
	Data    [][]float64
}

func (t *Table) Len() int { return len(t.Data) }

// Index returns the position of the named column.
func (t *Table) Index(name string) (int, error) {
	for i, c := range t.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrNoColumn, name)
}

func (t *Table) Rename(from, to string) error {
	i, err := t.Index(from)
	if err != nil {
		return err
	}
	t.Columns[i] = to
	return nil
}

// SetColumn overwrites a column with one value per row.
func (t *Table) SetColumn(name string, values []float64) error {
	i, err := t.Index(name)
	if err != nil {
		return err
	}
	if len(values) != len(t.Data) {
		return fmt.Errorf("ephem: column %s: %d values for %d rows", name, len(values), len(t.Data))
	}
	for r, v := range values {
		t.Data[r][i] = v
	}
	return nil
}
