package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/san-kum/orbprop/internal/orbit"
)

// OrbitColumns is the expected header of an orbit input file: an id, the
// state epoch (MJD) and six element values in the order of the element type.
var OrbitColumns = []string{"orbit_id", "epoch_mjd", "c0", "c1", "c2", "c3", "c4", "c5"}

// ReadOrbits parses an orbit CSV. The first record is treated as a header
// when its first field is not numeric. Returned epochs are aligned with the
// orbits.
func ReadOrbits(r io.Reader, elements orbit.ElementType) (orbit.Orbits, []float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(OrbitColumns)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	records, err := cr.ReadAll()
	if err != nil {
		return orbit.Orbits{}, nil, err
	}
	if len(records) > 0 {
		if _, err := strconv.ParseFloat(records[0][0], 64); err != nil {
			records = records[1:]
		}
	}

	orbits := orbit.Orbits{
		IDs:      make([]int, 0, len(records)),
		States:   make([]orbit.State, 0, len(records)),
		Elements: elements,
	}
	epochs := make([]float64, 0, len(records))
	for i, record := range records {
		var v [8]float64
		for j := range v {
			v[j], err = strconv.ParseFloat(record[j], 64)
			if err != nil {
				return orbit.Orbits{}, nil, fmt.Errorf("storage: orbit record %d, column %s: %w", i, OrbitColumns[j], err)
			}
		}
		orbits.IDs = append(orbits.IDs, int(math.Round(v[0])))
		epochs = append(epochs, v[1])
		orbits.States = append(orbits.States, orbit.State(v[2:]).Clone())
	}
	return orbits, epochs, nil
}

// WriteOrbits is the inverse of ReadOrbits.
func WriteOrbits(w io.Writer, orbits orbit.Orbits, epochs []float64) error {
	if len(epochs) != orbits.Len() {
		return fmt.Errorf("storage: %d epochs for %d orbits", len(epochs), orbits.Len())
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(OrbitColumns); err != nil {
		return err
	}
	for i, s := range orbits.States {
		record := []string{strconv.Itoa(orbits.IDs[i]), formatFloat(epochs[i])}
		for _, c := range s {
			record = append(record, formatFloat(c))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
