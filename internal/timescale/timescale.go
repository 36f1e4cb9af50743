// Package timescale converts epoch collections between UTC, TT and TDB.
//
// Epochs are modified Julian dates unless tagged [JD]. UTC is converted
// through the leap-second table, TT = TAI + 32.184 s and TDB - TT uses the
// two leading periodic terms, which is good to about 30 microseconds.
package timescale

import (
	"fmt"
	"math"
	"strings"
)

type Scale int

const (
	UTC Scale = iota + 1
	TT
	TDB
)

func (s Scale) String() string {
	switch s {
	case UTC:
		return "UTC"
	case TT:
		return "TT"
	case TDB:
		return "TDB"
	default:
		return fmt.Sprintf("Scale(%d)", int(s))
	}
}

func ParseScale(s string) (Scale, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UTC":
		return UTC, nil
	case "TT":
		return TT, nil
	case "TDB":
		return TDB, nil
	default:
		return 0, fmt.Errorf("%w: unknown time scale %q", ErrInvalidTimeInput, s)
	}
}

type Format int

const (
	MJD Format = iota
	JD
)

func (f Format) String() string {
	switch f {
	case MJD:
		return "mjd"
	case JD:
		return "jd"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

const (
	// MJDOffset is JD - MJD.
	MJDOffset = 2400000.5
	// J2000 is the Julian date of the J2000.0 epoch.
	J2000 = 2451545.0

	secondsPerDay = 86400.0
	ttMinusTAI    = 32.184
)

// Times is a collection of epochs sharing one scale and format.
type Times struct {
	Values []float64
	Scale  Scale
	Format Format
}

// New returns MJD epochs in the given scale.
func New(scale Scale, mjd ...float64) Times {
	return Times{Values: mjd, Scale: scale, Format: MJD}
}

func (t Times) Len() int { return len(t.Values) }

// MJD returns a copy of the values as modified Julian dates.
func (t Times) MJD() []float64 {
	out := make([]float64, len(t.Values))
	for i, v := range t.Values {
		if t.Format == JD {
			v -= MJDOffset
		}
		out[i] = v
	}
	return out
}

func (t Times) Validate() error {
	switch t.Scale {
	case UTC, TT, TDB:
	default:
		return fmt.Errorf("%w: unknown time scale %v", ErrInvalidTimeInput, t.Scale)
	}
	if t.Format != MJD && t.Format != JD {
		return fmt.Errorf("%w: unknown format %v", ErrInvalidTimeInput, t.Format)
	}
	if len(t.Values) == 0 {
		return fmt.Errorf("%w: no epochs", ErrInvalidTimeInput)
	}
	for i, v := range t.MJD() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: epoch %d is not finite", ErrInvalidTimeInput, i)
		}
		if t.Scale == UTC && v < FirstUTC {
			return fmt.Errorf("%w: UTC epoch %d (MJD %.5f) precedes leap-second coverage", ErrInvalidTimeInput, i, v)
		}
	}
	return nil
}

// TDBMinusTT returns TDB - TT in seconds at a TT (or TDB) MJD.
func TDBMinusTT(mjd float64) float64 {
	g := (357.53 + 0.98560028*(mjd+MJDOffset-J2000)) * math.Pi / 180
	return 0.001657*math.Sin(g) + 0.000014*math.Sin(2*g)
}

// ToTT converts t into TT MJD.
func ToTT(t Times) (Times, error) {
	if err := t.Validate(); err != nil {
		return Times{}, err
	}
	values := t.MJD()
	for i, v := range values {
		switch t.Scale {
		case UTC:
			dat, _ := taiMinusUTC(v)
			values[i] = v + (dat+ttMinusTAI)/secondsPerDay
		case TDB:
			// One fixed-point pass; the periodic term varies by < 1e-9 s over 2 ms.
			values[i] = v - TDBMinusTT(v)/secondsPerDay
		}
	}
	return Times{Values: values, Scale: TT, Format: MJD}, nil
}

// ToTDB converts t into TDB MJD.
func ToTDB(t Times) (Times, error) {
	if t.Scale == TDB {
		if err := t.Validate(); err != nil {
			return Times{}, err
		}
		return Times{Values: t.MJD(), Scale: TDB, Format: MJD}, nil
	}
	tt, err := ToTT(t)
	if err != nil {
		return Times{}, err
	}
	for i, v := range tt.Values {
		tt.Values[i] = v + TDBMinusTT(v)/secondsPerDay
	}
	tt.Scale = TDB
	return tt, nil
}

// ForInternal returns the TDB MJD values used by the analytic backend.
func ForInternal(t Times) ([]float64, error) {
	tdb, err := ToTDB(t)
	if err != nil {
		return nil, err
	}
	return tdb.Values, nil
}

// ForExternal returns TT-labelled MJD values for an engine that cannot take
// TDB, together with the TDB - TT offset (days) applied to each epoch.
//
// Each value is TT + (TDB - TT), so the engine integrates to the instant whose
// TT reading equals the true TDB epoch. The offset is evaluated once per epoch
// and is not re-evaluated across the propagation span, which makes this a
// first-order approximation bounded by roughly 1.7 ms.
func ForExternal(t Times) (corrected, offsets []float64, err error) {
	tt, err := ToTT(t)
	if err != nil {
		return nil, nil, err
	}
	tdb, err := ToTDB(t)
	if err != nil {
		return nil, nil, err
	}
	corrected = make([]float64, tt.Len())
	offsets = make([]float64, tt.Len())
	for i := range tt.Values {
		offsets[i] = tdb.Values[i] - tt.Values[i]
		corrected[i] = tt.Values[i] + offsets[i]
	}
	return corrected, offsets, nil
}
