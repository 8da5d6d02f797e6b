package features

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a feature family.
type Kind int

// Feature kinds. The order here is not the column order; see Spec.Keys.
const (
	KindLag Kind = iota + 1
	KindRollingMean
	KindRollingStd
	KindRollingMin
	KindRollingMax
	KindSlope
	KindDiff
	KindHour
	KindWeekday
	KindMonth
	KindWeekend
	KindTemp
	KindTempLag
	KindTempDiff
)

// kindPrefix maps each kind to its column name stem.
var kindPrefix = map[Kind]string{
	KindLag:         "lag",
	KindRollingMean: "roll_mean",
	KindRollingStd:  "roll_std",
	KindRollingMin:  "roll_min",
	KindRollingMax:  "roll_max",
	KindSlope:       "roll_slope",
	KindDiff:        "diff",
	KindHour:        "hour",
	KindWeekday:     "weekday",
	KindMonth:       "month",
	KindWeekend:     "is_weekend",
	KindTemp:        "temp",
	KindTempLag:     "temp_lag",
	KindTempDiff:    "temp_diff",
}

// parameterized reports whether the kind carries an hour parameter.
func (k Kind) parameterized() bool {
	switch k {
	case KindHour, KindWeekday, KindMonth, KindWeekend, KindTemp:
		return false
	}
	return true
}

// String returns the column name stem of the kind.
func (k Kind) String() string {
	if p, ok := kindPrefix[k]; ok {
		return p
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Key is the identity of one feature column: a kind plus its parameter in
// hours. Parameterless kinds use Param 0; Canonical enforces that, and the
// matrix stores and looks up keys in canonical form.
type Key struct {
	Kind  Kind
	Param int
}

// Canonical returns the key with Param cleared for parameterless kinds, so
// that two keys with the same String are equal.
func (k Key) Canonical() Key {
	if !k.Kind.parameterized() {
		k.Param = 0
	}
	return k
}

// String returns the column name, e.g. "lag_24", "roll_slope_168", "hour".
// Distinct keys always produce distinct names.
func (k Key) String() string {
	if !k.Kind.parameterized() {
		return k.Kind.String()
	}
	return k.Kind.String() + "_" + strconv.Itoa(k.Param)
}

// ParseKey is the inverse of Key.String.
func ParseKey(name string) (Key, error) {
	for kind, prefix := range kindPrefix {
		if !kind.parameterized() {
			if name == prefix {
				return Key{Kind: kind}, nil
			}
			continue
		}
		rest, ok := strings.CutPrefix(name, prefix+"_")
		if !ok {
			continue
		}
		param, err := strconv.Atoi(rest)
		if err != nil || param <= 0 {
			continue
		}
		return Key{Kind: kind, Param: param}, nil
	}
	return Key{}, fmt.Errorf("unknown feature column %q", name)
}
