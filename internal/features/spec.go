package features

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidSpec is returned when a feature specification is not usable.
var ErrInvalidSpec = errors.New("invalid feature spec")

// Temperature feature parameters (hours).
const (
	TempLagDay  = 24
	TempLagWeek = 168
	TempDiffDay = 24
)

// Spec is the declarative feature configuration: which lags, rolling
// windows and differences to compute, all in hours.
type Spec struct {
	Lags           []int
	RollingWindows []int
	Diffs          []int
}

// DefaultSpec returns the production feature configuration.
func DefaultSpec() Spec {
	return Spec{
		Lags:           []int{24, 48, 72, 168, 336},
		RollingWindows: []int{6, 12, 24, 72, 168, 336},
		Diffs:          []int{1, 24, 168},
	}
}

// Validate checks that every parameter is positive and that rolling windows
// are at least 2 hours (a 1-hour slope has zero abscissa variance).
func (s Spec) Validate() error {
	check := func(name string, vals []int, min int) error {
		seen := make(map[int]struct{}, len(vals))
		for _, v := range vals {
			if v < min {
				return fmt.Errorf("%w: %s entry %d must be >= %d", ErrInvalidSpec, name, v, min)
			}
			if _, dup := seen[v]; dup {
				return fmt.Errorf("%w: duplicate %s entry %d", ErrInvalidSpec, name, v)
			}
			seen[v] = struct{}{}
		}
		return nil
	}

	if err := check("lag", s.Lags, 1); err != nil {
		return err
	}
	if err := check("rolling window", s.RollingWindows, 2); err != nil {
		return err
	}
	return check("diff", s.Diffs, 1)
}

// Normalized returns a copy with every collection sorted ascending and
// de-duplicated.
func (s Spec) Normalized() Spec {
	return Spec{
		Lags:           sortedUnique(s.Lags),
		RollingWindows: sortedUnique(s.RollingWindows),
		Diffs:          sortedUnique(s.Diffs),
	}
}

// MaxWindow returns the largest rolling window, the history length needed
// before a span for full-context rolling features. Zero if none configured.
func (s Spec) MaxWindow() int {
	max := 0
	for _, w := range s.RollingWindows {
		if w > max {
			max = w
		}
	}
	return max
}

// Keys returns the columns produced for this spec, in matrix column order:
// lags, then mean/std/min/max/slope per window, diffs, calendar and, when
// requested, temperature.
func (s Spec) Keys(withTemperature bool) []Key {
	n := s.Normalized()
	keys := make([]Key, 0, len(n.Lags)+5*len(n.RollingWindows)+len(n.Diffs)+8)

	for _, l := range n.Lags {
		keys = append(keys, Key{Kind: KindLag, Param: l})
	}
	for _, w := range n.RollingWindows {
		keys = append(keys,
			Key{Kind: KindRollingMean, Param: w},
			Key{Kind: KindRollingStd, Param: w},
			Key{Kind: KindRollingMin, Param: w},
			Key{Kind: KindRollingMax, Param: w},
			Key{Kind: KindSlope, Param: w},
		)
	}
	for _, d := range n.Diffs {
		keys = append(keys, Key{Kind: KindDiff, Param: d})
	}
	keys = append(keys,
		Key{Kind: KindHour},
		Key{Kind: KindWeekday},
		Key{Kind: KindMonth},
		Key{Kind: KindWeekend},
	)
	if withTemperature {
		keys = append(keys,
			Key{Kind: KindTemp},
			Key{Kind: KindTempLag, Param: TempLagDay},
			Key{Kind: KindTempLag, Param: TempLagWeek},
			Key{Kind: KindTempDiff, Param: TempDiffDay},
		)
	}
	return keys
}

// Fingerprint returns a stable textual form of the normalized spec,
// e.g. "lags=24,48|windows=6,12|diffs=1".
func (s Spec) Fingerprint() string {
	n := s.Normalized()
	return fmt.Sprintf("lags=%s|windows=%s|diffs=%s",
		FormatInts(n.Lags), FormatInts(n.RollingWindows), FormatInts(n.Diffs))
}

// ParseInts parses a comma-separated list of integers, e.g. "24,48,72".
func ParseInts(raw string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidSpec, part)
		}
		out = append(out, v)
	}
	return out, nil
}

func sortedUnique(vals []int) []int {
	out := make([]int, 0, len(vals))
	seen := make(map[int]struct{}, len(vals))
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// FormatInts is the inverse of ParseInts.
func FormatInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
