package validate

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// numbers compares json numbers by value. An integer literal never equals a
// fractional or exponent literal.
var numbers = cmp.Comparer(
	func(x, y json.Number) bool {
		xInt, yInt := isInteger(x), isInteger(y)
		if xInt != yInt {
			return false
		}

		if xInt {
			a, okA := new(big.Int).SetString(string(x), 10)
			b, okB := new(big.Int).SetString(string(y), 10)
			if !okA || !okB {
				return x == y
			}
			return a.Cmp(b) == 0
		}

		a, errA := x.Float64()
		b, errB := y.Float64()
		if errA != nil || errB != nil {
			return x == y
		}

		return a == b
	},
)

// indexed turns json arrays into index-keyed maps so elements are compared by
// position and the first differing index is reported, not an edit script.
var indexed = cmp.Transformer(
	"Index", func(s []any) map[int]any {
		m := make(map[int]any, len(s))
		for i, v := range s {
			m[i] = v
		}

		return m
	},
)

func isInteger(n json.Number) bool {
	return !strings.ContainsAny(string(n), ".eE")
}

// Diff strictly compares two decoded json values and describes the first
// difference. It returns an empty string when they are equal.
func Diff(want, got any) string {
	var r firstDiff
	if cmp.Equal(want, got, cmp.Reporter(&r), numbers, indexed) {
		return ""
	}

	if r.msg == "" {
		return fmt.Sprintf("json mismatch at $: expected %s, got %s", formatAny(want), formatAny(got))
	}

	return r.msg
}

// firstDiff is a cmp.Reporter that keeps only the first unequal leaf.
type firstDiff struct {
	path cmp.Path
	msg  string
}

func (r *firstDiff) PushStep(ps cmp.PathStep) {
	r.path = append(r.path, ps)
}

func (r *firstDiff) Report(rs cmp.Result) {
	if rs.Equal() || r.msg != "" {
		return
	}

	vx, vy := r.path.Last().Values()
	r.msg = fmt.Sprintf("json mismatch at %s: expected %s, got %s", formatPath(r.path), formatValue(vx), formatValue(vy))
}

func (r *firstDiff) PopStep() {
	r.path = r.path[:len(r.path)-1]
}

func formatPath(p cmp.Path) string {
	var b strings.Builder
	b.WriteString("$")

	for _, step := range p {
		switch s := step.(type) {
		case cmp.MapIndex:
			if k := s.Key(); k.Kind() == reflect.Int {
				fmt.Fprintf(&b, "[%d]", k.Int())
				continue
			}

			key := fmt.Sprint(s.Key())
			if key == "" || strings.ContainsAny(key, `.[]" `) {
				fmt.Fprintf(&b, "[%q]", key)
			} else {
				b.WriteString("." + key)
			}
		}
	}

	return b.String()
}

func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return "<missing>"
	}

	if !v.CanInterface() {
		return v.String()
	}

	return formatAny(v.Interface())
}

func formatAny(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}

	return string(b)
}
