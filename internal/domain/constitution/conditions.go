package constitution

import (
	"log/slog"
	"strconv"
	"sync"
)

// Default thresholds for the built-in conditions.
const (
	DefaultValueThreshold  = 100
	DefaultTenureThreshold = 730
)

// Predicate tests a named condition against the caller context and the
// invocation arguments. Predicates must be pure: no side effects, no I/O.
type Predicate func(cctx CallerContext, args map[string]any, threshold *float64) bool

var (
	condMu     sync.RWMutex
	conditions = map[string]Predicate{}
)

// RegisterCondition makes a condition predicate available by name.
// New condition kinds are added here, never by editing the engine loop.
func RegisterCondition(name string, p Predicate) {
	condMu.Lock()
	defer condMu.Unlock()

	if _, exists := conditions[name]; exists {
		panic("constitution: duplicate condition registration for " + strconv.Quote(name))
	}
	conditions[name] = p
}

// EvaluateCondition runs the named predicate. Unknown condition names log a
// warning and evaluate to false: unrecognized policy never silently blocks
// an action.
func EvaluateCondition(name string, cctx CallerContext, args map[string]any, threshold *float64) bool {
	condMu.RLock()
	p, ok := conditions[name]
	condMu.RUnlock()

	if !ok {
		slog.Warn("unknown constitution condition; defaulting to no-match", "condition", name)
		return false
	}
	return p(cctx, args, threshold)
}

func init() {
	RegisterCondition("any", func(CallerContext, map[string]any, *float64) bool {
		return true
	})
	RegisterCondition("high_value", func(_ CallerContext, args map[string]any, threshold *float64) bool {
		return coerceNumber(args["amount"]) >= orDefault(threshold, DefaultValueThreshold)
	})
	RegisterCondition("high_tenure", func(cctx CallerContext, _ map[string]any, threshold *float64) bool {
		return float64(cctx.TenureDays) >= orDefault(threshold, DefaultTenureThreshold)
	})
}

// coerceNumber converts an argument value to float64. Non-numeric values
// coerce to 0 rather than failing the evaluation.
func coerceNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func orDefault(threshold *float64, def float64) float64 {
	if threshold != nil {
		return *threshold
	}
	return def
}
