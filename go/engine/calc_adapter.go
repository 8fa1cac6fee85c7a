package engine

import (
	"github.com/docreplica/synclog/go/calc"
	"github.com/docreplica/synclog/go/txlog"
	"github.com/docreplica/synclog/go/value"
)

// newCalc returns a calc.StateCalculator wrapped behind the controller's
// narrower calculator interface, so tests can substitute a fake without
// depending on package calc directly.
func newCalc(log *txlog.SortedLogCache, base value.Value, validate func(value.Value) bool) calculator {
	return calc.New(log, base, validate)
}
