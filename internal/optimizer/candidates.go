package optimizer

import (
	"math"
	"sort"

	"github.com/GoSim-25-26J-441/pacing-core/internal/physics"
	"github.com/GoSim-25-26J-441/pacing-core/internal/route"
	"github.com/samber/lo"
)

// CandidateGenerator returns the admissible powers (W) at a state and profile step.
// Results must be sorted ascending without duplicates; Normalize does that.
//
// The optimizer calls Candidates from several goroutines at once, so
// implementations must be safe for concurrent use.
type CandidateGenerator interface {
	Candidates(c physics.Constants, p physics.Params, s physics.State, step route.Step) []float64
	// MaxCandidates bounds len(Candidates(...)) over every state and step.
	// Zero means the generator declares no bound.
	MaxCandidates() int
}

// CandidateFunc adapts a function to CandidateGenerator. It declares no
// bound; wrap it with Limit before handing it to Optimize.
type CandidateFunc func(c physics.Constants, p physics.Params, s physics.State, step route.Step) []float64

func (f CandidateFunc) Candidates(c physics.Constants, p physics.Params, s physics.State, step route.Step) []float64 {
	return Normalize(f(c, p, s, step), 0)
}

func (f CandidateFunc) MaxCandidates() int { return 0 }

// Limit keeps at most n of the lowest powers returned by f.
func Limit(n int, f CandidateFunc) CandidateGenerator {
	return limited{n: max(n, 0), f: f}
}

type limited struct {
	n int
	f CandidateFunc
}

func (l limited) Candidates(c physics.Constants, p physics.Params, s physics.State, step route.Step) []float64 {
	out := l.f.Candidates(c, p, s, step)
	if len(out) > l.n {
		out = out[:l.n]
	}
	return out
}

func (l limited) MaxCandidates() int { return l.n }

// StandardCandidates offers fixed power levels plus, optionally, the balance
// power that holds the current velocity on the current step.
type StandardCandidates struct {
	Powers         []float64
	IncludeBalance bool
	// MaxPower caps every candidate when positive.
	MaxPower float64
}

// DefaultCandidates is zero, a cruise and a sprint power plus balance power.
func DefaultCandidates() StandardCandidates {
	return StandardCandidates{Powers: []float64{0, 9000, 60000}, IncludeBalance: true}
}

func (g StandardCandidates) Candidates(c physics.Constants, p physics.Params, s physics.State, step route.Step) []float64 {
	out := make([]float64, 0, len(g.Powers)+1)
	out = append(out, g.Powers...)
	if g.IncludeBalance {
		out = append(out, physics.BalancePower(c, p, s.Velocity, step.Incline, step.Friction))
	}
	return Normalize(out, g.MaxPower)
}

// MaxCandidates counts every fixed power plus the balance power, before
// duplicates merge.
func (g StandardCandidates) MaxCandidates() int {
	if g.IncludeBalance {
		return len(g.Powers) + 1
	}
	return len(g.Powers)
}

// Normalize drops negative and non-finite powers, caps at maxPower when
// positive, sorts ascending and removes duplicates.
func Normalize(powers []float64, maxPower float64) []float64 {
	out := lo.Filter(powers, func(p float64, _ int) bool {
		return p >= 0 && !math.IsInf(p, 0)
	})
	if maxPower > 0 {
		out = lo.Map(out, func(p float64, _ int) float64 { return math.Min(p, maxPower) })
	}
	sort.Float64s(out)
	return lo.Uniq(out)
}
