package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/magnetsim/internal/experiment"
)

var ErrEmptyGrid = errors.New("optim: empty search grid")

// GridSearch evaluates every combination of parameter values and keeps
// the one with the lowest metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Evaluation is one grid point and its metric value.
type Evaluation struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Builder turns a grid point into a ready experiment. Points the builder
// rejects are recorded with their error and skipped.
type Builder func(params map[string]float64) (*experiment.Experiment, error)

// Search returns the best parameters, their metric value and every
// evaluated point in grid order. It stops early when ctx is cancelled.
func (g *GridSearch) Search(ctx context.Context, build Builder, metricName string) (map[string]float64, float64, []Evaluation, error) {
	if len(g.paramNames) == 0 || len(g.paramNames) != len(g.ranges) {
		return nil, 0, nil, fmt.Errorf("%w: %d names for %d ranges", ErrEmptyGrid, len(g.paramNames), len(g.ranges))
	}
	for i, r := range g.ranges {
		if len(r) == 0 {
			return nil, 0, nil, fmt.Errorf("%w: no values for %s", ErrEmptyGrid, g.paramNames[i])
		}
	}

	s := &search{best: math.Inf(1)}
	if err := g.searchRecursive(ctx, 0, make(map[string]float64), build, metricName, s); err != nil {
		return s.bestParams, s.best, s.evals, err
	}
	if s.bestParams == nil {
		return nil, s.best, s.evals, fmt.Errorf("no grid point produced %s", metricName)
	}
	return s.bestParams, s.best, s.evals, nil
}

type search struct {
	best       float64
	bestParams map[string]float64
	evals      []Evaluation
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	build Builder,
	metricName string,
	s *search,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		eval := Evaluation{Params: current, Value: math.NaN()}
		defer func() { s.evals = append(s.evals, eval) }()

		exp, err := build(current)
		if err != nil {
			eval.Err = err
			return nil
		}

		result, err := exp.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			eval.Err = err
			return nil
		}

		val, ok := result.Metrics[metricName]
		if !ok {
			eval.Err = fmt.Errorf("metric %s not recorded", metricName)
			return nil
		}
		eval.Value = val
		if val < s.best {
			s.best = val
			s.bestParams = current
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, build, metricName, s); err != nil {
			return err
		}
	}
	return nil
}

// Linspace returns n evenly spaced values over [lo, hi].
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
