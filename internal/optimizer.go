package internal

import (
	"fmt"
	"frontierbacktest/internal/domain"
	"math"
	"sort"
)

const (
	// weights below this are zeroed and the vector renormalized
	weightFloor = 1e-6
	// convergence threshold on weight movement per gradient step
	solveTolerance = 1e-10
	maxSolveIters  = 5000
	// sharpe ratios within this of each other are considered tied
	sharpeTolerance = 1e-9
	maxSharpeIters  = 200
)

// Optimizer solves long-only mean-variance problems over an annualized
// mean vector and covariance matrix. The constraint set is w >= 0 (when
// long-only) and sum(w) = 1.
type Optimizer struct {
	Symbols    []string
	Means      []float64
	Covariance [][]float64
	LongOnly   bool
}

func NewOptimizer(annualized *AnnualizedStats, longOnly bool) (*Optimizer, error) {
	if annualized == nil || len(annualized.Means) == 0 {
		return nil, domain.InfeasibleOptimizationError{Err: fmt.Errorf("cannot optimize over empty asset universe")}
	}
	n := len(annualized.Means)
	if len(annualized.Covariance) != n {
		return nil, domain.InputValidationError{Err: fmt.Errorf("covariance has %d rows for %d assets", len(annualized.Covariance), n)}
	}

	// symmetrize, then reject matrices that cannot be PSD
	covariance := make([][]float64, n)
	for i := range covariance {
		if len(annualized.Covariance[i]) != n {
			return nil, domain.InputValidationError{Err: fmt.Errorf("covariance row %d has %d columns for %d assets", i, len(annualized.Covariance[i]), n)}
		}
		covariance[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := (annualized.Covariance[i][j] + annualized.Covariance[j][i]) / 2
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, domain.DataIntegrityError{Err: fmt.Errorf("covariance entry (%d,%d) is undefined", i, j)}
			}
			covariance[i][j] = v
		}
	}
	for i := 0; i < n; i++ {
		if covariance[i][i] < 0 {
			return nil, domain.InfeasibleOptimizationError{Err: fmt.Errorf("covariance is not positive semi-definite: negative variance for %s", annualized.Symbols[i])}
		}
	}

	return &Optimizer{
		Symbols:    annualized.Symbols,
		Means:      annualized.Means,
		Covariance: covariance,
		LongOnly:   longOnly,
	}, nil
}

func (o Optimizer) portfolioReturn(w []float64) float64 {
	ret := 0.0
	for i, weight := range w {
		ret += weight * o.Means[i]
	}
	return ret
}

func (o Optimizer) portfolioVariance(w []float64) float64 {
	variance := 0.0
	for i := range w {
		for j := range w {
			variance += w[i] * o.Covariance[i][j] * w[j]
		}
	}
	return variance
}

// MinVariancePortfolio minimizes w'Sigma w over the constraint set.
func (o Optimizer) MinVariancePortfolio() (*domain.FrontierPoint, error) {
	w, err := o.solve(nil)
	if err != nil {
		return nil, err
	}
	return o.toFrontierPoint(w), nil
}

// MaxSharpePortfolio maximizes (w'mu - rf) / sqrt(w'Sigma w). The ratio
// is not a single convex program under long-only constraints, so we
// sweep target returns across the feasible band and refine the best
// bracket by ternary search. Ties within sharpeTolerance break to the
// lower-volatility point.
func (o Optimizer) MaxSharpePortfolio(riskFreeRate float64) (*domain.FrontierPoint, error) {
	minVar, err := o.MinVariancePortfolio()
	if err != nil {
		return nil, err
	}

	lo := minVar.ExpectedReturn
	hi := maxFloat(o.Means)
	if hi-lo < solveTolerance {
		// degenerate band: every feasible portfolio has the same
		// expected return, so the min-variance point wins
		return minVar, nil
	}

	const sweepPoints = 50
	best := minVar
	bestSharpe := sharpeAt(minVar, riskFreeRate)
	for i := 1; i <= sweepPoints; i++ {
		target := lo + (hi-lo)*float64(i)/float64(sweepPoints)
		point, err := o.solveTarget(target)
		if err != nil {
			continue
		}
		best, bestSharpe = pickBetterSharpe(best, bestSharpe, point, riskFreeRate)
	}

	// ternary refinement around the incumbent, bounded by iteration
	// count in case the ratio surface is flat
	span := (hi - lo) / float64(sweepPoints)
	left := math.Max(lo, best.ExpectedReturn-span)
	right := math.Min(hi, best.ExpectedReturn+span)
	for iter := 0; iter < maxSharpeIters && right-left > sharpeTolerance; iter++ {
		m1 := left + (right-left)/3
		m2 := right - (right-left)/3
		p1, err1 := o.solveTarget(m1)
		p2, err2 := o.solveTarget(m2)
		if err1 != nil || err2 != nil {
			break
		}
		if sharpeAt(p1, riskFreeRate) < sharpeAt(p2, riskFreeRate) {
			left = m1
		} else {
			right = m2
		}
		best, bestSharpe = pickBetterSharpe(best, bestSharpe, p1, riskFreeRate)
		best, bestSharpe = pickBetterSharpe(best, bestSharpe, p2, riskFreeRate)
	}

	return best, nil
}

// BuildFrontier sweeps target returns linearly from the min-variance
// portfolio's return to the max single-asset mean. Infeasible targets
// are skipped, not errors.
func (o Optimizer) BuildFrontier(numPoints int) (domain.Frontier, error) {
	if numPoints < 1 {
		return nil, domain.InputValidationError{Err: fmt.Errorf("frontier needs at least 1 point, got %d", numPoints)}
	}
	minVar, err := o.MinVariancePortfolio()
	if err != nil {
		return nil, err
	}

	lo := minVar.ExpectedReturn
	hi := maxFloat(o.Means)
	if numPoints == 1 || hi-lo < solveTolerance {
		return domain.Frontier{*minVar}, nil
	}

	frontier := domain.Frontier{*minVar}
	for i := 1; i < numPoints; i++ {
		target := lo + (hi-lo)*float64(i)/float64(numPoints-1)
		point, err := o.solveTarget(target)
		if err != nil {
			continue
		}
		frontier = append(frontier, *point)
	}

	return frontier, nil
}

// solveTarget minimizes variance subject to the constraint set plus
// w'mu = target, via an increasing quadratic penalty.
func (o Optimizer) solveTarget(target float64) (*domain.FrontierPoint, error) {
	if target < minFloat(o.Means)-solveTolerance || target > maxFloat(o.Means)+solveTolerance {
		return nil, domain.InfeasibleOptimizationError{Err: fmt.Errorf("target return %f outside feasible band", target)}
	}
	w, err := o.solve(&target)
	if err != nil {
		return nil, err
	}
	return o.toFrontierPoint(w), nil
}

// solve runs projected gradient descent on the simplex (or the sum=1
// hyperplane when shorting is allowed). A non-nil target adds the
// quadratic return penalty, increased over three outer rounds so the
// equality constraint tightens as the iterate settles.
func (o Optimizer) solve(target *float64) ([]float64, error) {
	n := len(o.Means)
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	if n == 1 {
		return w, nil
	}

	penalties := []float64{0}
	if target != nil {
		penalties = []float64{1e2, 1e4, 1e6}
	}

	for _, penalty := range penalties {
		step := 1.0 / o.lipschitzBound(penalty)
		for iter := 0; iter < maxSolveIters; iter++ {
			grad := o.gradient(w, target, penalty)
			next := make([]float64, n)
			for i := range next {
				next[i] = w[i] - step*grad[i]
			}
			if o.LongOnly {
				next = projectSimplex(next)
			} else {
				next = projectHyperplane(next)
			}

			moved := 0.0
			for i := range next {
				moved = math.Max(moved, math.Abs(next[i]-w[i]))
			}
			w = next
			if moved < solveTolerance {
				break
			}
		}
	}

	variance := o.portfolioVariance(w)
	if math.IsNaN(variance) || variance < -weightFloor {
		return nil, domain.InfeasibleOptimizationError{Err: fmt.Errorf("solver produced invalid variance %f", variance)}
	}

	return w, nil
}

func (o Optimizer) gradient(w []float64, target *float64, penalty float64) []float64 {
	n := len(w)
	grad := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			grad[i] += 2 * o.Covariance[i][j] * w[j]
		}
	}
	if target != nil {
		shortfall := o.portfolioReturn(w) - *target
		for i := 0; i < n; i++ {
			grad[i] += 2 * penalty * shortfall * o.Means[i]
		}
	}
	return grad
}

// lipschitzBound over-estimates the gradient's Lipschitz constant so a
// fixed step of 1/L is stable.
func (o Optimizer) lipschitzBound(penalty float64) float64 {
	normInf := 0.0
	for i := range o.Covariance {
		rowSum := 0.0
		for j := range o.Covariance[i] {
			rowSum += math.Abs(o.Covariance[i][j])
		}
		normInf = math.Max(normInf, rowSum)
	}
	muSq := 0.0
	for _, m := range o.Means {
		muSq += m * m
	}
	bound := 2*normInf + 2*penalty*muSq
	if bound < solveTolerance {
		return 1
	}
	return bound
}

func (o Optimizer) toFrontierPoint(w []float64) *domain.FrontierPoint {
	weights := domain.WeightVector{}
	for i, symbol := range o.Symbols {
		weights[symbol] = w[i]
	}
	if o.LongOnly {
		weights = weights.Clean(weightFloor)
	}

	cleaned := make([]float64, len(w))
	for i, symbol := range o.Symbols {
		cleaned[i] = weights[symbol]
	}

	return &domain.FrontierPoint{
		ExpectedReturn: o.portfolioReturn(cleaned),
		Volatility:     math.Sqrt(math.Max(0, o.portfolioVariance(cleaned))),
		Weights:        weights,
	}
}

// projectSimplex is the Duchi et al. Euclidean projection onto
// {w : w >= 0, sum(w) = 1}.
func projectSimplex(v []float64) []float64 {
	n := len(v)
	sorted := append([]float64{}, v...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	cumulative := 0.0
	rho := -1
	theta := 0.0
	for i := 0; i < n; i++ {
		cumulative += sorted[i]
		t := (cumulative - 1) / float64(i+1)
		if sorted[i]-t > 0 {
			rho = i
			theta = t
		}
	}
	if rho < 0 {
		// all mass below threshold, fall back to uniform
		out := make([]float64, n)
		for i := range out {
			out[i] = 1.0 / float64(n)
		}
		return out
	}

	out := make([]float64, n)
	for i := range v {
		out[i] = math.Max(0, v[i]-theta)
	}
	return out
}

// projectHyperplane projects onto {w : sum(w) = 1}, used when shorting
// is allowed.
func projectHyperplane(v []float64) []float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	shift := (sum - 1) / float64(len(v))
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x - shift
	}
	return out
}

func sharpeAt(p *domain.FrontierPoint, riskFreeRate float64) float64 {
	if p.Volatility == 0 {
		return math.Inf(-1)
	}
	return (p.ExpectedReturn - riskFreeRate) / p.Volatility
}

func pickBetterSharpe(best *domain.FrontierPoint, bestSharpe float64, candidate *domain.FrontierPoint, riskFreeRate float64) (*domain.FrontierPoint, float64) {
	candidateSharpe := sharpeAt(candidate, riskFreeRate)
	if candidateSharpe > bestSharpe+sharpeTolerance {
		return candidate, candidateSharpe
	}
	if math.Abs(candidateSharpe-bestSharpe) <= sharpeTolerance && candidate.Volatility < best.Volatility {
		return candidate, candidateSharpe
	}
	return best, bestSharpe
}

func maxFloat(values []float64) float64 {
	out := math.Inf(-1)
	for _, v := range values {
		out = math.Max(out, v)
	}
	return out
}

func minFloat(values []float64) float64 {
	out := math.Inf(1)
	for _, v := range values {
		out = math.Min(out, v)
	}
	return out
}
