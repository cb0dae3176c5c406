// Package borrowck checks the borrow discipline of MiniRust MIR function
// bodies: every value is initialized before use, nothing is written through
// a shared borrow, no use conflicts with an active borrow, and no borrow
// outlives the data it points to.
//
// The analysis runs in strict phases. Lifetime constraints are collected
// from the body and solved first; the resulting lifetime sets are then
// frozen and drive the computation of active borrows, which the aliasing
// rules consume.
package borrowck

import (
	"time"

	"github.com/BarrensZeppelin/borrowck/config"
	"github.com/BarrensZeppelin/borrowck/internal/dataflow"
	"github.com/BarrensZeppelin/borrowck/mir"
)

type AnalysisConfig struct {
	Body *mir.Body

	// Options selects the rule families to run. A nil value runs all of them.
	Options *config.Config

	// Log receives per-pass statistics and, at trace level, per-point results.
	// A nil value disables logging.
	Log *config.LogGroup
}

// Result exposes the intermediate analyses of a body.
type Result struct {
	Outlives  *OutlivesGraph
	Live      *LiveLocals
	Lifetimes *LifetimeSets
	Uninit    *UninitPlaces
	Borrows   *ActiveBorrows
}

// Analyze runs all analyses on the body and then the enabled rule families,
// in the order initialization, mutability, lifetimes, aliasing. The result is
// returned even when a rule is violated; the error is the first violation, a
// *diag.Error. Structurally malformed bodies are reported with a plain error
// wrapping mir.ErrMalformed.
func Analyze(config AnalysisConfig) (*Result, error) {
	body := config.Body
	if err := body.Validate(); err != nil {
		return nil, err
	}

	opts := config.Options
	if opts == nil {
		opts = defaultOptions()
	}
	logger := config.Log

	start := time.Now()
	cfg := dataflow.NewCFG(body)
	space := newPointSpace(body)
	gen := mir.NewLifetimeGen(body.MaxFresh())

	res := &Result{}
	res.Outlives = buildOutlives(body, gen)
	res.Live = computeLiveLocals(body, cfg)
	res.Lifetimes = solveLifetimes(res.Outlives, livingConstraints(body, space, res.Live), space)
	logger.Debugf("%s: %d lifetimes, %d outlives edges (%v)",
		body.Name, len(res.Outlives.Lifetimes()), res.Outlives.NumEdges(), time.Since(start))

	if logger.LogsTrace() {
		for _, l := range res.Outlives.Lifetimes() {
			logger.Tracef("%s: %v outlives %v, alive at %v",
				body.Name, l, res.Outlives.Shorter(l), res.Lifetimes.Points(l))
		}
	}

	res.Uninit = computeUninit(body, cfg)
	res.Borrows = computeActiveBorrows(body, cfg, res.Lifetimes)
	logger.Debugf("%s: dataflow analyses done (%v)", body.Name, time.Since(start))

	if logger.LogsTrace() {
		for l := range body.Code {
			lbl := mir.Label(l)
			logger.Tracef("%s: L%d %v uninit=%v active=%v", body.Name, l,
				body.Instr(lbl), res.Uninit.At(lbl), res.Borrows.At(lbl))
		}
	}

	for _, c := range ruleFamilies(body, cfg, res) {
		if !opts.Enabled(c.name) {
			logger.Infof("%s: skipping %s checks", body.Name, c.name)
			continue
		}
		if err := c.run(); err != nil {
			logger.Debugf("%s: %s check failed: %v", body.Name, c.name, err)
			return res, err
		}
	}

	logger.Debugf("%s: checked in %v", body.Name, time.Since(start))
	return res, nil
}

// Check reports the first violation of the borrow discipline in the body, or
// nil if the body is accepted.
func Check(config AnalysisConfig) error {
	_, err := Analyze(config)
	return err
}

func defaultOptions() *config.Config {
	return config.NewDefault()
}

type ruleFamily struct {
	name string
	run  func() error
}

func ruleFamilies(body *mir.Body, cfg *dataflow.CFG, res *Result) []ruleFamily {
	return []ruleFamily{
		{config.CheckInit, func() error { return checkInitialization(body, cfg, res.Uninit) }},
		{config.CheckMutability, func() error { return checkMutability(body, cfg) }},
		{config.CheckLifetimes, func() error { return checkSignature(body, res.Lifetimes) }},
		{config.CheckAliasing, func() error { return checkAliasing(body, cfg, res.Borrows) }},
	}
}
