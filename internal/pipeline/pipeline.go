// Package pipeline is the signal entry point: it validates the ticker, fetches
// every category concurrently through the fallback resolver, aggregates the
// categories and scores the result into one Signal.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/signalforge/internal/analysis/fundamental"
	"github.com/newthinker/signalforge/internal/analysis/options"
	"github.com/newthinker/signalforge/internal/analysis/smartmoney"
	"github.com/newthinker/signalforge/internal/analysis/technical"
	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/metrics"
	"github.com/newthinker/signalforge/internal/provider"
	"github.com/newthinker/signalforge/internal/resolver"
	"github.com/newthinker/signalforge/internal/scorer"
	"github.com/newthinker/signalforge/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a whole pipeline run
const DefaultTimeout = 30 * time.Second

// Config holds the scoring parameters of a run
type Config struct {
	Timeout        time.Duration
	Weights        scorer.Weights
	Thresholds     scorer.Thresholds
	RiskFreeRate   float64
	OptionSide     options.Side
	PEThreshold    float64
	InsiderWindow  time.Duration
	CongressWindow time.Duration
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		Timeout:        DefaultTimeout,
		Weights:        scorer.DefaultWeights(),
		Thresholds:     scorer.DefaultThresholds(),
		RiskFreeRate:   options.DefaultRiskFreeRate,
		OptionSide:     options.Short,
		PEThreshold:    fundamental.DefaultPEThreshold,
		InsiderWindow:  smartmoney.DefaultInsiderWindow,
		CongressWindow: smartmoney.DefaultCongressWindow,
	}
}

// Recorder receives run-level metrics
type Recorder interface {
	RecordPipelineRun(outcome string, duration time.Duration)
	RecordSignal(s core.Signal)
}

// Sink receives every produced signal. Sink failures are logged and never
// affect the returned signal.
type Sink interface {
	Save(ctx context.Context, s core.Signal) error
}

// Pipeline holds long-lived collaborators only; every run owns its results.
type Pipeline struct {
	cfg      Config
	resolver *resolver.Resolver
	scorer   *scorer.Scorer
	logger   *zap.Logger
	recorder Recorder
	sinks    []Sink
	now      func() time.Time
}

// Option configures the pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithSink adds a signal sink
func WithSink(s Sink) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.sinks = append(p.sinks, s)
		}
	}
}

// WithClock sets the evaluation clock
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a pipeline
func New(cfg Config, r *resolver.Resolver, opts ...Option) *Pipeline {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.OptionSide == "" {
		cfg.OptionSide = options.Short
	}
	p := &Pipeline{
		cfg:      cfg,
		resolver: r,
		scorer:   scorer.New(cfg.Thresholds),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run produces a signal for a raw ticker symbol. It fails only for an
// invalid ticker or an unusable configuration, both before any fetch; any
// data problem is absorbed into the signal.
func (p *Pipeline) Run(ctx context.Context, raw string) (core.Signal, error) {
	start := time.Now()

	ticker, err := core.ParseTicker(raw)
	if err != nil {
		p.recordRun(metrics.OutcomeInvalid, start)
		return core.Signal{}, err
	}
	if err := p.resolver.Validate(); err != nil {
		p.recordRun(metrics.OutcomeConfigError, start)
		return core.Signal{}, err
	}

	ctx, span := tracing.StartSpan(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(attribute.String("ticker", ticker.String()))

	evalDate := p.now()
	categories := p.collect(ctx, ticker, evalDate)

	result := p.scorer.Score(categories)
	for i, c := range p.scorer.Breakdown(categories) {
		categories[i].Contribution = c.Share
	}
	sig := core.Signal{
		ID:             uuid.NewString(),
		Ticker:         ticker,
		Decision:       result.Decision,
		CompositeScore: result.Composite,
		Confidence:     result.Confidence,
		CategoryScores: categories,
		GeneratedAt:    evalDate,
	}
	span.SetAttributes(
		attribute.String("decision", string(sig.Decision)),
		attribute.Float64("composite", sig.CompositeScore),
	)

	outcome := metrics.OutcomeOK
	if sig.Degraded() {
		outcome = metrics.OutcomeDegraded
	}
	p.recordRun(outcome, start)
	if p.recorder != nil {
		p.recorder.RecordSignal(sig)
	}

	for _, s := range p.sinks {
		if err := s.Save(ctx, sig); err != nil {
			p.logger.Warn("signal sink failed", zap.String("id", sig.ID), zap.Error(err))
		}
	}

	fields := []zap.Field{
		zap.String("id", sig.ID),
		zap.String("ticker", ticker.String()),
		zap.String("decision", string(sig.Decision)),
		zap.Float64("composite", sig.CompositeScore),
		zap.Float64("confidence", sig.Confidence),
		zap.Duration("duration", time.Since(start)),
	}
	p.logger.Info("signal generated", append(fields, tracing.Fields(ctx)...)...)

	return sig, nil
}

// collect runs the four category tasks concurrently and joins them under the
// pipeline deadline. Categories still running at the deadline are degraded.
func (p *Pipeline) collect(ctx context.Context, ticker core.Ticker, evalDate time.Time) []core.CategoryScore {
	runCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	tasks := map[core.Category]func(context.Context) core.CategoryScore{
		core.CategoryTechnical: func(ctx context.Context) core.CategoryScore {
			series := resolver.Resolve[core.PriceSeries](ctx, p.resolver, ticker, provider.PriceHistory)
			return technical.Analyze(series, p.cfg.Weights.Technical)
		},
		core.CategoryFundamental: func(ctx context.Context) core.CategoryScore {
			f := resolver.Resolve[core.Fundamentals](ctx, p.resolver, ticker, provider.Fundamentals)
			return fundamental.Analyze(f, p.cfg.Weights.Fundamental, fundamental.Config{PEThreshold: p.cfg.PEThreshold})
		},
		core.CategoryOptions: func(ctx context.Context) core.CategoryScore {
			chain := resolver.Resolve[core.OptionsChain](ctx, p.resolver, ticker, provider.OptionsChain)
			return options.Analyze(chain, p.cfg.Weights.Options, options.Config{
				RiskFreeRate: p.cfg.RiskFreeRate,
				Side:         p.cfg.OptionSide,
				Now:          evalDate,
			})
		},
		core.CategorySmartMoney: func(ctx context.Context) core.CategoryScore {
			return smartmoney.Analyze(p.smartMoneyInputs(ctx, ticker), p.cfg.Weights.SmartMoney, smartmoney.Config{
				Now:            evalDate,
				InsiderWindow:  p.cfg.InsiderWindow,
				CongressWindow: p.cfg.CongressWindow,
			})
		},
	}

	results := make(chan core.CategoryScore, len(tasks))
	for c, task := range tasks {
		go func(c core.Category, task func(context.Context) core.CategoryScore) {
			taskCtx, span := tracing.StartSpan(runCtx, "category."+string(c))
			defer span.End()
			cs := task(taskCtx)
			cs.Category = c
			span.SetAttributes(attribute.Float64("confidence", cs.Confidence))
			results <- cs
		}(c, task)
	}

	done := make(map[core.Category]core.CategoryScore, len(tasks))
wait:
	for len(done) < len(tasks) {
		select {
		case cs := <-results:
			done[cs.Category] = cs
		case <-runCtx.Done():
			break wait
		}
	}

	ordered := make([]core.CategoryScore, 0, len(tasks))
	for _, c := range core.Categories() {
		cs, ok := done[c]
		if !ok {
			p.logger.Warn("category did not finish before deadline",
				zap.String("ticker", ticker.String()),
				zap.String("category", string(c)),
			)
			cs = core.DegradedCategory(c, p.cfg.Weights.Of(c), core.ReasonPipelineTimeout)
		}
		ordered = append(ordered, cs)
	}
	return ordered
}

// smartMoneyInputs resolves the three smart-money feeds concurrently
func (p *Pipeline) smartMoneyInputs(ctx context.Context, ticker core.Ticker) smartmoney.Inputs {
	var in smartmoney.Inputs
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		in.Insider = resolver.Resolve[[]core.InsiderTransaction](ctx, p.resolver, ticker, provider.Insider)
	}()
	go func() {
		defer wg.Done()
		in.Institutional = resolver.Resolve[[]core.InstitutionalHolder](ctx, p.resolver, ticker, provider.Institutional)
	}()
	go func() {
		defer wg.Done()
		in.Congress = resolver.Resolve[[]core.CongressTrade](ctx, p.resolver, ticker, provider.Congress)
	}()
	wg.Wait()
	return in
}

func (p *Pipeline) recordRun(outcome string, start time.Time) {
	if p.recorder != nil {
		p.recorder.RecordPipelineRun(outcome, time.Since(start))
	}
}
