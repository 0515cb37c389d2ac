// Package pipeline runs a becmodel classification end to end: load inputs,
// classify, filter, vectorize and record the run.
package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/becmodel/internal/aspect"
	"github.com/sells-group/becmodel/internal/classify"
	"github.com/sells-group/becmodel/internal/config"
	"github.com/sells-group/becmodel/internal/grid"
	"github.com/sells-group/becmodel/internal/highelev"
	"github.com/sells-group/becmodel/internal/model"
	"github.com/sells-group/becmodel/internal/postfilter"
	"github.com/sells-group/becmodel/internal/rules"
	"github.com/sells-group/becmodel/internal/store"
	"github.com/sells-group/becmodel/internal/vectorize"
	"github.com/sells-group/becmodel/internal/zone"
)

// Options control side outputs of a run.
type Options struct {
	// Overwrite removes the workspace, including cached slope and aspect,
	// before loading.
	Overwrite bool
	// QA writes every intermediate grid into the workspace.
	QA bool
	// ConfigLogDir receives the config log; empty disables it.
	ConfigLogDir string
}

// Pipeline runs the model for one configuration.
type Pipeline struct {
	cfg   *config.Config
	store store.Store
	sink  store.FeatureSink
	opts  Options
	now   func() time.Time
}

// New creates a Pipeline. st may be nil to run without a ledger; when
// features should be saved st must also implement store.FeatureSink.
func New(cfg *config.Config, st store.Store, opts Options) *Pipeline {
	p := &Pipeline{cfg: cfg, store: st, opts: opts, now: time.Now}
	if cfg.Store.SaveFeatures {
		if sink, ok := st.(store.FeatureSink); ok {
			p.sink = sink
		}
	}
	return p
}

// Output is the result of a completed run.
type Output struct {
	RunID    string
	Result   model.RunResult
	Features []vectorize.Feature
	Grids    *Grids
	Stages   []model.StageResult
}

// Grids holds every raster a run produces, in processing order.
type Grids struct {
	Transform    grid.Transform
	Rules        *grid.Grid[int32]
	RulesExpand  *grid.Grid[int32]
	Aspect       *grid.Grid[uint16]
	Initial      *grid.Grid[uint16]
	Filters      *postfilter.Result
	HighElev     *grid.Grid[uint16]
	Registry     *zone.Registry
	Plan         *highelev.Plan
	Unclassified int
}

// Run executes the model. A failure is recorded on the run before it is
// returned.
func (p *Pipeline) Run(ctx context.Context) (*Output, error) {
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("config", p.cfg.File()))
	start := p.now()
	out := &Output{}

	if p.opts.Overwrite {
		if err := os.RemoveAll(p.cfg.Output.TempFolder); err != nil {
			return nil, eris.Wrapf(err, "pipeline: clear workspace %s", p.cfg.Output.TempFolder)
		}
	}

	var run *model.Run
	if p.store != nil {
		// connection strings can carry credentials
		snapshot := *p.cfg
		snapshot.Store.DatabaseURL = ""
		raw, err := yaml.Marshal(snapshot)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: marshal config")
		}
		run, err = p.store.CreateRun(ctx, p.cfg.File(), raw)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		out.RunID = run.ID
		log = log.With(zap.String("run_id", run.ID))
	}

	setStatus := func(status model.RunStatus) {
		if run == nil {
			return
		}
		if err := p.store.UpdateRunStatus(ctx, run.ID, status); err != nil {
			log.Warn("pipeline: failed to update status", zap.Error(err))
		}
	}

	trackStage := func(name string, fn func() (map[string]any, error)) error {
		var stage *model.RunStage
		if run != nil {
			var err error
			stage, err = p.store.CreateStage(ctx, run.ID, name)
			if err != nil {
				log.Warn("pipeline: failed to create stage", zap.String("stage", name), zap.Error(err))
			}
		}

		begin := time.Now()
		meta, fnErr := fn()
		res := model.StageResult{
			Name:       name,
			DurationMS: time.Since(begin).Milliseconds(),
			Metadata:   meta,
		}
		if fnErr != nil {
			res.Status = model.StageStatusFailed
			res.Error = fnErr.Error()
			log.Error("pipeline: stage failed",
				zap.String("stage", name),
				zap.Int64("duration_ms", res.DurationMS),
				zap.Error(fnErr),
			)
		} else {
			res.Status = model.StageStatusComplete
			log.Info("pipeline: stage complete",
				zap.String("stage", name),
				zap.Int64("duration_ms", res.DurationMS),
			)
		}

		if stage != nil {
			if err := p.store.CompleteStage(ctx, stage.ID, &res); err != nil {
				log.Warn("pipeline: failed to complete stage", zap.String("stage", name), zap.Error(err))
			}
		}
		out.Stages = append(out.Stages, res)
		return fnErr
	}

	fail := func(err error) (*Output, error) {
		if run != nil {
			if ferr := p.store.FailRun(ctx, run.ID, err.Error()); ferr != nil {
				log.Warn("pipeline: failed to record failure", zap.Error(ferr))
			}
		}
		return out, err
	}

	// ===== Load =====
	setStatus(model.RunStatusLoading)

	var in *Inputs
	if err := trackStage("load", func() (map[string]any, error) {
		var err error
		in, err = Load(ctx, p.cfg)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"bands":         len(in.Bands),
			"rule_polygons": len(in.Rules),
			"rows":          in.Terrain.Rows(),
			"cols":          in.Terrain.Cols(),
		}, nil
	}); err != nil {
		return fail(err)
	}

	var reg *zone.Registry
	if err := trackStage("validate", func() (map[string]any, error) {
		var err error
		reg, err = newRegistry(in)
		if err != nil {
			return nil, err
		}
		return map[string]any{"labels": reg.Len()}, nil
	}); err != nil {
		return fail(err)
	}

	// ===== Classify =====
	setStatus(model.RunStatusClassifying)

	grids, err := p.classifyGrids(ctx, in, reg, setStatus, trackStage)
	out.Grids = grids
	if err != nil {
		return fail(err)
	}

	// ===== Write =====
	setStatus(model.RunStatusWriting)

	if err := trackStage("vectorize", func() (map[string]any, error) {
		features, err := vectorize.Polygonize(grids.HighElev, grids.Rules, grids.Transform, p.cfg.Model.Connectivity(), reg.Lookup())
		if err != nil {
			return nil, err
		}
		out.Features = features
		if err := vectorize.Write(ctx, p.cfg.Output.File, p.cfg.Output.Layer, features, p.cfg.Output.SRID); err != nil {
			return nil, err
		}
		return map[string]any{"features": len(features), "out_file": p.cfg.Output.File}, nil
	}); err != nil {
		return fail(err)
	}

	if p.sink != nil && run != nil {
		if err := trackStage("save_features", func() (map[string]any, error) {
			n, err := p.sink.SaveFeatures(ctx, run.ID, out.Features, p.cfg.Output.SRID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"rows": n}, nil
		}); err != nil {
			return fail(err)
		}
	}

	if p.opts.QA {
		if err := trackStage("qa", func() (map[string]any, error) {
			n, err := WriteQA(p.cfg.Output.TempFolder, in, grids)
			return map[string]any{"grids": n}, err
		}); err != nil {
			return fail(err)
		}
	}

	if p.opts.ConfigLogDir != "" {
		path, err := WriteConfigLog(p.opts.ConfigLogDir, p.cfg, start)
		if err != nil {
			return fail(err)
		}
		log.Info("pipeline: config logged", zap.String("path", path))
	}

	out.Result = model.RunResult{
		OutFile:      p.cfg.Output.File,
		Rows:         grids.HighElev.Rows,
		Cols:         grids.HighElev.Cols,
		Features:     len(out.Features),
		Labels:       reg.Len(),
		MergeRules:   len(grids.Plan.Rules),
		TotalAreaHA:  totalArea(out.Features),
		DurationMS:   time.Since(start).Milliseconds(),
		Unclassified: grids.Unclassified,
	}
	if run != nil {
		if err := p.store.UpdateRunResult(ctx, run.ID, &out.Result); err != nil {
			log.Warn("pipeline: failed to save result", zap.Error(err))
		}
	}

	log.Info("pipeline: complete",
		zap.String("out_file", out.Result.OutFile),
		zap.Int("features", out.Result.Features),
		zap.Float64("total_area_ha", out.Result.TotalAreaHA),
		zap.Int64("duration_ms", out.Result.DurationMS),
	)
	return out, nil
}

// classifyGrids runs the raster stages from rule rasterization to the high
// elevation filter.
func (p *Pipeline) classifyGrids(ctx context.Context, in *Inputs, reg *zone.Registry, setStatus func(model.RunStatus), trackStage func(string, func() (map[string]any, error)) error) (*Grids, error) {
	m := p.cfg.Model
	t := in.Terrain
	g := &Grids{Transform: t.Transform, Registry: reg}

	if err := trackStage("rasterize", func() (map[string]any, error) {
		g.Rules = rules.Rasterize(in.Rules, t.Transform, t.Rows(), t.Cols())
		g.RulesExpand = rules.Expand(g.Rules, float64(m.ExpandBoundsCells()))
		return map[string]any{
			"rule_cells":     g.Rules.Len() - g.Rules.Count(0),
			"expanded_cells": g.RulesExpand.Len() - g.RulesExpand.Count(0),
		}, nil
	}); err != nil {
		return g, err
	}

	if err := trackStage("classify", func() (map[string]any, error) {
		mids := m.Midpoints()
		flat, err := aspect.Flatten(t.Aspect, t.Slope, m.AspectNeutralSlopeThresholdPct, mids.NeutralEast)
		if err != nil {
			return nil, err
		}
		g.Aspect = flat
		g.Initial, err = classify.Classify(in.Bands, reg, mids, classify.Inputs{
			Rules:     g.RulesExpand,
			Elevation: t.DEM.Data,
			Aspect:    flat,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"unclassified_cells": g.Initial.Count(zone.NoCode)}, nil
	}); err != nil {
		return g, err
	}

	if err := ctx.Err(); err != nil {
		return g, eris.Wrap(err, "pipeline: context cancelled")
	}

	var plan *highelev.Plan
	if err := trackStage("plan", func() (map[string]any, error) {
		var err error
		plan, err = highelev.NewPlan(in.Bands, reg, m.Matcher())
		if err != nil {
			return nil, err
		}
		g.Plan = plan
		tiers := make([]string, 0, 4)
		for _, tier := range plan.Tiers() {
			tiers = append(tiers, string(tier))
		}
		return map[string]any{"merge_rules": len(plan.Rules), "tiers": tiers}, nil
	}); err != nil {
		return g, err
	}

	setStatus(model.RunStatusFiltering)

	if err := trackStage("postfilter", func() (map[string]any, error) {
		res, err := postfilter.Run(ctx, g.Initial, postfilter.Inputs{Rules: g.RulesExpand, Slope: t.Slope}, plan, reg.Codes(), reg.MaxCode(), postfilter.Options{
			LowSize:      m.FilterSizeLow(),
			SteepSize:    m.FilterSizeSteep(),
			SteepPercent: m.MajoritySteepSlopeThresholdPct,
			NoiseCells:   m.NoiseThresholdCells(),
			Connectivity: m.Connectivity(),
		})
		if err != nil {
			return nil, err
		}
		g.Filters = res
		return map[string]any{
			"filter_size_low":   m.FilterSizeLow(),
			"filter_size_steep": m.FilterSizeSteep(),
			"noise_cells":       m.NoiseThresholdCells(),
		}, nil
	}); err != nil {
		return g, err
	}

	if err := trackStage("highelev", func() (map[string]any, error) {
		final, err := highelev.Filter(g.Filters.Filled, g.RulesExpand, plan, m.HighElevationThresholdCells(), m.Connectivity())
		if err != nil {
			return nil, err
		}
		g.HighElev = final
		g.Unclassified = unclassified(final, g.Rules)
		return map[string]any{
			"threshold_cells":    m.HighElevationThresholdCells(),
			"unclassified_cells": g.Unclassified,
		}, nil
	}); err != nil {
		return g, err
	}
	return g, nil
}

func newRegistry(in *Inputs) (*zone.Registry, error) {
	if in.Catalogue == nil {
		return zone.NewRegistry(in.Bands), nil
	}
	return zone.NewRegistryFromCatalogue(in.Bands, in.Catalogue)
}

// unclassified counts cells inside the rule footprint left without a code.
func unclassified(g *grid.Grid[uint16], footprint *grid.Grid[int32]) int {
	n := 0
	for i, v := range g.Data {
		if v == zone.NoCode && footprint.Data[i] != 0 {
			n++
		}
	}
	return n
}

func totalArea(features []vectorize.Feature) float64 {
	var sum float64
	for _, f := range features {
		sum += f.AreaHa
	}
	return sum
}
