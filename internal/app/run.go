package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/pipegridgo/internal/backend"
	"github.com/specialistvlad/pipegridgo/internal/builder"
	"github.com/specialistvlad/pipegridgo/internal/ctxlog"
	"github.com/specialistvlad/pipegridgo/internal/localbackend"
)

// Run executes the main application logic: load the definition, assemble
// the graph, emit its document, and optionally run it locally.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	b, err := a.loader.Load(ctx, a.config.PipelinePath)
	if err != nil {
		return fmt.Errorf("failed to load pipeline definition: %w", err)
	}

	g, err := b.Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to assemble pipeline graph: %w", err)
	}
	a.logger.Debug("Pipeline graph assembled.", "pipeline", g.Name(), "node_count", g.NodeCount())

	doc, err := g.Document()
	if err != nil {
		return fmt.Errorf("failed to serialize pipeline document: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode pipeline document: %w", err)
	}
	fmt.Fprintln(a.outW, string(data))

	if !a.config.Execute {
		a.logger.Debug("Execution not requested, stopping after document emission.")
		return nil
	}

	overrides, err := typedOverrides(g, a.config.Overrides)
	if err != nil {
		return err
	}

	var store backend.ArtifactStore
	if a.config.ArtifactsPath != "" {
		store = localbackend.DirStore{Root: a.config.ArtifactsPath}
	} else {
		store = localbackend.NewMemoryStore()
	}

	local := localbackend.New(store, nil)
	exec, err := local.Submit(ctx, g, overrides)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	a.logger.Info("Pipeline run complete.",
		"pipeline", exec.Pipeline,
		"execution_id", exec.ID,
		"duration", exec.FinishedAt.Sub(exec.StartedAt))
	return nil
}

// typedOverrides converts raw name=value override strings into typed values
// using the declared parameter types.
func typedOverrides(g *builder.Graph, raw map[string]string) (map[string]cty.Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	declared := make(map[string]cty.Type)
	for _, p := range g.Parameters() {
		declared[p.Name] = p.Type
	}

	overrides := make(map[string]cty.Value, len(raw))
	for name, value := range raw {
		typ, ok := declared[name]
		if !ok {
			return nil, fmt.Errorf("%w: override for %q", builder.ErrUnknownParameter, name)
		}
		if typ.Equals(cty.Number) {
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("override %q: %q is not a number", name, value)
			}
			overrides[name] = cty.NumberFloatVal(f)
		} else {
			overrides[name] = cty.StringVal(value)
		}
	}
	return overrides, nil
}
