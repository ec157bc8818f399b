package pipeline

import (
	"context"
	"encoding/json"

	"github.com/matzehuels/nocsched/pkg/cache"
	"github.com/matzehuels/nocsched/pkg/noc"
	"github.com/matzehuels/nocsched/pkg/noc/routing"
	"github.com/matzehuels/nocsched/pkg/observability"
	"github.com/matzehuels/nocsched/pkg/render"
)

// RenderOptions configures [Runner.RenderWithCacheInfo].
type RenderOptions struct {
	Format    render.Format
	Highlight routing.Path
	Spacing   float64
}

// TopologyHash returns a content hash of t.
func TopologyHash(t *noc.Topology) string {
	data, _ := json.Marshal(struct {
		Nodes []noc.Node `json:"nodes"`
		Links []noc.Link `json:"links"`
	}{t.Nodes(), t.Links()})
	return cache.Hash(data)
}

// RenderWithCacheInfo draws t in the requested format with caching and
// returns cache hit info. DOT output is produced directly and never cached.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, t *noc.Topology, opts RenderOptions) ([]byte, bool, error) {
	if opts.Format == "" {
		opts.Format = render.FormatSVG
	}
	dot := render.ToDOT(t, render.Options{Highlight: opts.Highlight, Spacing: opts.Spacing})
	if opts.Format == render.FormatDOT {
		return []byte(dot), false, nil
	}

	cacheKey := r.Keyer.RenderKey(TopologyHash(t), cache.RenderKeyOpts{
		Format:    string(opts.Format),
		Highlight: opts.Highlight.Labels(),
	})
	hooks := observability.Cache()

	if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
		hooks.OnCacheHit(ctx, "render")
		return data, true, nil
	}
	hooks.OnCacheMiss(ctx, "render")

	data, err := render.Render(ctx, dot, opts.Format)
	if err != nil {
		return nil, false, err
	}
	if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLRender); err == nil {
		hooks.OnCacheSet(ctx, "render", len(data))
	}
	return data, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, t *noc.Topology, opts RenderOptions) ([]byte, error) {
	data, _, err := r.RenderWithCacheInfo(ctx, t, opts)
	return data, err
}
