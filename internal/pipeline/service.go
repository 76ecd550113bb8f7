package pipeline

import (
	"context"
	"sort"
	"time"

	"predictd/internal/registry"
	"predictd/pkg/types"
)

// Models lists artifacts on disk merged with the registry cache. Cached
// entries that no longer exist on disk are still reported.
func (p *Pipeline) Models() (types.ModelsResponse, error) {
	byID := make(map[string]types.ModelStatus)
	for _, st := range p.registry.Snapshot() {
		byID[st.ID] = st
	}
	if p.catalog != nil {
		ids, err := p.catalog.Available()
		if err != nil {
			return types.ModelsResponse{}, err
		}
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				byID[id] = types.ModelStatus{ID: id, State: string(registry.StateUnloaded)}
			}
		}
	}
	out := make([]types.ModelStatus, 0, len(byID))
	for _, st := range byID {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return types.ModelsResponse{Models: out}, nil
}

// Status reports registry, staging and pool state.
func (p *Pipeline) Status() types.StatusResponse {
	stats := p.pool.Stats()
	loads, failures := p.registry.Counters()
	now := time.Now()
	return types.StatusResponse{
		Models:            p.registry.Snapshot(),
		ActiveUploads:     p.staging.Active(),
		Workers:           stats.Workers,
		QueueLen:          stats.QueueLen,
		MaxQueueDepth:     stats.Depth,
		Inflight:          stats.Inflight,
		LoadsTotal:        uint64(loads),
		LoadFailuresTotal: uint64(failures),
		UptimeSeconds:     int64(now.Sub(p.started).Seconds()),
		ServerTimeUnix:    now.Unix(),
	}
}

// History returns the newest recorded predictions.
func (p *Pipeline) History(ctx context.Context, limit int) (types.HistoryResponse, error) {
	if p.history == nil {
		return types.HistoryResponse{}, ErrHistoryDisabled
	}
	entries, err := p.history.Recent(ctx, limit)
	if err != nil {
		return types.HistoryResponse{}, err
	}
	return types.HistoryResponse{Entries: entries}, nil
}

// Ready reports whether every required model is loaded. With no required
// models the pipeline is always ready; models load on first use.
func (p *Pipeline) Ready() bool {
	if len(p.required) == 0 {
		return true
	}
	return p.registry.Ready(p.required...)
}
