package storage

import (
	"context"
	"sort"
	"sync"

	"proteus/internal/model"
)

type MemoryStore struct {
	mu            sync.RWMutex
	initialized   bool
	runs          map[string]model.RunRecord
	wirings       map[string]model.WiringRecord
	metrics       map[string][]model.MetricsWindowRecord
	distributions map[string]model.ExotypeDistribution
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.wirings = make(map[string]model.WiringRecord)
	s.metrics = make(map[string][]model.MetricsWindowRecord)
	s.distributions = make(map[string]model.ExotypeDistribution)
	return nil
}

// Reset drops every stored record. The store stays initialized.
func (s *MemoryStore) Reset(ctx context.Context) error {
	return s.Init(ctx)
}

func (s *MemoryStore) SaveRunRecord(_ context.Context, rec model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[rec.RunID] = cloneRunRecord(rec)
	return nil
}

func (s *MemoryStore) GetRunRecord(_ context.Context, runID string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[runID]
	if !ok {
		return model.RunRecord{}, false, nil
	}
	return cloneRunRecord(rec), true, nil
}

func (s *MemoryStore) ListRunIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteRun removes the record and everything derived from it.
func (s *MemoryStore) DeleteRun(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.runs, runID)
	delete(s.metrics, runID)
	delete(s.distributions, runID)
	return nil
}

func (s *MemoryStore) SaveWiring(_ context.Context, rec model.WiringRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wirings[rec.ID] = rec
	return nil
}

func (s *MemoryStore) GetWiring(_ context.Context, id string) (model.WiringRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.wirings[id]
	return rec, ok, nil
}

func (s *MemoryStore) ListWirings(_ context.Context) ([]model.WiringRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.WiringRecord, 0, len(s.wirings))
	for _, rec := range s.wirings {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SaveMetrics(_ context.Context, runID string, windows []model.MetricsWindowRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.MetricsWindowRecord, len(windows))
	copy(copied, windows)
	s.metrics[runID] = copied
	return nil
}

func (s *MemoryStore) GetMetrics(_ context.Context, runID string) ([]model.MetricsWindowRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	windows, ok := s.metrics[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.MetricsWindowRecord, len(windows))
	copy(copied, windows)
	return copied, true, nil
}

func (s *MemoryStore) SaveDistribution(_ context.Context, dist model.ExotypeDistribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.distributions[dist.RunID] = cloneDistribution(dist)
	return nil
}

func (s *MemoryStore) GetDistribution(_ context.Context, runID string) (model.ExotypeDistribution, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dist, ok := s.distributions[runID]
	if !ok {
		return model.ExotypeDistribution{}, false, nil
	}
	return cloneDistribution(dist), true, nil
}

// cloneRunRecord deep-copies everything reachable from a record, so callers
// can never mutate stored state through a returned value.
func cloneRunRecord(rec model.RunRecord) model.RunRecord {
	out := rec
	out.GenotypeHistory = append([]string(nil), rec.GenotypeHistory...)
	out.PhenotypeHistory = append([]string(nil), rec.PhenotypeHistory...)
	out.HexagramByTick = append([]int(nil), rec.HexagramByTick...)
	if rec.Regimes != nil {
		out.Regimes = make(map[string]int, len(rec.Regimes))
		for k, v := range rec.Regimes {
			out.Regimes[k] = v
		}
	}
	if rec.Config.Exotype != nil {
		spec := *rec.Config.Exotype
		spec.WiringIDs = append([]string(nil), rec.Config.Exotype.WiringIDs...)
		out.Config.Exotype = &spec
	}
	return out
}

func cloneDistribution(dist model.ExotypeDistribution) model.ExotypeDistribution {
	out := dist
	if dist.Counts != nil {
		out.Counts = make(map[int]int, len(dist.Counts))
		for k, v := range dist.Counts {
			out.Counts[k] = v
		}
	}
	return out
}
