package usecase

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return f.vector, f.err
}

type fakeVectorStore struct {
	chunks    []domain.RetrievedChunk
	err       error
	gotVector []float32
	block     bool
}

func (f *fakeVectorStore) Search(ctx context.Context, vec []float32, limit int) ([]domain.RetrievedChunk, error) {
	f.gotVector = vec
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.RetrievedChunk(nil), f.chunks...), nil
}

// fakeTextStore answers content lookups over an in-memory corpus. totals
// overrides a document's chunk count when the corpus holds only a sample.
type fakeTextStore struct {
	corpus   []domain.RetrievedChunk
	totals   map[string]int
	findErr  error
	rankErr  error
	rankSeen []int

	mu      sync.Mutex
	needles []string
}

func (f *fakeTextStore) FindChunksContaining(_ context.Context, needle string, match domain.TextMatch) ([]domain.RetrievedChunk, error) {
	f.mu.Lock()
	f.needles = append(f.needles, needle)
	f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	out := make([]domain.RetrievedChunk, 0)
	for _, chunk := range f.corpus {
		if len(match.DocumentIDs) > 0 && !slices.Contains(match.DocumentIDs, chunk.DocumentID) {
			continue
		}
		if f.contains(chunk, needle, match.CaseInsensitive) {
			out = append(out, chunk)
		}
		if match.Limit > 0 && len(out) == match.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeTextStore) RankDocumentsByConcept(_ context.Context, concept string, limit int) ([]domain.ConceptDensity, error) {
	f.mu.Lock()
	f.rankSeen = append(f.rankSeen, limit)
	f.mu.Unlock()
	if f.rankErr != nil {
		return nil, f.rankErr
	}
	byDoc := make(map[string]*domain.ConceptDensity)
	for _, chunk := range f.corpus {
		d, ok := byDoc[chunk.DocumentID]
		if !ok {
			d = &domain.ConceptDensity{DocumentID: chunk.DocumentID}
			byDoc[chunk.DocumentID] = d
		}
		d.Total++
		if f.contains(chunk, concept, true) {
			d.Hits++
		}
	}
	out := make([]domain.ConceptDensity, 0, len(byDoc))
	for id, d := range byDoc {
		if f.totals[id] > d.Total {
			d.Total = f.totals[id]
		}
		if d.Hits > 0 {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Density() != out[j].Density() {
			return out[i].Density() > out[j].Density()
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeTextStore) contains(chunk domain.RetrievedChunk, needle string, fold bool) bool {
	content := chunk.Content
	if fold {
		content, needle = strings.ToLower(content), strings.ToLower(needle)
	}
	return strings.Contains(content, needle)
}

type fakeGraphStore struct {
	hits      []domain.GraphHit
	err       error
	gotKeys   []string
	callCount int
}

func (f *fakeGraphStore) FindChunksByEntities(_ context.Context, keywords []string, _ int) ([]domain.GraphHit, error) {
	f.callCount++
	f.gotKeys = keywords
	return f.hits, f.err
}

type observedSearch struct {
	name    string
	results int
	err     error
}

type fakeSearchObserver struct {
	mu       sync.Mutex
	observed []observedSearch
}

func (f *fakeSearchObserver) ObserveSubSearch(name string, results int, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observed = append(f.observed, observedSearch{name: name, results: results, err: err})
}

func (f *fakeSearchObserver) byName(name string) (observedSearch, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.observed {
		if o.name == name {
			return o, true
		}
	}
	return observedSearch{}, false
}

type fakeProfileStore struct {
	profiles map[string]domain.DocumentVisualProfile
	err      error
	lookups  int
}

func (f *fakeProfileStore) GetProfile(_ context.Context, id string) (domain.DocumentVisualProfile, bool, error) {
	f.lookups++
	if f.err != nil {
		return domain.DocumentVisualProfile{}, false, f.err
	}
	p, ok := f.profiles[id]
	return p, ok, nil
}

type fakeRouteStore struct {
	saved map[string]domain.RoutingDecision
	err   error
}

func (f *fakeRouteStore) SaveDocumentRoute(_ context.Context, id string, decision domain.RoutingDecision) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = make(map[string]domain.RoutingDecision)
	}
	f.saved[id] = decision
	return nil
}

type fakeRoutingObserver struct {
	decisions []domain.RoutingDecision
	documents []domain.RoutingDecision
}

func (f *fakeRoutingObserver) ObserveDecision(d domain.RoutingDecision) {
	f.decisions = append(f.decisions, d)
}

func (f *fakeRoutingObserver) ObserveDocumentRoute(d domain.RoutingDecision) {
	f.documents = append(f.documents, d)
}

type panickingDetector struct{}

func (panickingDetector) Detect(string, domain.Language) domain.VisualQuerySignals {
	panic("pattern table corrupted")
}

type fakeQueryRouter struct {
	decisions []domain.RoutingDecision
	requests  []domain.RouteRequest
}

func (f *fakeQueryRouter) Route(_ context.Context, req domain.RouteRequest) domain.RoutingDecision {
	f.requests = append(f.requests, req)
	idx := len(f.requests) - 1
	if idx >= len(f.decisions) {
		idx = len(f.decisions) - 1
	}
	return f.decisions[idx]
}

type fakeSearcher struct {
	chunks []domain.RetrievedChunk
	got    []domain.SearchRequest
}

func (f *fakeSearcher) Search(_ context.Context, req domain.SearchRequest) []domain.RetrievedChunk {
	f.got = append(f.got, req)
	return f.chunks
}

type fakeKeyPhraseExtractor struct {
	concept string
	err     error
	calls   int
}

func (f *fakeKeyPhraseExtractor) Extract(context.Context, string) (string, error) {
	f.calls++
	return f.concept, f.err
}
