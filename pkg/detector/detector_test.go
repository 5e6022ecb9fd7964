package detector

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noesis-kb/noesis/pkg/types"
)

type fakeEmbedder struct {
	calls int
	vec   []float32
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls += len(texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeEmbedder) Dimensions() int { return len(f.vec) }
func (f *fakeEmbedder) Close() error    { return nil }

type fakeIndex struct {
	queries int
	results []types.ScoredUnit
	err     error
}

func (f *fakeIndex) SearchByEmbedding(_ context.Context, _ []float32, _ int) ([]types.ScoredUnit, error) {
	f.queries++
	return f.results, f.err
}

type fakeOracle struct {
	// verdicts maps candidate id to the raw response; errs to a judgment
	// failure for that candidate.
	verdicts map[string]string
	errs     map[string]error
	calls    []string
}

func (f *fakeOracle) Judge(_ context.Context, _, b *types.AtomicUnit) (string, error) {
	f.calls = append(f.calls, b.ID)
	if err, ok := f.errs[b.ID]; ok {
		return "", err
	}
	return f.verdicts[b.ID], nil
}

func (f *fakeOracle) Close() error { return nil }

func testUnit(id string, embedding []float32) *types.AtomicUnit {
	return &types.AtomicUnit{ID: id, Title: "title " + id, Content: "content " + id, Embedding: embedding}
}

func scored(id string, score float64) types.ScoredUnit {
	return types.ScoredUnit{Unit: testUnit(id, []float32{1, 0}), Score: score}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestFindRelatedUnitsEmbedsMissingVectorOnce(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{1, 0}}
	ix := &fakeIndex{results: []types.ScoredUnit{scored("cand", 0.85)}}
	orc := &fakeOracle{verdicts: map[string]string{
		"cand": `{"isRelated": true, "relationshipType": "expands-on", "strength": 0.85, "explanation": "same topic"}`,
	}}
	d := New(emb, ix, orc, quietLogger())

	u := testUnit("u1", nil)
	rels, err := d.FindRelatedUnits(context.Background(), u, 5, 0.8)
	require.NoError(t, err)

	assert.Equal(t, 1, emb.calls)
	assert.Equal(t, 1, ix.queries)
	assert.Equal(t, []float32{1, 0}, u.Embedding)

	require.Len(t, rels, 1)
	rel := rels[0]
	assert.Equal(t, "u1", rel.FromUnit)
	assert.Equal(t, "cand", rel.ToUnit)
	assert.Equal(t, types.RelationExpandsOn, rel.Type)
	assert.InDelta(t, 0.85, rel.Strength, 1e-9)
	assert.Equal(t, "same topic", rel.Explanation)
	assert.Equal(t, types.SourceAutoDetected, rel.Source)
	assert.InDelta(t, 0.85, rel.Confidence, 1e-9)
	assert.NotEmpty(t, rel.ID)
}

func TestFindRelatedUnitsReusesExistingEmbedding(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{1, 0}}
	ix := &fakeIndex{}
	d := New(emb, ix, &fakeOracle{}, quietLogger())

	_, err := d.FindRelatedUnits(context.Background(), testUnit("u1", []float32{0, 1}), 5, 0)
	require.NoError(t, err)
	assert.Zero(t, emb.calls)
	assert.Equal(t, 1, ix.queries)
}

func TestFindRelatedUnitsDiscardsSelfAndBelowFloor(t *testing.T) {
	ix := &fakeIndex{results: []types.ScoredUnit{
		scored("u1", 1.0),
		scored("near", 0.9),
		scored("far", 0.5),
	}}
	orc := &fakeOracle{verdicts: map[string]string{
		"near": `{"isRelated": true, "relationshipType": "related", "strength": 0.8}`,
	}}
	d := New(&fakeEmbedder{}, ix, orc, quietLogger())

	rels, err := d.FindRelatedUnits(context.Background(), testUnit("u1", []float32{1}), 5, 0.8)
	require.NoError(t, err)

	// The oracle must only ever see the surviving candidate.
	assert.Equal(t, []string{"near"}, orc.calls)
	require.Len(t, rels, 1)
	assert.Equal(t, "near", rels[0].ToUnit)
}

func TestFindRelatedUnitsFiltersWeakAndUnrelatedVerdicts(t *testing.T) {
	ix := &fakeIndex{results: []types.ScoredUnit{
		scored("weak", 0.9),
		scored("boundary", 0.9),
		scored("unrelated", 0.9),
		scored("garbled", 0.9),
		scored("good", 0.9),
	}}
	orc := &fakeOracle{verdicts: map[string]string{
		"weak":      `{"isRelated": true, "relationshipType": "related", "strength": 0.3}`,
		"boundary":  `{"isRelated": true, "relationshipType": "related", "strength": 0.5}`,
		"unrelated": `{"isRelated": false, "relationshipType": "related", "strength": 0.95}`,
		"garbled":   `the model forgot to answer in JSON`,
		"good":      `{"isRelated": true, "relationshipType": "related", "strength": 0.7}`,
	}}
	d := New(&fakeEmbedder{}, ix, orc, quietLogger())

	rels, err := d.FindRelatedUnits(context.Background(), testUnit("u1", []float32{1}), 10, 0)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "good", rels[0].ToUnit)
}

func TestFindRelatedUnitsOracleErrorDegrades(t *testing.T) {
	ix := &fakeIndex{results: []types.ScoredUnit{
		scored("broken", 0.9),
		scored("fine", 0.9),
	}}
	orc := &fakeOracle{
		errs: map[string]error{"broken": errors.New("rate limit exceeded")},
		verdicts: map[string]string{
			"fine": `{"isRelated": true, "relationshipType": "related", "strength": 0.9}`,
		},
	}
	d := New(&fakeEmbedder{}, ix, orc, quietLogger())

	rels, err := d.FindRelatedUnits(context.Background(), testUnit("u1", []float32{1}), 5, 0)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "fine", rels[0].ToUnit)
}

func TestFindRelatedUnitsIndexErrorPropagates(t *testing.T) {
	ix := &fakeIndex{err: errors.New("index offline")}
	d := New(&fakeEmbedder{}, ix, &fakeOracle{}, quietLogger())

	_, err := d.FindRelatedUnits(context.Background(), testUnit("u1", []float32{1}), 5, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index offline")
}

func TestFindRelatedUnitsEmbedErrorPropagates(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("provider down")}
	d := New(emb, &fakeIndex{}, &fakeOracle{}, quietLogger())

	_, err := d.FindRelatedUnits(context.Background(), testUnit("u1", nil), 5, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
}

func TestFindRelatedUnitsValidatesInput(t *testing.T) {
	d := New(&fakeEmbedder{}, &fakeIndex{}, &fakeOracle{}, quietLogger())

	_, err := d.FindRelatedUnits(context.Background(), &types.AtomicUnit{Content: "x"}, 5, 0)
	assert.ErrorIs(t, err, types.ErrEmptyID)

	_, err = d.FindRelatedUnits(context.Background(), testUnit("u1", nil), 0, 0)
	assert.ErrorIs(t, err, types.ErrInvalidLimit)
}
