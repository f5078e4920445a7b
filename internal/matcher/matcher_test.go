package matcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ClauseScanner/internal/catalogue"
	"ClauseScanner/internal/domain"
)

// tableEmbedder returns the vector registered for each text.
type tableEmbedder struct {
	vectors map[string][]float32
	calls   atomic.Int32
	err     error
}

func (e *tableEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, ok := e.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", text)
		}
		out[i] = v
	}
	return out, nil
}

type shortEmbedder struct{}

func (shortEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)-1), nil
}

func testCatalogue() *catalogue.Catalogue {
	return catalogue.New(
		domain.RiskDefinition{Category: "Ambiguous Termination", Hypothesis: "terminate at will"},
		domain.RiskDefinition{Category: "Uncapped Liability", Hypothesis: "unlimited liability"},
	)
}

func testSegments() []domain.Segment {
	return []domain.Segment{
		{ID: "chunk_0", Text: "Either party may terminate at any time."},
		{ID: "chunk_1", Text: "The supplier's liability is unlimited."},
		{ID: "chunk_2", Text: "This agreement is governed by the laws of Ontario."},
	}
}

func testEmbedder() *tableEmbedder {
	return &tableEmbedder{vectors: map[string][]float32{
		"terminate at will":   {1, 0, 0},
		"unlimited liability": {0, 1, 0},

		"Either party may terminate at any time.":            {1, 0, 0},
		"The supplier's liability is unlimited.":             {0, 1, 0},
		"This agreement is governed by the laws of Ontario.": {0, 0, 1},
	}}
}

func TestDetectFindsExactMatches(t *testing.T) {
	t.Parallel()

	m := New(testEmbedder(), nil)
	matches, err := m.Detect(context.Background(), testSegments(), testCatalogue(), DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "Ambiguous Termination", matches[0].RiskCategory)
	assert.Equal(t, "terminate at will", matches[0].RiskDefinition)
	assert.Equal(t, "chunk_0", matches[0].SegmentID)
	assert.Equal(t, "Either party may terminate at any time.", matches[0].SegmentText)
	assert.InDelta(t, 1.0, matches[0].SimilarityScore, 1e-9)

	assert.Equal(t, "Uncapped Liability", matches[1].RiskCategory)
	assert.Equal(t, "chunk_1", matches[1].SegmentID)
}

func TestDetectOrdersByScoreThenCatalogueThenSegment(t *testing.T) {
	t.Parallel()

	emb := &tableEmbedder{vectors: map[string][]float32{
		"r0": {1, 0},
		"r1": {1, 0},
		"s0": {1, 1},
		"s1": {1, 0},
		"s2": {1, 0},
	}}
	cat := catalogue.New(
		domain.RiskDefinition{Category: "First", Hypothesis: "r0"},
		domain.RiskDefinition{Category: "Second", Hypothesis: "r1"},
	)
	segments := []domain.Segment{{ID: "a", Text: "s0"}, {ID: "b", Text: "s1"}, {ID: "c", Text: "s2"}}

	matches, err := New(emb, nil).Detect(context.Background(), segments, cat, 0.5)
	require.NoError(t, err)

	var got []string
	for _, m := range matches {
		got = append(got, m.RiskCategory+"/"+m.SegmentID)
	}
	assert.Equal(t, []string{
		"First/b", "First/c", "Second/b", "Second/c",
		"First/a", "Second/a",
	}, got)
}

func TestDetectEmptyInputsSkipEmbedding(t *testing.T) {
	t.Parallel()

	emb := testEmbedder()
	m := New(emb, nil)

	matches, err := m.Detect(context.Background(), nil, testCatalogue(), DefaultThreshold)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)

	matches, err = m.Detect(context.Background(), testSegments(), catalogue.New(), DefaultThreshold)
	require.NoError(t, err)
	assert.Empty(t, matches)

	assert.Zero(t, emb.calls.Load())
}

func TestDetectThresholdBounds(t *testing.T) {
	t.Parallel()

	m := New(testEmbedder(), nil)

	all, err := m.Detect(context.Background(), testSegments(), testCatalogue(), -3)
	require.NoError(t, err)
	assert.Len(t, all, 6, "threshold below zero is clamped to zero and orthogonal pairs score exactly zero")

	exact, err := m.Detect(context.Background(), testSegments(), testCatalogue(), 7)
	require.NoError(t, err)
	assert.Len(t, exact, 2, "threshold above one is clamped to one")
}

func TestDetectExcludesNegativeSimilarityAtZeroThreshold(t *testing.T) {
	t.Parallel()

	emb := &tableEmbedder{vectors: map[string][]float32{"h": {1, 0}, "s": {-1, 0}}}
	cat := catalogue.New(domain.RiskDefinition{Category: "A", Hypothesis: "h"})

	matches, err := New(emb, nil).Detect(context.Background(), []domain.Segment{{ID: "x", Text: "s"}}, cat, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDetectZeroVectorNeverMatches(t *testing.T) {
	t.Parallel()

	emb := &tableEmbedder{vectors: map[string][]float32{"h": {1, 0}, "s": {0, 0}}}
	cat := catalogue.New(domain.RiskDefinition{Category: "A", Hypothesis: "h"})

	matches, err := New(emb, nil).Detect(context.Background(), []domain.Segment{{ID: "x", Text: "s"}}, cat, 0.1)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDetectEmbeddingFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		m    *Matcher
	}{
		{name: "provider error", m: New(&tableEmbedder{err: errors.New("connection refused")}, nil)},
		{name: "wrong vector count", m: New(shortEmbedder{}, nil)},
		{name: "no provider", m: New(nil, nil)},
		{name: "inconsistent dimensions", m: New(&tableEmbedder{vectors: map[string][]float32{
			"terminate at will":   {1, 0, 0},
			"unlimited liability": {0, 1, 0},

			"Either party may terminate at any time.":            {1, 0},
			"The supplier's liability is unlimited.":             {0, 1},
			"This agreement is governed by the laws of Ontario.": {0, 0},
		}}, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := tt.m.Detect(context.Background(), testSegments(), testCatalogue(), DefaultThreshold)
			assert.Nil(t, matches)
			assert.ErrorIs(t, err, domain.ErrEmbedding)
		})
	}
}

func TestClampThreshold(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, clampThreshold(-0.5))
	assert.Equal(t, 1.0, clampThreshold(1.5))
	assert.Equal(t, 0.4, clampThreshold(0.4))
}

// contextEmbedder fails the way HTTP providers do once the request context is done.
type contextEmbedder struct{}

func (contextEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return make([][]float32, len(texts)), nil
}

func TestDetectKeepsContextErrorInChain(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(contextEmbedder{}, nil).Detect(ctx, testSegments(), testCatalogue(), DefaultThreshold)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.ErrorIs(t, err, context.Canceled)
}
