package semantic

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/sift/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIndex returns canned neighbors and records the last query.
type fakeIndex struct {
	neighbors []core.Neighbor
	err       error

	lastK        int
	lastCategory string
}

func (f *fakeIndex) FindNearest(ctx context.Context, vector []float32, k int, category string) ([]core.Neighbor, error) {
	f.lastK = k
	f.lastCategory = category
	if f.err != nil {
		return nil, f.err
	}
	if len(f.neighbors) > k {
		return f.neighbors[:k], nil
	}
	return f.neighbors, nil
}

func neighbor(id string, distance float64) core.Neighbor {
	return core.Neighbor{Chunk: &core.Chunk{Id: id}, Distance: distance}
}

func TestNewRanker(t *testing.T) {
	t.Run("nil index", func(t *testing.T) {
		_, err := NewRanker(nil)
		assert.ErrorIs(t, err, ErrVectorSearcherRequired)
	})

	t.Run("nil calibration", func(t *testing.T) {
		_, err := NewRanker(&fakeIndex{}, WithCalibration(nil))
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		r, err := NewRanker(&fakeIndex{}, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, r)
	})
}

func TestCalibrations(t *testing.T) {
	linear := Linear(DefaultMaxDistance)

	tests := []struct {
		name     string
		calib    Calibration
		distance float64
		want     float64
	}{
		{"linear identical", linear, 0, 1},
		{"linear orthogonal", linear, 2, 0.5},
		{"linear opposite", linear, 4, 0},
		{"linear beyond max", linear, 9, 0},
		{"inverse identical", Inverse, 0, 1},
		{"inverse one", Inverse, 1, 0.5},
		{"inverse three", Inverse, 3, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.calib(tt.distance), 1e-9)
		})
	}
}

func TestCalibrationsMonotonic(t *testing.T) {
	for _, name := range []string{"linear", "inverse"} {
		calib, err := ParseCalibration(name)
		require.NoError(t, err)

		prev := calib(0)
		for d := 0.1; d <= 6; d += 0.1 {
			s := calib(d)
			assert.LessOrEqual(t, s, prev, "%s at %f", name, d)
			assert.GreaterOrEqual(t, s, 0.0)
			prev = s
		}
	}
}

func TestParseCalibration(t *testing.T) {
	c, err := ParseCalibration("")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, c(2), 1e-9)

	c, err = ParseCalibration("Inverse")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, c(1), 1e-9)

	_, err = ParseCalibration("cosine")
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestRank_SortsAndFilters(t *testing.T) {
	index := &fakeIndex{neighbors: []core.Neighbor{
		neighbor("b#0000", 0.4),
		neighbor("a#0000", 0.4),
		neighbor("c#0000", 0.1),
		neighbor("d#0000", 3.0),
	}}
	r, err := NewRanker(index)
	require.NoError(t, err)

	results, err := r.Rank(context.Background(), []float32{1}, 10, "blog", 0.5)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "c#0000", results[0].Chunk.Id)
	assert.InDelta(t, 0.975, results[0].Score, 1e-9)
	assert.InDelta(t, 0.1, results[0].Distance, 1e-9)
	// Equal similarity falls back to chunk id
	assert.Equal(t, "a#0000", results[1].Chunk.Id)
	assert.Equal(t, "b#0000", results[2].Chunk.Id)

	assert.Equal(t, 10, index.lastK)
	assert.Equal(t, "blog", index.lastCategory)
}

func TestRank_ThresholdMonotonicity(t *testing.T) {
	index := &fakeIndex{neighbors: []core.Neighbor{
		neighbor("a#0000", 0.2),
		neighbor("b#0000", 0.8),
		neighbor("c#0000", 1.6),
		neighbor("d#0000", 2.4),
		neighbor("e#0000", 3.2),
	}}
	r, err := NewRanker(index)
	require.NoError(t, err)

	previous := map[string]bool{}
	first := true
	for _, threshold := range []float64{0, 0.2, 0.4, 0.6, 0.8, 1} {
		results, err := r.Rank(context.Background(), []float32{1}, 10, "", threshold)
		require.NoError(t, err)

		current := map[string]bool{}
		for _, res := range results {
			current[res.Chunk.Id] = true
			assert.GreaterOrEqual(t, res.Score, threshold)
			if !first {
				assert.True(t, previous[res.Chunk.Id], "%s appeared at threshold %f", res.Chunk.Id, threshold)
			}
		}
		previous = current
		first = false
	}
}

func TestRank_NoNearExactMatch(t *testing.T) {
	index := &fakeIndex{neighbors: []core.Neighbor{
		neighbor("a#0000", 0.5),
		neighbor("b#0000", 1.0),
	}}
	r, err := NewRanker(index)
	require.NoError(t, err)

	results, err := r.Rank(context.Background(), []float32{1}, 10, "", 0.99)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRank_IndexFailure(t *testing.T) {
	r, err := NewRanker(&fakeIndex{err: errors.New("disk gone")})
	require.NoError(t, err)

	_, err = r.Rank(context.Background(), []float32{1}, 10, "", 0.5)
	assert.ErrorIs(t, err, core.ErrIndexUnavailable)
}

func TestRank_Cancelled(t *testing.T) {
	r, err := NewRanker(&fakeIndex{err: context.Canceled})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Rank(ctx, []float32{1}, 10, "", 0.5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, core.ErrIndexUnavailable)
}
