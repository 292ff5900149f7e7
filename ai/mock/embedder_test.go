package mock

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorIsDeterministicUnitLength(t *testing.T) {
	a := Vector("hello world", 16)
	b := Vector("hello world", 16)
	c := Vector("something else", 16)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockEmbedderCounts(t *testing.T) {
	m := NewMockEmbedder()
	m.Dimension = 8
	ctx := context.Background()

	v, err := m.EmbedText(ctx, "one")
	require.NoError(t, err)
	assert.Len(t, v, 8)

	vs, err := m.EmbedTexts(ctx, []string{"two", "three"})
	require.NoError(t, err)
	assert.Len(t, vs, 2)

	assert.Equal(t, 2, m.CallCount())
	assert.Equal(t, 3, m.TextsEmbedded())

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	assert.Equal(t, 0, m.TextsEmbedded())
}

func TestMockEmbedderErr(t *testing.T) {
	m := NewMockEmbedder()
	m.Err = errors.New("service down")

	_, err := m.EmbedText(context.Background(), "x")
	assert.EqualError(t, err, "service down")
	_, err = m.EmbedTexts(context.Background(), []string{"x"})
	assert.EqualError(t, err, "service down")
}

func TestMockEmbedderConcurrent(t *testing.T) {
	m := NewMockEmbedder()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.EmbedTexts(context.Background(), []string{"a", "b"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, m.CallCount())
	assert.Equal(t, 40, m.TextsEmbedded())
}
