package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	samples := []int64{50, 10, 40, 20, 30}

	assert.Equal(t, int64(30), Percentile(samples, 0.5))
	assert.Equal(t, int64(50), Percentile(samples, 0.95))
	assert.Equal(t, int64(10), Percentile(samples, 0))
	assert.Equal(t, int64(50), Percentile(samples, 1))
	assert.Equal(t, []int64{50, 10, 40, 20, 30}, samples, "input must not be reordered")
}

func TestPercentile_Empty(t *testing.T) {
	assert.Equal(t, int64(0), Percentile(nil, 0.95))
	assert.Equal(t, int64(0), Average(nil))
	assert.Equal(t, int64(0), Peak(nil))
}

func TestAverageAndPeak(t *testing.T) {
	assert.Equal(t, int64(2), Average([]int64{1, 2, 4}))
	assert.Equal(t, int64(4), Peak([]int64{1, 4, 2}))
}

func TestSnapshot_AddRewrite(t *testing.T) {
	s := NewSnapshot()

	s.AddRewrite(Sample{LatencyMs: 1200.6, InputChars: 10, OutputChars: 14, Tone: "friendly"}, "2024-05-01")
	s.AddRewrite(Sample{LatencyMs: 800, InputChars: 6, OutputChars: 8, Tone: "friendly"}, "2024-05-02")

	assert.Equal(t, int64(2), s.TotalRewrites)
	assert.Equal(t, int64(1), s.RewritesByDay["2024-05-01"])
	assert.Equal(t, int64(1), s.RewritesByDay["2024-05-02"])
	assert.Equal(t, []int64{1201, 800}, s.LatencySamples)
	assert.Equal(t, int64(2), s.Tones["friendly"])
	assert.Equal(t, int64(16), s.TotalInputChars)
	assert.Equal(t, int64(22), s.TotalOutputChars)
}

func TestSnapshot_LatencyWindowEvictsOldest(t *testing.T) {
	s := NewSnapshot()
	for i := 1; i <= MaxLatencySamples+1; i++ {
		s.AddRewrite(Sample{LatencyMs: float64(i)}, "2024-05-01")
	}

	assert.Len(t, s.LatencySamples, MaxLatencySamples)
	assert.Equal(t, int64(2), s.LatencySamples[0])
	assert.Equal(t, int64(MaxLatencySamples+1), s.LatencySamples[MaxLatencySamples-1])
	assert.Equal(t, int64(MaxLatencySamples+1), s.TotalRewrites)
}

func TestSnapshot_AddError(t *testing.T) {
	s := &Snapshot{}
	s.AddError("2024-05-01")
	s.AddError("2024-05-01")

	assert.Equal(t, int64(2), s.ErrorsTotal)
	assert.Equal(t, int64(2), s.ErrorsByDay["2024-05-01"])
}
