package metrics

import (
	"math"
	"slices"
)

// MaxLatencySamples bounds the rolling latency window.
const MaxLatencySamples = 500

// Sample describes one successful rewrite.
type Sample struct {
	LatencyMs   float64
	InputChars  int
	OutputChars int
	Tone        string
}

// Snapshot is the durable counters document.
type Snapshot struct {
	TotalRewrites    int64            `json:"total_rewrites"`
	RewritesByDay    map[string]int64 `json:"rewrites_by_day"`
	ErrorsTotal      int64            `json:"errors_total"`
	ErrorsByDay      map[string]int64 `json:"errors_by_day"`
	LatencySamples   []int64          `json:"latency_samples"`
	Tones            map[string]int64 `json:"tones"`
	TotalInputChars  int64            `json:"total_input_chars"`
	TotalOutputChars int64            `json:"total_output_chars"`
}

// NewSnapshot returns an empty document.
func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	s.normalize()
	return s
}

func (s *Snapshot) normalize() {
	if s.RewritesByDay == nil {
		s.RewritesByDay = map[string]int64{}
	}
	if s.ErrorsByDay == nil {
		s.ErrorsByDay = map[string]int64{}
	}
	if s.Tones == nil {
		s.Tones = map[string]int64{}
	}
	if s.LatencySamples == nil {
		s.LatencySamples = []int64{}
	}
}

// AddRewrite counts one rewrite on day (YYYY-MM-DD).
func (s *Snapshot) AddRewrite(sample Sample, day string) {
	s.normalize()
	s.TotalRewrites++
	s.RewritesByDay[day]++

	s.LatencySamples = append(s.LatencySamples, int64(math.Round(sample.LatencyMs)))
	if over := len(s.LatencySamples) - MaxLatencySamples; over > 0 {
		s.LatencySamples = slices.Clone(s.LatencySamples[over:])
	}

	if sample.Tone != "" {
		s.Tones[sample.Tone]++
	}
	if sample.InputChars > 0 {
		s.TotalInputChars += int64(sample.InputChars)
	}
	if sample.OutputChars > 0 {
		s.TotalOutputChars += int64(sample.OutputChars)
	}
}

// AddError counts one failed rewrite on day.
func (s *Snapshot) AddError(day string) {
	s.normalize()
	s.ErrorsTotal++
	s.ErrorsByDay[day]++
}

// Percentile returns the value at index floor(fraction*len) of the sorted
// samples, clamped to the last element. It returns 0 for no samples.
func Percentile(samples []int64, fraction float64) int64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	idx := min(len(sorted)-1, int(math.Floor(fraction*float64(len(sorted)))))
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// Average returns the rounded arithmetic mean, 0 for no samples.
func Average(samples []int64) int64 {
	if len(samples) == 0 {
		return 0
	}
	var sum int64
	for _, v := range samples {
		sum += v
	}
	return int64(math.Round(float64(sum) / float64(len(samples))))
}

// Peak returns the largest sample, 0 for no samples.
func Peak(samples []int64) int64 {
	if len(samples) == 0 {
		return 0
	}
	return slices.Max(samples)
}
