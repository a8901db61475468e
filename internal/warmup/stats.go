// Package warmup measures how steadily a pipeline delivers frames.
package warmup

import (
	"math"
	"sync"
	"time"
)

const (
	// A stream is stable if the FPS standard deviation is under 15% of the
	// mean FPS and the mean jitter is under 20% of the expected interval.
	fpsStabilityThreshold    = 0.15
	jitterStabilityThreshold = 0.20

	// maxSamples bounds a Recorder's memory (about 80s at 25 FPS).
	maxSamples = 2048
)

// DeliveryStats summarizes frame arrival times.
type DeliveryStats struct {
	FramesReceived int           // Frames in the window
	Duration       time.Duration // Window length
	FPSMean        float64       // Frames per second over the window
	FPSStdDev      float64       // Standard deviation of instantaneous FPS
	FPSMin         float64       // Minimum instantaneous FPS
	FPSMax         float64       // Maximum instantaneous FPS
	IsStable       bool          // See fpsStabilityThreshold
	JitterMean     float64       // Mean deviation from the expected interval (seconds)
	JitterStdDev   float64       // Standard deviation of jitter (seconds)
	JitterMax      float64       // Maximum jitter (seconds)
}

// CalculateDeliveryStats computes statistics from frame arrival times.
//
// This function:
//  1. Calculates mean FPS over totalDuration
//  2. Calculates instantaneous FPS for each interval, with min/max/stddev
//  3. Calculates jitter (deviation from the mean interval)
//  4. Determines stability
func CalculateDeliveryStats(frameTimes []time.Time, totalDuration time.Duration) *DeliveryStats {
	n := len(frameTimes)
	stats := &DeliveryStats{FramesReceived: n, Duration: totalDuration}
	if n == 0 || totalDuration <= 0 {
		return stats
	}

	stats.FPSMean = float64(n) / totalDuration.Seconds()

	instantaneous := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		if interval := frameTimes[i].Sub(frameTimes[i-1]).Seconds(); interval > 0 {
			instantaneous = append(instantaneous, 1.0/interval)
		}
	}
	if len(instantaneous) == 0 {
		return stats
	}

	stats.FPSMin, stats.FPSMax = instantaneous[0], instantaneous[0]
	var sumSquares float64
	for _, fps := range instantaneous {
		stats.FPSMin = math.Min(stats.FPSMin, fps)
		stats.FPSMax = math.Max(stats.FPSMax, fps)
		diff := fps - stats.FPSMean
		sumSquares += diff * diff
	}
	stats.FPSStdDev = math.Sqrt(sumSquares / float64(len(instantaneous)))

	expected := 1.0 / stats.FPSMean
	jitters := make([]float64, 0, n-1)
	var jitterSum float64
	for i := 1; i < n; i++ {
		j := math.Abs(frameTimes[i].Sub(frameTimes[i-1]).Seconds() - expected)
		jitters = append(jitters, j)
		jitterSum += j
		stats.JitterMax = math.Max(stats.JitterMax, j)
	}
	stats.JitterMean = jitterSum / float64(len(jitters))

	var jitterSquares float64
	for _, j := range jitters {
		diff := j - stats.JitterMean
		jitterSquares += diff * diff
	}
	stats.JitterStdDev = math.Sqrt(jitterSquares / float64(len(jitters)))

	stats.IsStable = stats.FPSStdDev < stats.FPSMean*fpsStabilityThreshold &&
		stats.JitterMean < expected*jitterStabilityThreshold
	return stats
}

// PollRate returns how often a render loop should acquire frames: the
// stream's mean FPS, capped at maxRate. maxRate is used while the FPS is
// unknown.
func PollRate(stats *DeliveryStats, maxRate float64) float64 {
	if stats == nil || stats.FPSMean <= 0 || stats.FPSMean >= maxRate {
		return maxRate
	}
	return stats.FPSMean
}

// Recorder collects frame arrival times. Record is safe to call from the
// streaming thread.
type Recorder struct {
	mu      sync.Mutex
	started time.Time
	times   []time.Time
	now     func() time.Time
}

// NewRecorder starts a recording window now.
func NewRecorder() *Recorder {
	return newRecorder(time.Now)
}

func newRecorder(now func() time.Time) *Recorder {
	return &Recorder{
		started: now(),
		times:   make([]time.Time, 0, 128),
		now:     now,
	}
}

// Record notes a frame arrival. The oldest half of the window is dropped
// when full.
func (r *Recorder) Record() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.times) == maxSamples {
		half := maxSamples / 2
		r.started = r.times[half]
		r.times = append(r.times[:0], r.times[half:]...)
	}
	r.times = append(r.times, r.now())
}

// Stats computes statistics over the current window.
func (r *Recorder) Stats() *DeliveryStats {
	r.mu.Lock()
	times := append([]time.Time(nil), r.times...)
	elapsed := r.now().Sub(r.started)
	r.mu.Unlock()

	return CalculateDeliveryStats(times, elapsed)
}
