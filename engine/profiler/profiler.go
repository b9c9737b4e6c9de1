package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"go.uber.org/zap"
)

// Stats is one reporting window of frame and memory statistics.
type Stats struct {
	FPS          float64
	Frames       int
	HeapMB       float64
	AllocRateMB  float64
	GCCount      uint32
	LastPauseUs  uint64
	MaxPauseUs   uint64
	SysMB        float64
	WorstFrameMs float64
}

// Profiler tracks frame rate and memory statistics of the render loop and reports them
// through the common logger once per interval.
type Profiler struct {
	now            func() time.Time
	interval       time.Duration
	frameCount     int
	windowStart    time.Time
	lastFrame      time.Time
	worstFrame     time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// NewProfiler creates a Profiler that reports every interval. A zero interval means one second.
//
// Parameters:
//   - interval: the reporting period
//
// Returns:
//   - *Profiler: the new profiler
func NewProfiler(interval time.Duration) *Profiler {
	return newProfiler(interval, time.Now)
}

func newProfiler(interval time.Duration, now func() time.Time) *Profiler {
	start := now()
	return &Profiler{
		now:         now,
		interval:    common.Coalesce(interval, time.Second),
		windowStart: start,
		lastFrame:   start,
	}
}

// Tick records one presented frame. When the interval has elapsed it reads memory
// statistics, logs them and starts a new window.
//
// Returns:
//   - bool: true if stats were reported this tick
func (p *Profiler) Tick() bool {
	current := p.now()
	p.frameCount++
	if d := current.Sub(p.lastFrame); d > p.worstFrame {
		p.worstFrame = d
	}
	p.lastFrame = current

	elapsed := current.Sub(p.windowStart)
	if elapsed < p.interval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Stats{
		FPS:          float64(p.frameCount) / elapsed.Seconds(),
		Frames:       p.frameCount,
		HeapMB:       float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB:  float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:      p.memStats.NumGC,
		SysMB:        float64(p.memStats.Sys) / 1024 / 1024,
		WorstFrameMs: float64(p.worstFrame) / float64(time.Millisecond),
	}
	if gcCount := p.memStats.NumGC; gcCount > 0 {
		// PauseNs is a ring of the last 256 pauses.
		s.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		from := p.lastGCCount
		if gcCount-from > 256 {
			from = gcCount - 256
		}
		for i := from; i < gcCount; i++ {
			s.MaxPauseUs = max(s.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	common.Logger().Info("profiler",
		zap.Float64("fps", s.FPS),
		zap.Float64("worst_frame_ms", s.WorstFrameMs),
		zap.Float64("heap_mb", s.HeapMB),
		zap.Float64("alloc_rate_mb_s", s.AllocRateMB),
		zap.Uint32("gc", s.GCCount),
		zap.Uint64("gc_last_pause_us", s.LastPauseUs),
		zap.Uint64("gc_max_pause_us", s.MaxPauseUs),
		zap.Float64("sys_mb", s.SysMB),
	)

	p.last = s
	p.frameCount = 0
	p.worstFrame = 0
	p.windowStart = current
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recently reported window, or the zero Stats before the first report.
func (p *Profiler) Last() Stats {
	return p.last
}
