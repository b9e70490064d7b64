package ui

import (
	"sync"
	"time"
)

// etaSmoothing weights a new ETA estimate against the previous one.
const etaSmoothing = 0.3

// ProgressTracker holds progress state across stages. It is safe for
// concurrent use.
type ProgressTracker struct {
	mu         sync.Mutex
	stage      Stage
	current    int
	total      int
	item       string
	startTime  time.Time
	stageStart time.Time
	lastETA    time.Duration
	errors     int
	warnings   int

	lastCurrent int
	lastSample  time.Time
	speed       float64
	avgSpeed    float64
	samples     int
}

// ProgressStats is a snapshot of a tracker.
type ProgressStats struct {
	Stage      Stage
	Current    int
	Total      int
	Progress   float64
	ETA        time.Duration
	Item       string
	ErrorCount int
	WarnCount  int
	Speed      float64
	AvgSpeed   float64
}

// NewProgressTracker creates a tracker in the reading stage.
func NewProgressTracker() *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{
		stage:      StageReading,
		startTime:  now,
		stageStart: now,
		lastSample: now,
	}
}

// SetStage moves to a new stage with the given total.
func (p *ProgressTracker) SetStage(stage Stage, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.stage = stage
	p.total = total
	p.current = 0
	p.item = ""
	p.stageStart = now
	p.lastETA = 0
	p.lastCurrent = 0
	p.lastSample = now
	p.speed = 0
	p.avgSpeed = 0
	p.samples = 0
}

// Update records progress within the current stage.
func (p *ProgressTracker) Update(current int, item string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	if item != "" {
		p.item = item
	}

	// Sample speed at most twice a second.
	now := time.Now()
	elapsed := now.Sub(p.lastSample)
	if elapsed < 500*time.Millisecond {
		return
	}
	if delta := current - p.lastCurrent; delta > 0 {
		p.speed = float64(delta) / elapsed.Seconds()
		p.samples++
		if p.samples == 1 {
			p.avgSpeed = p.speed
		} else {
			p.avgSpeed = 0.2*p.speed + 0.8*p.avgSpeed
		}
	}
	p.lastCurrent = current
	p.lastSample = now
}

// AddError counts an error or warning.
func (p *ProgressTracker) AddError(event ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event.IsWarn {
		p.warnings++
	} else {
		p.errors++
	}
}

// Elapsed returns time since the tracker was created.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.startTime)
}

// Stats returns a snapshot.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return ProgressStats{
		Stage:      p.stage,
		Current:    p.current,
		Total:      p.total,
		Progress:   p.progress(),
		ETA:        p.eta(),
		Item:       p.item,
		ErrorCount: p.errors,
		WarnCount:  p.warnings,
		Speed:      p.speed,
		AvgSpeed:   p.avgSpeed,
	}
}

func (p *ProgressTracker) progress() float64 {
	if p.total == 0 {
		return 0
	}
	return min(float64(p.current)/float64(p.total), 1.0)
}

// eta must be called with the lock held.
func (p *ProgressTracker) eta() time.Duration {
	progress := p.progress()
	if p.current == 0 || progress <= 0 || progress >= 1 {
		return 0
	}

	elapsed := time.Since(p.stageStart)
	remaining := time.Duration(float64(elapsed)/progress) - elapsed
	if remaining < 0 {
		return 0
	}
	if p.lastETA == 0 {
		p.lastETA = remaining
		return remaining
	}
	p.lastETA = time.Duration(etaSmoothing*float64(remaining) + (1-etaSmoothing)*float64(p.lastETA))
	return p.lastETA
}
