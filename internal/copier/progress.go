// Package copier runs copy jobs: the message loop, the media transfer
// step and per-user job management.
package copier

import (
	"fmt"
	"strings"
	"time"
)

const (
	barWidth    = 30
	speedWindow = 10
)

// Progress is the explicit transfer state a report is rendered from.
type Progress struct {
	Phase       string // "Downloading" or "Uploading"
	Kind        string // media kind shown to the user
	MessageID   int
	Transferred int64
	Total       int64

	samples []float64 // MB/s, newest last, capped at speedWindow
	last    time.Time
	lastB   int64
}

// NewProgress starts tracking one transfer.
func NewProgress(phase, kind string, messageID int, total int64) *Progress {
	return &Progress{
		Phase:     phase,
		Kind:      kind,
		MessageID: messageID,
		Total:     total,
		last:      time.Now(),
	}
}

// Observe records the current transferred byte count and samples the
// instantaneous speed since the previous observation.
func (p *Progress) Observe(transferred int64) {
	now := time.Now()
	elapsed := now.Sub(p.last).Seconds()
	if elapsed > 0 {
		mbps := float64(transferred-p.lastB) / (1024 * 1024) / elapsed
		p.addSample(mbps)
	}
	p.Transferred = transferred
	p.last = now
	p.lastB = transferred
}

func (p *Progress) addSample(mbps float64) {
	p.samples = append(p.samples, mbps)
	if len(p.samples) > speedWindow {
		p.samples = p.samples[len(p.samples)-speedWindow:]
	}
}

// Speed returns the most recent instantaneous speed sample in MB/s.
func (p *Progress) Speed() float64 {
	if len(p.samples) == 0 {
		return 0
	}
	return p.samples[len(p.samples)-1]
}

// AvgSpeed returns the rolling average over the last samples in MB/s.
func (p *Progress) AvgSpeed() float64 {
	if len(p.samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range p.samples {
		sum += s
	}
	return sum / float64(len(p.samples))
}

// Percent returns completion in [0,100]. Unknown totals report 0.
func (p *Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	pct := float64(p.Transferred) / float64(p.Total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Bar renders the progress bar.
func (p *Progress) Bar() string {
	filled := int(p.Percent() / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// Render formats the full status text for the in-place bot message.
func (p *Progress) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (message %d)\n", p.Phase, p.Kind, p.MessageID)
	fmt.Fprintf(&b, "[%s] %.1f%%\n", p.Bar(), p.Percent())
	fmt.Fprintf(&b, "%.2f MB / %.2f MB\n", toMB(p.Transferred), toMB(p.Total))
	fmt.Fprintf(&b, "Speed: %.2f MB/s (avg %.2f MB/s)", p.Speed(), p.AvgSpeed())
	return b.String()
}

func toMB(n int64) float64 {
	return float64(n) / (1024 * 1024)
}
