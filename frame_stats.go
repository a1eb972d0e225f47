package meadow

import "time"

// FrameStats counts what the renderer submitted. The per-frame fields hold
// the last recorded frame and TotalDraws accumulates.
type FrameStats struct {
	Frames      uint64
	DrawCalls   int
	Instances   int
	RenderTime  time.Duration
	TotalDraws  uint64
	lastReport  time.Time
	reportFrame uint64
}

func (s *FrameStats) record(draws, instances int, elapsed time.Duration) {
	s.Frames++
	s.DrawCalls = draws
	s.Instances = instances
	s.RenderTime = elapsed
	s.TotalDraws += uint64(draws)
}

// report logs a summary at debug level at most once per interval.
func (s *FrameStats) report(log Logger, now time.Time, interval time.Duration) {
	if s.lastReport.IsZero() {
		s.lastReport = now
		s.reportFrame = s.Frames
		return
	}
	elapsed := now.Sub(s.lastReport)
	if elapsed < interval {
		return
	}
	fps := float64(s.Frames-s.reportFrame) / elapsed.Seconds()
	log.Debugf("fps=%.1f draws=%d instances=%d render=%s", fps, s.DrawCalls, s.Instances, s.RenderTime)
	s.lastReport = now
	s.reportFrame = s.Frames
}
