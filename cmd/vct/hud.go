package main

import (
	"fmt"
	"strings"
	"time"

	"vct-renderer/conetrace"
	"vct-renderer/renderer"
)

// DebugOverlay collects status lines; the viewer shows them in the window
// title and the headless renderer logs them.
type DebugOverlay struct {
	lines []string
}

func (do *DebugOverlay) AddLine(format string, args ...any) {
	do.lines = append(do.lines, fmt.Sprintf(format, args...))
}

func (do *DebugOverlay) Clear() {
	do.lines = do.lines[:0]
}

func (do *DebugOverlay) GetText() string {
	return strings.Join(do.lines, " | ")
}

// Describe fills the overlay for one frame.
func (do *DebugOverlay) Describe(st renderer.FrameStats, tg conetrace.Toggles, frameTime time.Duration) {
	do.Clear()
	do.AddLine("frame %d", st.Frame)
	if frameTime > 0 {
		do.AddLine("%.1f ms", float64(frameTime.Microseconds())/1000)
	}
	do.AddLine("%d tris, %d px", st.Trace.Triangles, st.Trace.Covered)
	do.AddLine("%d voxels", st.Voxelize.Cells)
	do.AddLine("%s", toggleText(tg))
}

// toggleText renders the toggles as "1:on 2:off ..." in key order.
func toggleText(tg conetrace.Toggles) string {
	parts := make([]string, len(toggleKeys))
	for i, tk := range toggleKeys {
		state := "off"
		if tg.Enabled(tk.ch) {
			state = "on"
		}
		parts[i] = fmt.Sprintf("%d %s:%s", i+1, tk.ch, state)
	}
	return strings.Join(parts, " ")
}
