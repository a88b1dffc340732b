package pipeline

import (
	"fmt"
	"io"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// progressPrinter は状態か進捗が変わったときだけ1行を書き出すのだ。
type progressPrinter struct {
	w        io.Writer
	status   domain.RunStatus
	progress int
	rendered int
	printed  bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) print(st domain.RunState) {
	if p.w == nil || st.RunID == "" {
		return
	}
	rendered := st.Scenes.RenderedCount()
	if p.printed && st.Status == p.status && st.ProgressPercent == p.progress && rendered == p.rendered {
		return
	}
	p.status, p.progress, p.rendered, p.printed = st.Status, st.ProgressPercent, rendered, true

	line := fmt.Sprintf("[%3d%%] %-15s", st.ProgressPercent, st.Status)
	if len(st.Scenes) > 0 {
		line += fmt.Sprintf(" %d/%d scenes rendered", rendered, len(st.Scenes))
	}
	if st.Error != "" {
		line += " error: " + st.Error
	}
	fmt.Fprintln(p.w, line)
}
