package audioclient

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	progressBarWidth     = 32
	progressRenderPeriod = 120 * time.Millisecond
)

// Progress рисует ASCII-индикатор передачи в out (обычно stderr).
type Progress struct {
	out        io.Writer
	prefix     string
	total      int64
	current    int64
	lastRender time.Time
	lastWidth  int
	finished   bool
	mu         sync.Mutex
}

// NewProgress; total <= 0 — размер неизвестен, выводится только счётчик.
func NewProgress(out io.Writer, prefix string, total int64) *Progress {
	return &Progress{out: out, prefix: prefix, total: total}
}

func (p *Progress) Add(n int64) {
	if p == nil || n <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.current += n

	if now := time.Now(); now.Sub(p.lastRender) >= progressRenderPeriod {
		p.lastRender = now
		p.printLocked("", false)
	}
}

// Finish дорисовывает строку; err != nil отмечает неудачу.
func (p *Progress) Finish(err error) {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true

	suffix := " ok"
	if err != nil {
		suffix = " failed: " + err.Error()
	}
	p.printLocked(suffix, true)
}

func (p *Progress) printLocked(suffix string, final bool) {
	line := p.lineLocked() + suffix

	padding := ""
	if p.lastWidth > len(line) {
		padding = strings.Repeat(" ", p.lastWidth-len(line))
	}
	p.lastWidth = len(line)

	end := ""
	if final {
		end = "\n"
	}
	fmt.Fprintf(p.out, "\r%s%s%s", line, padding, end)
}

func (p *Progress) lineLocked() string {
	var b strings.Builder
	b.WriteString(p.prefix)
	b.WriteByte(' ')

	if p.total <= 0 {
		b.WriteString(humanize.IBytes(uint64(p.current)))
		b.WriteString(" transferred")
		return b.String()
	}

	ratio := min(float64(p.current)/float64(p.total), 1)
	filled := min(int(ratio*progressBarWidth+0.5), progressBarWidth)
	b.WriteByte('[')
	b.WriteString(strings.Repeat("=", filled))
	b.WriteString(strings.Repeat(" ", progressBarWidth-filled))
	fmt.Fprintf(&b, "] %3d%% %s/%s", int(ratio*100+0.5),
		humanize.IBytes(uint64(p.current)), humanize.IBytes(uint64(p.total)))

	return b.String()
}

// Reader считает прочитанные байты; на EOF или ошибке строка завершается.
func (p *Progress) Reader(r io.Reader) io.Reader {
	if p == nil {
		return r
	}
	return &progressReader{r: r, p: p}
}

type progressReader struct {
	r io.Reader
	p *Progress
}

func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.r.Read(b)
	pr.p.Add(int64(n))
	if err == io.EOF {
		pr.p.Finish(nil)
	} else if err != nil {
		pr.p.Finish(err)
	}
	return n, err
}
