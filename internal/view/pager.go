package view

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/rangebuf/internal/engine/buffer"
)

// maxLineBytes bounds how much of one line is read for display.
const maxLineBytes = 64 * 1024

// Pager shows a document read-only on a terminal screen.
type Pager struct {
	screen tcell.Screen
	doc    *buffer.Document
	vp     *Viewport
	log    *slog.Logger

	tabWidth int
	changed  bool
	message  string

	textStyle   tcell.Style
	statusStyle tcell.Style
	bannerStyle tcell.Style
}

// Option configures a Pager.
type Option func(*Pager)

// WithTabWidth sets the tab stop width.
func WithTabWidth(n int) Option {
	return func(p *Pager) {
		if n > 0 {
			p.tabWidth = n
		}
	}
}

// WithLogger sets the pager logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pager) {
		if l != nil {
			p.log = l
		}
	}
}

// New creates a pager for doc on an initialized screen.
func New(screen tcell.Screen, doc *buffer.Document, opts ...Option) *Pager {
	p := &Pager{
		screen:      screen,
		doc:         doc,
		log:         slog.New(slog.DiscardHandler),
		tabWidth:    8,
		textStyle:   tcell.StyleDefault,
		statusStyle: tcell.StyleDefault.Reverse(true),
		bannerStyle: tcell.StyleDefault.Background(tcell.ColorYellow).Foreground(tcell.ColorBlack),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With("component", "view")

	w, h := screen.Size()
	p.vp = NewViewport(w, h-1)
	p.vp.SetLineCount(doc.LineCount())
	return p
}

// Viewport exposes the scroll position.
func (p *Pager) Viewport() *Viewport {
	return p.vp
}

// MarkChanged shows the changed-on-disk banner until the document is
// reloaded.
func (p *Pager) MarkChanged() {
	p.changed = true
}

// Draw renders the visible lines and the status line.
func (p *Pager) Draw() {
	p.screen.Clear()
	w, h := p.screen.Size()
	p.vp.Resize(w, h-1)
	p.vp.SetLineCount(p.doc.LineCount())

	lines := p.doc.LineCount()
	for row := 0; row < p.vp.Height(); row++ {
		line := p.vp.TopLine() + uint32(row)
		if line >= lines {
			p.screen.SetContent(0, row, '~', nil, p.textStyle.Dim(true))
			continue
		}
		p.drawLine(row, line)
	}
	p.drawStatus(h - 1)
	p.screen.Show()
}

func (p *Pager) drawLine(row int, line uint32) {
	start := p.doc.LineStartOffset(line)
	end := min(p.doc.LineEndOffset(line), start+maxLineBytes)
	text := p.doc.TextRange(start, end)

	left := p.vp.LeftColumn()
	width := p.vp.Width()
	for _, c := range layoutLine(text, p.tabWidth) {
		x := c.col - left
		if x < 0 {
			continue
		}
		if x+c.width > width {
			break
		}
		if c.runes[0] == ' ' && c.width > 1 {
			for i := 0; i < c.width; i++ {
				p.screen.SetContent(x+i, row, ' ', nil, p.textStyle)
			}
			continue
		}
		p.screen.SetContent(x, row, c.runes[0], c.runes[1:], p.textStyle)
	}
}

func (p *Pager) drawStatus(row int) {
	w, _ := p.screen.Size()
	style := p.statusStyle
	var text string

	switch {
	case p.changed:
		style = p.bannerStyle
		text = " file changed on disk - press r to reload"
	case p.message != "":
		text = " " + p.message
	default:
		name := p.doc.Path()
		if name == "" {
			name = "[memory]"
		} else {
			name = filepath.Base(name)
		}
		lines := p.doc.LineCount()
		last := min(p.vp.TopLine()+uint32(p.vp.Height()), lines)
		text = fmt.Sprintf(" %s  %d-%d/%d  %d bytes", name, p.vp.TopLine()+1, last, lines, p.doc.Len())
	}

	col := 0
	for _, c := range layoutLine(text, p.tabWidth) {
		if c.col+c.width > w {
			break
		}
		p.screen.SetContent(c.col, row, c.runes[0], c.runes[1:], style)
		col = c.col + c.width
	}
	for ; col < w; col++ {
		p.screen.SetContent(col, row, ' ', nil, style)
	}
}

// HandleEvent applies one input event. It reports whether the pager should
// quit.
func (p *Pager) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		p.screen.Sync()
	case *tcell.EventKey:
		return p.handleKey(ev)
	}
	return false
}

func (p *Pager) handleKey(ev *tcell.EventKey) bool {
	page := max(p.vp.Height()-1, 1)
	p.message = ""

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyUp:
		p.vp.ScrollBy(-1)
	case tcell.KeyDown, tcell.KeyEnter:
		p.vp.ScrollBy(1)
	case tcell.KeyPgUp:
		p.vp.ScrollBy(-page)
	case tcell.KeyPgDn:
		p.vp.ScrollBy(page)
	case tcell.KeyHome:
		p.vp.ScrollTo(0)
	case tcell.KeyEnd:
		p.vp.ScrollToEnd()
	case tcell.KeyLeft:
		p.vp.ScrollHorizontalBy(-p.tabWidth)
	case tcell.KeyRight:
		p.vp.ScrollHorizontalBy(p.tabWidth)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return true
		case 'k':
			p.vp.ScrollBy(-1)
		case 'j':
			p.vp.ScrollBy(1)
		case 'b':
			p.vp.ScrollBy(-page)
		case ' ', 'f':
			p.vp.ScrollBy(page)
		case 'g':
			p.vp.ScrollTo(0)
		case 'G':
			p.vp.ScrollToEnd()
		case 'h':
			p.vp.ScrollHorizontalBy(-p.tabWidth)
		case 'l':
			p.vp.ScrollHorizontalBy(p.tabWidth)
		case 'r':
			p.reload()
		}
	}
	return false
}

func (p *Pager) reload() {
	if !p.changed {
		return
	}
	if err := p.doc.Reload(); err != nil {
		p.log.Warn("reload failed", "path", p.doc.Path(), "error", err)
		p.message = "reload failed: " + err.Error()
		return
	}
	p.changed = false
	p.vp.SetLineCount(p.doc.LineCount())
	p.log.Info("reloaded", "path", p.doc.Path())
}

// Run draws and handles events until the user quits or ctx is done.
// Changes to the document's file on disk raise the banner.
func (p *Pager) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go p.screen.ChannelEvents(events, quit)

	p.Draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.doc.Changes():
			p.log.Debug("document changed on disk", "path", p.doc.Path())
			p.MarkChanged()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if p.HandleEvent(ev) {
				return nil
			}
		}
		p.Draw()
	}
}
