package view

// Viewport represents the visible portion of a document.
type Viewport struct {
	// Position in document (first visible line)
	topLine    uint32
	leftColumn int

	// Size in screen cells
	width  int
	height int

	lineCount uint32
}

// NewViewport creates a viewport with the given size.
// Width and height are clamped to a minimum of 1 to prevent underflow.
func NewViewport(width, height int) *Viewport {
	v := &Viewport{}
	v.Resize(width, height)
	return v
}

// TopLine returns the first visible line.
func (v *Viewport) TopLine() uint32 {
	return v.topLine
}

// LeftColumn returns the first visible column.
func (v *Viewport) LeftColumn() int {
	return v.leftColumn
}

// Height returns the number of text rows.
func (v *Viewport) Height() int {
	return v.height
}

// Width returns the number of text columns.
func (v *Viewport) Width() int {
	return v.width
}

// Resize updates the viewport size.
func (v *Viewport) Resize(width, height int) {
	v.width = max(width, 1)
	v.height = max(height, 1)
	v.clamp()
}

// SetLineCount sets the number of lines in the document.
func (v *Viewport) SetLineCount(n uint32) {
	v.lineCount = n
	v.clamp()
}

// ScrollTo shows line at the top, as far as the document allows.
func (v *Viewport) ScrollTo(line uint32) {
	v.topLine = line
	v.clamp()
}

// ScrollBy scrolls by a delta number of lines.
func (v *Viewport) ScrollBy(deltaLines int) {
	newTop := max(int64(v.topLine)+int64(deltaLines), 0)
	v.topLine = uint32(min(newTop, int64(^uint32(0))))
	v.clamp()
}

// ScrollHorizontalBy scrolls horizontally by a delta.
func (v *Viewport) ScrollHorizontalBy(deltaCols int) {
	v.leftColumn = max(v.leftColumn+deltaCols, 0)
}

// ScrollToEnd shows the last page of the document.
func (v *Viewport) ScrollToEnd() {
	v.topLine = v.maxTop()
}

// maxTop is the largest top line that still fills the view.
func (v *Viewport) maxTop() uint32 {
	if v.lineCount <= uint32(v.height) {
		return 0
	}
	return v.lineCount - uint32(v.height)
}

func (v *Viewport) clamp() {
	v.topLine = min(v.topLine, v.maxTop())
}
