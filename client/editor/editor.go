package editor

import (
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/nsf/termbox-go"
)

// EditorConfig holds the editor's settings.
type EditorConfig struct {
	ScrollEnabled bool
}

// Editor is the terminal view of the shared text. Cursor and Anchor are rune
// indices into Text; the selection spans between them.
type Editor struct {
	Text   []rune
	Cursor int
	Anchor int

	Width  int
	Height int

	// ColOff and RowOff are the first visible column and row.
	ColOff int
	RowOff int

	ScrollEnabled bool

	mu        sync.Mutex
	showMsg   bool
	statusMsg string
	msgTimer  *time.Timer

	// Users are the names shown in the status bar.
	Users string
}

func NewEditor(conf EditorConfig) *Editor {
	return &Editor{ScrollEnabled: conf.ScrollEnabled}
}

// SetText replaces the text, keeping the cursor in range.
func (e *Editor) SetText(text string) {
	e.Text = []rune(text)
	e.Cursor = clamp(e.Cursor, 0, len(e.Text))
	e.Anchor = clamp(e.Anchor, 0, len(e.Text))
}

// SetSize sets the size of the view, including the status bar.
func (e *Editor) SetSize(w, h int) {
	e.Width = w
	e.Height = h
}

// Selection returns the ordered ends of the selection.
func (e *Editor) Selection() (start, end int) {
	if e.Anchor < e.Cursor {
		return e.Anchor, e.Cursor
	}
	return e.Cursor, e.Anchor
}

// Select sets the selection; the cursor goes to end.
func (e *Editor) Select(start, end int) {
	e.Anchor = clamp(start, 0, len(e.Text))
	e.Cursor = clamp(end, 0, len(e.Text))
	e.scroll()
}

// SetStatusBar shows msg in the status bar for five seconds.
func (e *Editor) SetStatusBar(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.showMsg = true
	e.statusMsg = msg
	if e.msgTimer != nil {
		e.msgTimer.Stop()
	}
	e.msgTimer = time.AfterFunc(5*time.Second, func() {
		e.mu.Lock()
		e.showMsg = false
		e.mu.Unlock()
	})
}

// StatusMsg returns the status bar's message, or "" once it has expired.
func (e *Editor) StatusMsg() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.showMsg {
		return ""
	}
	return e.statusMsg
}

// Draw updates the UI by setting cells with the editor's content.
func (e *Editor) Draw() {
	_ = termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)

	selStart, selEnd := e.Selection()
	cx, cy := e.calcXY(e.Cursor)
	termbox.SetCursor(cx-1-e.ColOff, cy-1-e.RowOff)

	x, y := 0, 0
	for i, r := range e.Text {
		if r == '\n' {
			x = 0
			y++
			continue
		}

		sx, sy := x-e.ColOff, y-e.RowOff
		if sx >= 0 && sx < e.Width && sy >= 0 && sy < e.Height-1 {
			fg, bg := termbox.ColorDefault, termbox.ColorDefault
			if i >= selStart && i < selEnd {
				fg |= termbox.AttrReverse
			}
			termbox.SetCell(sx, sy, r, fg, bg)
		}

		// Update x by rune's width.
		x += runewidth.RuneWidth(r)
	}

	e.drawStatusBar()

	// Flush back buffer!
	termbox.Flush()
}

func (e *Editor) drawStatusBar() {
	msg := e.StatusMsg()
	if msg == "" {
		x, y := e.calcXY(e.Cursor)
		msg = fmt.Sprintf("%d:%d  len=%d  users: %s", y, x, len(e.Text), e.Users)
	}

	x := 0
	for _, r := range msg {
		if x >= e.Width {
			break
		}
		termbox.SetCell(x, e.Height-1, r, termbox.ColorBlack, termbox.ColorWhite)
		x += runewidth.RuneWidth(r)
	}
}

// MoveCursor moves the cursor x runes horizontally, or y lines vertically,
// keeping the column where the target line allows. The selection collapses
// onto the cursor.
func (e *Editor) MoveCursor(x, y int) {
	if len(e.Text) == 0 {
		e.Cursor, e.Anchor = 0, 0
		return
	}

	cursor := e.Cursor + x
	if y != 0 {
		cursor = e.moveLines(y)
	}

	e.Cursor = clamp(cursor, 0, len(e.Text))
	e.Anchor = e.Cursor
	e.scroll()
}

// moveLines returns the index y lines above (y < 0) or below the cursor.
func (e *Editor) moveLines(y int) int {
	starts := e.lineStarts()
	line := lineOf(starts, e.Cursor)
	col := e.Cursor - starts[line]

	target := line + y
	if target < 0 {
		return 0
	}
	if target >= len(starts) {
		return len(e.Text)
	}

	// The target line ends before its newline, or at the end of the text.
	end := len(e.Text)
	if target+1 < len(starts) {
		end = starts[target+1] - 1
	}
	return min(starts[target]+col, end)
}

// lineStarts returns the index of the first rune of every line.
func (e *Editor) lineStarts() []int {
	starts := []int{0}
	for i, r := range e.Text {
		if r == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineOf returns the line containing index.
func lineOf(starts []int, index int) int {
	line := 0
	for line+1 < len(starts) && starts[line+1] <= index {
		line++
	}
	return line
}

// scroll moves the visible window so that the cursor stays inside it.
func (e *Editor) scroll() {
	if !e.ScrollEnabled {
		return
	}

	x, y := e.calcXY(e.Cursor)
	x, y = x-1, y-1

	// The last row is the status bar.
	rows := e.Height - 1
	if y < e.RowOff {
		e.RowOff = y
	}
	if rows > 0 && y >= e.RowOff+rows {
		e.RowOff = y - rows + 1
	}

	if x < e.ColOff {
		e.ColOff = x
	}
	if e.Width > 0 && x >= e.ColOff+e.Width {
		e.ColOff = x - e.Width + 1
	}
}

// calcXY returns the 1-based screen column and row of index.
func (e *Editor) calcXY(index int) (int, int) {
	x, y := 1, 1
	index = clamp(index, 0, len(e.Text))

	for _, r := range e.Text[:index] {
		if r == '\n' {
			x = 1
			y++
		} else {
			x += runewidth.RuneWidth(r)
		}
	}
	return x, y
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
