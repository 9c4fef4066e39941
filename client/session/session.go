// Package session edits a shared text whose characters are list elements
// ordered by crdt positions.
package session

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/burntcarrot/waypad/commons"
	"github.com/burntcarrot/waypad/crdt"
	"github.com/burntcarrot/waypad/store"
	"github.com/sirupsen/logrus"
)

var (
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	ErrLostConnection   = errors.New("lost connection")
)

// Sender writes messages to the server.
type Sender interface {
	WriteJSON(v interface{}) error
}

// Session is one replica's view of the shared text: a local copy of the
// records, the cached positions and keys sorted by position, and a selection
// held as two cursors so it survives edits made elsewhere.
//
// A Session is not safe for concurrent use.
type Session struct {
	source *crdt.PositionSource
	doc    *store.Store
	conn   Sender
	logger logrus.FieldLogger

	positions []crdt.Position
	keys      []string
	values    []string

	start crdt.Cursor
	end   crdt.Cursor

	cancel func()
}

// New returns a session minting positions from source. Local edits are sent
// through conn; a nil conn keeps the session offline.
func New(source *crdt.PositionSource, conn Sender, logger logrus.FieldLogger) *Session {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	s := &Session{
		source: source,
		doc:    store.New(),
		conn:   conn,
		logger: logger.WithField("replica", source.ReplicaID()),
		start:  crdt.Cursor(crdt.First),
		end:    crdt.Cursor(crdt.First),
	}
	s.cancel = s.doc.Subscribe(s.refresh)
	return s
}

// Close stops tracking the local copy.
func (s *Session) Close() {
	s.cancel()
}

// refresh rebuilds the cached arrays after every change to the local copy.
func (s *Session) refresh(snap store.Snapshot) {
	// Checked once here so that IndexOf can stay logarithmic.
	if !crdt.Sorted(snap.Positions) {
		panic("session: store snapshot is not in position order")
	}
	s.positions = snap.Positions
	s.keys = snap.Keys
	s.values = snap.Values
}

// Text returns the current text.
func (s *Session) Text() string {
	return strings.Join(s.values, "")
}

// Len returns the number of characters.
func (s *Session) Len() int {
	return len(s.positions)
}

// Positions returns the current positions in list order.
func (s *Session) Positions() []crdt.Position {
	return s.positions
}

// Selection returns the current indices of the selection's ends.
func (s *Session) Selection() (start, end int) {
	return crdt.IndexOf(s.positions, s.start), crdt.IndexOf(s.positions, s.end)
}

// Select moves the selection. Indices are clamped to the text.
func (s *Session) Select(start, end int) {
	start, end = s.clamp(start), s.clamp(end)
	if end < start {
		start, end = end, start
	}
	s.start = crdt.CursorAt(s.positions, start)
	s.end = crdt.CursorAt(s.positions, end)
}

func (s *Session) clamp(index int) int {
	if index < 0 {
		return 0
	}
	if index > len(s.positions) {
		return len(s.positions)
	}
	return index
}

// InsertText inserts text before the character at index. All positions are
// minted before any record is written, so indices cannot drift mid-batch.
func (s *Session) InsertText(index int, text string) error {
	if index < 0 || index > len(s.positions) {
		return ErrIndexOutOfBounds
	}
	if text == "" {
		return nil
	}

	before, after := crdt.First, crdt.Last
	if index > 0 {
		before = s.positions[index-1]
	}
	if index < len(s.positions) {
		after = s.positions[index]
	}

	recs := make([]store.Record, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		pos := s.source.CreateBetween(before, after)
		recs = append(recs, store.NewRecord(pos, string(r)))
		before = pos
	}

	s.logger.WithFields(logrus.Fields{
		"index": index,
		"text":  text,
		"first": recs[0].Position,
		"last":  recs[len(recs)-1].Position,
	}).Debug("local insert")

	if err := s.doc.Put(recs...); err != nil {
		return err
	}
	return s.send(commons.Message{Type: commons.InsertMessage, Records: recs})
}

// DeleteRange removes count characters starting at index.
func (s *Session) DeleteRange(index, count int) error {
	if count <= 0 {
		return nil
	}
	if index < 0 || index+count > len(s.positions) {
		return ErrIndexOutOfBounds
	}

	keys := make([]string, count)
	copy(keys, s.keys[index:index+count])

	s.logger.WithFields(logrus.Fields{"index": index, "count": count}).Debug("local delete")

	s.doc.Delete(keys...)
	return s.send(commons.Message{Type: commons.DeleteMessage, Keys: keys})
}

// Type replaces the selection with text and places the cursor after it.
func (s *Session) Type(text string) error {
	start, end := s.Selection()
	if start < end {
		if err := s.DeleteRange(start, end-start); err != nil {
			return err
		}
	}

	err := s.InsertText(start, text)
	s.Select(start+utf8.RuneCountInString(text), start+utf8.RuneCountInString(text))
	return err
}

// Backspace deletes the selection, or the character before the cursor.
func (s *Session) Backspace() error {
	start, end := s.Selection()
	switch {
	case start < end:
		err := s.DeleteRange(start, end-start)
		s.Select(start, start)
		return err
	case start > 0:
		err := s.DeleteRange(start-1, 1)
		s.Select(start-1, start-1)
		return err
	}
	return nil
}

// DeleteForward deletes the selection, or the character after the cursor.
func (s *Session) DeleteForward() error {
	start, end := s.Selection()
	switch {
	case start < end:
		err := s.DeleteRange(start, end-start)
		s.Select(start, start)
		return err
	case start < len(s.positions):
		return s.DeleteRange(start, 1)
	}
	return nil
}

// Cut deletes the selection and returns its text.
func (s *Session) Cut() (string, error) {
	start, end := s.Selection()
	if start >= end {
		return "", nil
	}

	cut := strings.Join(s.values[start:end], "")
	err := s.DeleteRange(start, end-start)
	s.Select(start, start)
	return cut, err
}

// ApplyRemote applies a message received from the server. The selection
// keeps its place relative to the surrounding text.
func (s *Session) ApplyRemote(msg commons.Message) error {
	applied, err := commons.Apply(s.doc, msg)
	if applied {
		s.logger.WithFields(logrus.Fields{
			"type":    msg.Type,
			"records": len(msg.Records),
			"keys":    len(msg.Keys),
		}).Debug("remote change")
	}
	return err
}

func (s *Session) send(msg commons.Message) error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrLostConnection, err)
	}
	return nil
}

// Insert inserts value before the character at index and returns the text.
func (s *Session) Insert(index int, value string) (string, error) {
	err := s.InsertText(index, value)
	return s.Text(), err
}

// Delete removes the character at index and returns the text.
func (s *Session) Delete(index int) string {
	if err := s.DeleteRange(index, 1); err != nil {
		s.logger.WithError(err).WithField("index", index).Error("delete failed")
	}
	return s.Text()
}

var _ crdt.CRDT = (*Session)(nil)
