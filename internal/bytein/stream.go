// Package bytein provides byte-wise input streams with one byte of
// pushback and enough location tracking to name a position in user
// feedback.
package bytein

import (
	"bufio"
	"fmt"
	"io"
)

// Location names a line in an input stream.
type Location struct {
	Name string
	Line int
}

func (loc Location) String() string { return fmt.Sprintf("%v:%v", loc.Name, loc.Line) }

// Stream reads bytes sequentially from a single input. At most one byte
// may be pushed back between reads, and the pushed-back byte is consumed
// again by the next ReadByte; nothing is held across a nested use of the
// same stream.
type Stream struct {
	br   *bufio.Reader
	loc  Location
	last byte
}

// New wraps r as a Stream. If r implements Name() string, the stream's
// location carries that name.
func New(r io.Reader) *Stream {
	return &Stream{
		br:  bufio.NewReader(r),
		loc: Location{Name: nameOf(r), Line: 1},
	}
}

// ReadByte returns the next input byte, advancing the location over line
// feeds.
func (in *Stream) ReadByte() (byte, error) {
	c, err := in.br.ReadByte()
	if err != nil {
		return 0, err
	}
	in.last = c
	if c == '\n' {
		in.loc.Line++
	}
	return c, nil
}

// UnreadByte pushes the most recently read byte back onto the stream.
func (in *Stream) UnreadByte() error {
	if err := in.br.UnreadByte(); err != nil {
		return err
	}
	if in.last == '\n' {
		in.loc.Line--
	}
	return nil
}

// Loc reports the stream's current location.
func (in *Stream) Loc() Location { return in.loc }

// Named gives r a name, which Streams wrapping it report in their
// locations.
func Named(name string, r io.Reader) io.Reader {
	return namedReader{r, name}
}

type namedReader struct {
	io.Reader
	name string
}

func (nr namedReader) Name() string { return nr.name }

func nameOf(obj interface{}) string {
	if nom, ok := obj.(interface{ Name() string }); ok {
		return nom.Name()
	}
	return fmt.Sprintf("<unnamed %T>", obj)
}
