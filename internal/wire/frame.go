package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bft-labs/puppetlink/internal/domain"
)

const (
	lengthSize  = 4
	counterSize = 4

	// MaxFrameSize bounds remainingLength. Larger announcements are treated
	// as a corrupt stream.
	MaxFrameSize = 256 << 20
)

// Frame is one decoded command and the counter it was sent with.
type Frame struct {
	Counter uint32
	Command domain.Command

	// Gap is set when Counter is not the previous counter plus one.
	// Missing is how many frames were skipped.
	Gap     bool
	Missing uint32
}

// Encode frames cmd with the given counter into one contiguous buffer.
func Encode(cmd domain.Command, counter uint32) ([]byte, error) {
	payload, err := Marshal(cmd)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, lengthSize+counterSize+len(payload))
	binary.LittleEndian.PutUint32(buf[lengthSize:], counter)
	copy(buf[lengthSize+counterSize:], payload)
	binary.LittleEndian.PutUint32(buf, uint32(len(buf)-lengthSize))
	return buf, nil
}

// Decoder reassembles frames from a byte stream. Bytes are appended with
// Write as they arrive and Decode pulls out every complete frame.
//
// Counters are expected to increase by one per frame. Only the very first
// frame may carry counter 0 without being flagged; a repeated counter is
// flagged as a gap with nothing missing.
//
// A Decoder is not safe for concurrent use. Each connection owns one and
// touches it only from its read loop.
type Decoder struct {
	buf           bytes.Buffer
	pendingLength uint32
	lastCounter   uint32
	started       bool
	lost          uint64
}

// NewDecoder returns an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Write buffers p. It never fails.
func (d *Decoder) Write(p []byte) (int, error) {
	return d.buf.Write(p)
}

// Buffered returns the number of unconsumed bytes.
func (d *Decoder) Buffered() int {
	return d.buf.Len()
}

// PendingLength returns the length prefix already consumed for the frame
// being waited on, or 0 when the next read starts with a prefix.
func (d *Decoder) PendingLength() uint32 {
	return d.pendingLength
}

// LastCounter returns the counter of the most recent frame.
func (d *Decoder) LastCounter() uint32 {
	return d.lastCounter
}

// Lost returns the number of frames detected as missing or undecodable.
func (d *Decoder) Lost() uint64 {
	return d.lost
}

// Decode returns every complete frame currently buffered, in arrival order.
// A trailing partial frame stays buffered for the next call.
//
// Frames whose payload cannot be decoded are consumed and reported in the
// returned error alongside the good frames. A length prefix outside
// (4, MaxFrameSize] means the stream cannot be resynchronized: Decode stops
// and returns ErrFrameTooLarge.
func (d *Decoder) Decode() ([]Frame, error) {
	var (
		frames []Frame
		errs   []error
	)
	for {
		if d.pendingLength == 0 {
			if d.buf.Len() < lengthSize {
				break
			}
			n := binary.LittleEndian.Uint32(d.buf.Next(lengthSize))
			if n < counterSize || n > MaxFrameSize {
				errs = append(errs, fmt.Errorf("%w: length %d", domain.ErrFrameTooLarge, n))
				return frames, errors.Join(errs...)
			}
			d.pendingLength = n
		}
		if uint32(d.buf.Len()) < d.pendingLength {
			break
		}

		body := d.buf.Next(int(d.pendingLength))
		d.pendingLength = 0

		counter := binary.LittleEndian.Uint32(body[:counterSize])
		f := Frame{Counter: counter}
		switch {
		case !d.started:
			d.started = true
			if counter != 0 && counter != d.lastCounter+1 {
				f.Gap = true
				f.Missing = counter - d.lastCounter - 1
				d.lost += uint64(f.Missing)
			}
		case counter == d.lastCounter:
			f.Gap = true
		case counter != d.lastCounter+1:
			f.Gap = true
			f.Missing = counter - d.lastCounter - 1
			d.lost += uint64(f.Missing)
		}
		d.lastCounter = counter

		cmd, err := Unmarshal(body[counterSize:])
		if err != nil {
			d.lost++
			errs = append(errs, fmt.Errorf("frame %d: %w", counter, err))
			continue
		}
		f.Command = cmd
		frames = append(frames, f)
	}
	return frames, errors.Join(errs...)
}

// Encoder writes frames with its own increasing counter. Workers use it;
// the host manager shares one counter across all its connections instead.
type Encoder struct {
	w       io.Writer
	counter uint32
}

// NewEncoder returns an Encoder writing to w, starting at counter 0.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Send frames and writes cmd, then advances the counter.
func (e *Encoder) Send(cmd domain.Command) error {
	buf, err := Encode(cmd, e.counter)
	if err != nil {
		return err
	}
	if _, err := e.w.Write(buf); err != nil {
		return fmt.Errorf("write %s: %w", cmd.Kind(), err)
	}
	e.counter++
	return nil
}
