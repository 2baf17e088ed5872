// Package wire implements the length-framed binary transport and the
// compact, tagged binary encoding described in spec.md section 6: fixed
// width little-endian integers (except the big-endian frame length), u32
// variant discriminants in declaration order, u64-length strings and
// sequences, and u8 (0/1) option tags. Every exported message type here
// maps onto the wire's FromClientEvent / ToClientEvent alphabet; the
// domain types they carry (World, Entity, WorldEvent, ...) live in
// worldmodel and tilemap.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// ErrShortFrame is returned when a frame's payload ends before a value
// finishes decoding — a protocol violation, treated as transport per
// spec.md section 7.
var ErrShortFrame = errors.New("wire: short frame")

// encoder accumulates a payload in the compact binary format, ready to be
// handed to Writer.SendFrame.
type encoder struct {
	buf bytes.Buffer
}

func newEncoder() *encoder {
	return &encoder{}
}

func (e *encoder) u8(v uint8) {
	e.buf.WriteByte(v)
}

func (e *encoder) boolean(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *encoder) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) i32(v int32) {
	e.u32(uint32(v))
}

func (e *encoder) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) rawBytes(b []byte) {
	e.buf.Write(b)
}

func (e *encoder) str(s string) {
	e.u64(uint64(len(s)))
	e.buf.WriteString(s)
}

func (e *encoder) bytes() []byte {
	return e.buf.Bytes()
}

// decoder reads values out of a single in-memory frame payload.
type decoder struct {
	data []byte
	pos  int
}

func newDecoder(data []byte) *decoder {
	return &decoder{data: data}
}

func (d *decoder) take(n int) ([]byte, error) {
	if d.pos+n > len(d.data) {
		return nil, ErrShortFrame
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) u8() (uint8, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) boolean() (bool, error) {
	v, err := d.u8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) i32() (int32, error) {
	v, err := d.u32()
	return int32(v), err
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *decoder) str() (string, error) {
	n, err := d.u64()
	if err != nil {
		return "", err
	}
	b, err := d.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) done() bool {
	return d.pos == len(d.data)
}

// readFrame reads one length-framed payload: a big-endian u32 length
// followed by exactly that many payload bytes.
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// writeFrame writes payload as one big-endian-u32-length-prefixed frame in
// a single Write call, so concurrent writers can never interleave frames
// (see spec.md 4.C1: "a write is atomic at the frame level").
func writeFrame(w io.Writer, payload []byte) error {
	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(payload)))
	copy(frame[4:], payload)
	_, err := w.Write(frame)
	return err
}
