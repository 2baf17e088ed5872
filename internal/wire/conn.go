package wire

import (
	"net"
	"time"

	"github.com/coredrift/tilesync/internal/worldmodel"
)

// Reader is the receive half of a framed connection. spec.md 4.C1 requires
// that the two halves of a transport be independently ownable so one task
// can block in Recv while another blocks in Writer.Send on the same
// underlying net.Conn.
type Reader struct {
	conn net.Conn
}

// Writer is the send half of a framed connection.
type Writer struct {
	conn net.Conn
}

// Conn bundles both halves of a freshly accepted or dialed transport. Its
// Reader and Writer fields can be handed to separate goroutines.
type Conn struct {
	Reader Reader
	Writer Writer
	conn   net.Conn
}

// NewConn wraps an established net.Conn.
func NewConn(c net.Conn) *Conn {
	return &Conn{Reader: Reader{conn: c}, Writer: Writer{conn: c}, conn: c}
}

// Close closes the underlying transport. Either half observes the resulting
// error on its next Recv or Send.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the transport's remote address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// RecvFromClient reads and decodes one FromClientEvent frame.
func (r *Reader) RecvFromClient() (FromClientEvent, error) {
	payload, err := readFrame(r.conn)
	if err != nil {
		return nil, err
	}
	return decodeFromClientEvent(newDecoder(payload))
}

// RecvToClient reads and decodes one (Duration, ToClientEvent) frame —
// the host attaches its own elapsed-time clock to every outbound message
// (see spec.md section 6), which the predictor uses for the lagged-purge
// rule in Confirm.
func (r *Reader) RecvToClient() (time.Duration, ToClientEvent, error) {
	payload, err := readFrame(r.conn)
	if err != nil {
		return 0, nil, err
	}
	d := newDecoder(payload)
	ts, err := decodeDuration(d)
	if err != nil {
		return 0, nil, err
	}
	msg, err := decodeToClientEvent(d)
	return ts, msg, err
}

// RecvClientId reads and decodes a single bare u64 frame: the session
// handshake's very first host-to-participant frame (spec.md section 6),
// assigning the connecting participant's ClientId before anything is
// wrapped in the (Duration, ToClientEvent) envelope every later frame uses.
func (r *Reader) RecvClientId() (worldmodel.ClientId, error) {
	payload, err := readFrame(r.conn)
	if err != nil {
		return 0, err
	}
	id, err := newDecoder(payload).u64()
	return worldmodel.ClientId(id), err
}

// RecvString reads and decodes a single length-prefixed string frame, used
// for the session handshake's name announcement.
func (r *Reader) RecvString() (string, error) {
	payload, err := readFrame(r.conn)
	if err != nil {
		return "", err
	}
	return newDecoder(payload).str()
}

// RecvWorld reads and decodes a single World snapshot frame, used once at
// the end of the session handshake.
func (r *Reader) RecvWorld() (worldmodel.World, error) {
	payload, err := readFrame(r.conn)
	if err != nil {
		return worldmodel.World{}, err
	}
	return decodeWorld(newDecoder(payload))
}

// SendFromClient encodes and writes one FromClientEvent frame.
func (w *Writer) SendFromClient(msg FromClientEvent) error {
	e := newEncoder()
	if err := encodeFromClientEvent(e, msg); err != nil {
		return err
	}
	return writeFrame(w.conn, e.bytes())
}

// SendToClient encodes and writes one (Duration, ToClientEvent) frame.
func (w *Writer) SendToClient(ts time.Duration, msg ToClientEvent) error {
	e := newEncoder()
	encodeDuration(e, ts)
	if err := encodeToClientEvent(e, msg); err != nil {
		return err
	}
	return writeFrame(w.conn, e.bytes())
}

// SendClientId encodes and writes a single bare u64 frame carrying id. The
// session handshake sends this as its first frame, ahead of SendWorld and
// ahead of any (Duration, ToClientEvent) frame — see RecvClientId.
func (w *Writer) SendClientId(id worldmodel.ClientId) error {
	e := newEncoder()
	e.u64(uint64(id))
	return writeFrame(w.conn, e.bytes())
}

// SendString encodes and writes a single length-prefixed string frame.
func (w *Writer) SendString(s string) error {
	e := newEncoder()
	e.str(s)
	return writeFrame(w.conn, e.bytes())
}

// SendWorld encodes and writes a single World snapshot frame.
func (w *Writer) SendWorld(snap worldmodel.World) error {
	e := newEncoder()
	if err := encodeWorld(e, snap); err != nil {
		return err
	}
	return writeFrame(w.conn, e.bytes())
}
