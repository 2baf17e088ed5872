// Command join connects to a running host process, renders the local
// participant's speculative view of the world to the terminal, and submits
// locally issued moves and attacks.
package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coredrift/tilesync/internal/config"
	"github.com/coredrift/tilesync/internal/draw"
	"github.com/coredrift/tilesync/internal/hostlog"
	"github.com/coredrift/tilesync/internal/input"
	"github.com/coredrift/tilesync/internal/predictor"
	"github.com/coredrift/tilesync/internal/wire"
	"github.com/coredrift/tilesync/internal/worldmodel"
	"golang.org/x/term"
)

const tickRate = 60 * time.Millisecond

// disconnectGracePeriod gives the outbound Disconnect frame sent on death a
// moment to actually reach the host before the socket is torn down, per
// spec.md 4.C8 step 3.
const disconnectGracePeriod = 200 * time.Millisecond

func main() {
	logger := hostlog.New("join")

	addr := config.GetEnv("TILESYNC_HOST_ADDR", "127.0.0.1:4921")
	name := config.GetEnv("TILESYNC_NAME", fmt.Sprintf("player%d", rand.Intn(10000)))

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		logger.Fatal("dial failed", "addr", addr, "err", err)
	}
	c := wire.NewConn(conn)

	if err := c.Writer.SendString(name); err != nil {
		logger.Fatal("sending name failed", "err", err)
	}
	selfId, err := c.Reader.RecvClientId()
	if err != nil {
		logger.Fatal("reading client id failed", "err", err)
	}
	world, err := c.Reader.RecvWorld()
	if err != nil {
		logger.Fatal("reading initial world failed", "err", err)
	}

	p := predictor.New(logger, selfId, world)

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err == nil {
		defer term.Restore(fd, oldState)
	}
	renderer := newTermRenderer(os.Stdout)
	draw.HideCursor(os.Stdout)
	defer draw.ShowCursor(os.Stdout)

	keys := input.StartStream(bufio.NewReader(os.Stdin))
	inputSrc := &keyInputSource{stream: keys}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		c.Writer.SendFromClient(wire.Disconnect{})
		cancel()
	}()

	toClient := make(chan wire.Timestamped, 64)
	go func() {
		defer close(toClient)
		for {
			ts, msg, err := c.Reader.RecvToClient()
			if err != nil {
				return
			}
			select {
			case toClient <- wire.Timestamped{Ts: ts, Msg: msg}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go runInputLoop(ctx, c, p, inputSrc)

	if err := predictor.Run(ctx, toClient, p, renderer); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if _, died := err.(*predictor.DiedError); died {
			c.Writer.SendFromClient(wire.Disconnect{})
			time.Sleep(disconnectGracePeriod)
		}
	}
	c.Close()
}

func runInputLoop(ctx context.Context, c *wire.Conn, p *predictor.Predictor, src predictor.InputSource) {
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()
	var nextId worldmodel.EventId

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.Ready() {
				continue
			}
			action, ok := src.Next()
			if !ok {
				continue
			}
			nextId++
			msg := p.SubmitLocal(nextId, action)
			if err := c.Writer.SendFromClient(msg); err != nil {
				return
			}
		}
	}
}

// keyInputSource translates raw keyboard bytes (WASD movement, space to
// attack in the last movement direction) into PlayerActions, reusing the
// teacher's key-hold-tracking input.Stream instead of re-parsing raw bytes.
type keyInputSource struct {
	stream  *input.Stream
	lastDir worldmodel.Dir
}

func (k *keyInputSource) Next() (worldmodel.PlayerAction, bool) {
	in := input.ReadInput(k.stream)

	switch {
	case in.Up:
		k.lastDir = worldmodel.DirUp
		return worldmodel.MoveAction{Dir: worldmodel.DirUp}, true
	case in.Down:
		k.lastDir = worldmodel.DirDown
		return worldmodel.MoveAction{Dir: worldmodel.DirDown}, true
	case in.Left:
		k.lastDir = worldmodel.DirLeft
		return worldmodel.MoveAction{Dir: worldmodel.DirLeft}, true
	case in.Right:
		k.lastDir = worldmodel.DirRight
		return worldmodel.MoveAction{Dir: worldmodel.DirRight}, true
	case in.Space:
		return worldmodel.AttackAction{Dir: k.lastDir}, true
	default:
		return nil, false
	}
}
