package wire

import (
	"context"
	"fmt"

	"github.com/coder/websocket"
)

// outboundBufferSize bounds a connection's non-blocking send queue; a full
// queue means the consumer is backpressured and drop_if_slow sends skip it.
const outboundBufferSize = 64

// socketSender adapts a *websocket.Conn to gwstate.Sender: Send is
// non-blocking (used by drop_if_slow broadcasts), SendBlocking always
// reaches the wire (used by node.invoke.request and direct responses).
type socketSender struct {
	ws     *websocket.Conn
	outCh  chan []byte
	done   chan struct{}
}

func newSocketSender(ws *websocket.Conn) *socketSender {
	s := &socketSender{ws: ws, outCh: make(chan []byte, outboundBufferSize), done: make(chan struct{})}
	go s.writeLoop()
	return s
}

func (s *socketSender) writeLoop() {
	ctx := context.Background()
	for {
		select {
		case frame, ok := <-s.outCh:
			if !ok {
				return
			}
			if err := s.ws.Write(ctx, websocket.MessageText, frame); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

// Send enqueues frame without blocking; returns false if the outbound queue
// is full (the caller should treat the target as backpressured).
func (s *socketSender) Send(frame []byte) bool {
	select {
	case s.outCh <- frame:
		return true
	default:
		return false
	}
}

// SendBlocking enqueues frame, blocking until there is room or the
// connection is closing.
func (s *socketSender) SendBlocking(frame []byte) error {
	select {
	case s.outCh <- frame:
		return nil
	case <-s.done:
		return fmt.Errorf("wire: connection closed")
	}
}

// Close stops the write loop and closes the underlying socket.
func (s *socketSender) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	_ = s.ws.Close(websocket.StatusNormalClosure, "closing")
}
