package bus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/sub"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/netroomlab/netroom/pkg/logging"
)

// ErrBusClosed is returned when subscribing to a bus that has shut down.
var ErrBusClosed = errors.New("bus: shut down")

// Bridge forwards every bus event over a mangos PUB socket so an
// out-of-process renderer can follow the event stream. Wire format is
// "<topic> <json payload>"; the topic prefix doubles as the nanomsg
// subscription filter.
type Bridge struct {
	sock mangos.Socket
	log  logging.Logger
}

// NewBridge opens a PUB socket on addr and taps the given bus. Events that
// fail to marshal are logged and skipped; the bridge never blocks a publish.
func NewBridge(b *Bus, addr string, log logging.Logger) (*Bridge, error) {
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("bridge: create pub socket: %w", err)
	}
	if err := sock.Listen(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("bridge: listen on %s: %w", addr, err)
	}

	br := &Bridge{
		sock: sock,
		log:  log.With(logging.Component("bus-bridge")),
	}
	b.Tap(br.forward)
	return br, nil
}

func (br *Bridge) forward(topic Topic, message any) {
	payload, err := json.Marshal(message)
	if err != nil {
		br.log.Warn("dropping unmarshalable event",
			logging.String("topic", string(topic)),
			logging.Error(err),
		)
		return
	}

	frame := make([]byte, 0, len(topic)+1+len(payload))
	frame = append(frame, topic...)
	frame = append(frame, ' ')
	frame = append(frame, payload...)

	if err := br.sock.Send(frame); err != nil {
		br.log.Warn("bridge send failed", logging.Error(err))
	}
}

// Close shuts down the PUB socket.
func (br *Bridge) Close() error {
	return br.sock.Close()
}

// BridgeEvent is one event received by a BridgeClient.
type BridgeEvent struct {
	Topic   Topic
	Payload json.RawMessage
}

// BridgeClient is the SUB side of a Bridge.
type BridgeClient struct {
	sock mangos.Socket
}

// NewBridgeClient dials a Bridge at addr. topics limits the subscription;
// empty means all topics.
func NewBridgeClient(addr string, topics ...Topic) (*BridgeClient, error) {
	sock, err := sub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("bridge client: create sub socket: %w", err)
	}
	if err := sock.Dial(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("bridge client: dial %s: %w", addr, err)
	}

	if len(topics) == 0 {
		err = sock.SetOption(mangos.OptionSubscribe, []byte(""))
	} else {
		for _, t := range topics {
			if err = sock.SetOption(mangos.OptionSubscribe, []byte(t)); err != nil {
				break
			}
		}
	}
	if err != nil {
		sock.Close()
		return nil, fmt.Errorf("bridge client: subscribe: %w", err)
	}

	return &BridgeClient{sock: sock}, nil
}

// SetRecvDeadline bounds how long Recv blocks.
func (c *BridgeClient) SetRecvDeadline(d time.Duration) error {
	return c.sock.SetOption(mangos.OptionRecvDeadline, d)
}

// Recv blocks for the next event.
func (c *BridgeClient) Recv() (BridgeEvent, error) {
	frame, err := c.sock.Recv()
	if err != nil {
		return BridgeEvent{}, err
	}
	sep := bytes.IndexByte(frame, ' ')
	if sep < 0 {
		return BridgeEvent{}, fmt.Errorf("bridge client: malformed frame %q", frame)
	}
	return BridgeEvent{
		Topic:   Topic(frame[:sep]),
		Payload: json.RawMessage(frame[sep+1:]),
	}, nil
}

// Close shuts down the SUB socket.
func (c *BridgeClient) Close() error {
	return c.sock.Close()
}
