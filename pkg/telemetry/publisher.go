package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/jpillora/backoff"

	fx "github.com/robotalks/periph.go/pkg/framework"
)

// ServoCommand sets servo channels on one actuator board.
type ServoCommand struct {
	Board    uint8   `json:"board"`
	Channels uint16  `json:"channels"`
	Angle    float64 `json:"angle"`
}

// ServoAck reports the outcome of a ServoCommand.
type ServoAck struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Publisher ships reading snapshots from a Feed to an MQTT broker and
// accepts servo commands addressed to this device. Topics are laid out
// as <prefix><device-id>/<device>/reading, with commands arriving on
// <prefix><device-id>/servo/set and acknowledged on .../servo/ack.
type Publisher struct {
	Queue    *Queue
	Feed     *Feed
	DeviceID string
	// Servo, when set, receives decoded servo commands.
	Servo func(ServoCommand) error

	retry *backoff.Backoff
}

// NewPublisher creates a Publisher for a broker URL.
func NewPublisher(brokerURL, deviceID string, feed *Feed) (*Publisher, error) {
	q, err := NewQueueFromURL(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("telemetry: broker url: %w", err)
	}
	return &Publisher{
		Queue:    q,
		Feed:     feed,
		DeviceID: deviceID,
		retry: &backoff.Backoff{
			Min:    500 * time.Millisecond,
			Max:    30 * time.Second,
			Jitter: true,
		},
	}, nil
}

// Name implements framework.Named.
func (p *Publisher) Name() string {
	return "telemetry"
}

// Run implements framework.Runnable: connect (retrying while the
// broker is unreachable), subscribe the command topic and pump the
// feed until the context is canceled.
func (p *Publisher) Run(ctx context.Context) error {
	if err := p.connect(ctx); err != nil {
		return err
	}
	defer p.Queue.Close()
	if p.Servo != nil {
		p.Queue.Sub(p.DeviceID+"/servo/set", p.handleServo)
	}
	sub := p.Feed.Subscribe(16)
	return fx.RunWithContextCloser(ctx, sub, func() error {
		for snap := range sub.C {
			p.Queue.Pub(p.DeviceID+"/"+snap.Device+"/reading", snap.Data)
		}
		return nil
	})
}

func (p *Publisher) connect(ctx context.Context) error {
	for {
		token := p.Queue.Connect()
		token.Wait()
		err := token.Error()
		if err == nil {
			p.retry.Reset()
			return nil
		}
		wait := p.retry.Duration()
		glog.Warningf("mqtt connect failed, retry in %s: %v", wait, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (p *Publisher) handleServo(topic string, payload []byte) {
	var cmd ServoCommand
	ack := ServoAck{OK: true}
	if err := json.Unmarshal(payload, &cmd); err != nil {
		ack = ServoAck{Error: fmt.Sprintf("bad command: %v", err)}
	} else if err := p.Servo(cmd); err != nil {
		ack = ServoAck{Error: err.Error()}
	}
	if ack.Error != "" {
		glog.Warningf("servo command rejected: %s", ack.Error)
	}
	if data, err := json.Marshal(ack); err == nil {
		p.Queue.Pub(p.DeviceID+"/servo/ack", data)
	}
}
