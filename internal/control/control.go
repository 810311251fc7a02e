package control

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/oklog/ulid/v2"
)

// Kind identifies a notice.
type Kind string

const (
	KindRecordingUnsupported Kind = "recording_unsupported"
	KindRecordingUnusable    Kind = "recording_unusable"
	KindRecordingFinished    Kind = "recording_finished"
)

// Notice is one control message.
type Notice struct {
	Kind        Kind   `json:"kind"`
	Reason      string `json:"reason,omitempty"`
	RecordingID string `json:"recording_id,omitempty"`
	Created     bool   `json:"created,omitempty"`
}

// Channel receives lifecycle notices from the gateway.
type Channel interface {
	RecordingUnsupported(reason string)
	RecordingUnusable(reason string)
	RecordingFinished(recordingID string, created bool)
}

// Nop discards every notice.
type Nop struct{}

func (Nop) RecordingUnsupported(string)    {}
func (Nop) RecordingUnusable(string)       {}
func (Nop) RecordingFinished(string, bool) {}

// Publisher sends notices to a watermill topic.
//
// Publish failures are logged, never returned: a control process that is not
// listening must not affect the host.
type Publisher struct {
	pub    message.Publisher
	topic  string
	logger *slog.Logger

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// NewPublisher creates a Publisher on topic.
func NewPublisher(pub message.Publisher, topic string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		pub:     pub,
		topic:   topic,
		logger:  logger.With("component", "control", "topic", topic),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (p *Publisher) RecordingUnsupported(reason string) {
	p.Publish(Notice{Kind: KindRecordingUnsupported, Reason: reason})
}

func (p *Publisher) RecordingUnusable(reason string) {
	p.Publish(Notice{Kind: KindRecordingUnusable, Reason: reason})
}

func (p *Publisher) RecordingFinished(recordingID string, created bool) {
	p.Publish(Notice{Kind: KindRecordingFinished, RecordingID: recordingID, Created: created})
}

// Publish sends n.
func (p *Publisher) Publish(n Notice) {
	payload, err := json.Marshal(n)
	if err != nil {
		p.logger.Error("encode notice", "kind", n.Kind, "error", err)
		return
	}

	msg := message.NewMessage(p.newID(), payload)
	msg.Metadata.Set("kind", string(n.Kind))
	if err := p.pub.Publish(p.topic, msg); err != nil {
		p.logger.Error("publish notice", "kind", n.Kind, "error", err)
		return
	}
	p.logger.Debug("notice published", "kind", n.Kind, "id", msg.UUID)
}

func (p *Publisher) newID() string {
	p.entropyMu.Lock()
	defer p.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), p.entropy).String()
}

// Decode parses a notice received from the control topic.
func Decode(msg *message.Message) (Notice, error) {
	var n Notice
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		return Notice{}, fmt.Errorf("decode notice %s: %w", msg.UUID, err)
	}
	return n, nil
}

// NewGoChannel returns an in-process pub/sub for a control topic.
func NewGoChannel(logger *slog.Logger) *gochannel.GoChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))
}
