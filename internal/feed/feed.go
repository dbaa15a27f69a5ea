// Package feed carries activity events from the request path to the events
// table. Handlers publish onto an in-process watermill bus; a single Recorder
// subscribes and persists them.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/embracexyz/filmorate/internal/data"
	"github.com/embracexyz/filmorate/internal/jsonlog"
)

const Topic = "feed.events"

// recordTimeout bounds a single insert; it does not inherit the subscription
// context so events still in flight at shutdown are written.
const recordTimeout = 3 * time.Second

// NewBus returns an in-memory pub/sub. Messages published while nobody is
// subscribed are dropped, so the recorder must subscribe before serving.
// Publish returns only once the recorder has acked, i.e. after the insert.
func NewBus(buffer int64, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            buffer,
		BlockPublishUntilSubscriberAck: true,
	}, logger)
}

type Publisher struct {
	pub message.Publisher
}

func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

func (p *Publisher) Publish(ctx context.Context, event data.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", event.EventType)

	if err := p.pub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", Topic, err)
	}
	return nil
}

// Recorder persists feed events. Every message is acked, including the ones
// that fail to decode or insert, so a bad event is logged once and not
// redelivered forever.
type Recorder struct {
	events interface {
		Insert(ctx context.Context, event *data.Event) error
	}
	logger *jsonlog.Logger
}

func NewRecorder(models data.Models, logger *jsonlog.Logger) *Recorder {
	return &Recorder{events: models.Events, logger: logger}
}

// Run blocks until messages is closed, recording everything still buffered.
func (r *Recorder) Run(messages <-chan *message.Message) {
	for msg := range messages {
		r.record(msg)
	}
}

func (r *Recorder) record(msg *message.Message) {
	defer msg.Ack()

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	var event data.Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		r.logger.PrintError(fmt.Errorf("decode feed event: %w", err), map[string]string{
			"message_uuid": msg.UUID,
		})
		return
	}

	if err := r.events.Insert(ctx, &event); err != nil {
		props := map[string]string{
			"message_uuid": msg.UUID,
			"user_id":      strconv.FormatInt(event.UserID, 10),
			"entity_id":    strconv.FormatInt(event.EntityID, 10),
		}
		// 用户在事件入库前被删除
		if errors.Is(err, data.ErrInvalidReference) {
			r.logger.PrintWarning("dropping feed event: "+err.Error(), props)
			return
		}
		r.logger.PrintError(fmt.Errorf("record feed event: %w", err), props)
	}
}
