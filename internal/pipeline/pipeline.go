// Package pipeline orchestrates reading ingestion: decode, live state
// fan-out, persistence, alert evaluation and the trigger count.
package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/caiomathol/weatherwatch/internal/alert"
	"github.com/caiomathol/weatherwatch/internal/decode"
	"github.com/caiomathol/weatherwatch/internal/live"
	"github.com/caiomathol/weatherwatch/internal/notify"
	"github.com/caiomathol/weatherwatch/internal/session"
	"github.com/caiomathol/weatherwatch/internal/store"
)

// Pipeline processes inbound broker messages one at a time, in arrival
// order. All collaborators are injected; the pipeline is the sole
// writer of the live hub's slots.
type Pipeline struct {
	decoder   *decode.Decoder
	hub       *live.Hub
	readings  store.ReadingStore
	rules     store.RuleStore
	evaluator *alert.Evaluator
	session   session.Provider
	notifier  notify.Notifier

	mu sync.Mutex // serializes OnMessage
}

func New(hub *live.Hub, readings store.ReadingStore, rules store.RuleStore, sess session.Provider) *Pipeline {
	return &Pipeline{
		decoder:   decode.New(),
		hub:       hub,
		readings:  readings,
		rules:     rules,
		evaluator: alert.NewEvaluator(rules),
		session:   sess,
	}
}

// WithDecoder swaps the decoder. Test hook for a fixed clock.
func (p *Pipeline) WithDecoder(d *decode.Decoder) *Pipeline {
	p.decoder = d
	return p
}

// WithNotifier adds a notification sink for fired triggers.
func (p *Pipeline) WithNotifier(n notify.Notifier) *Pipeline {
	p.notifier = n
	return p
}

// OnMessage handles one inbound broker message. The ordering is a
// contract: the live display updates before any persistence or
// evaluation work, and the trigger count publishes only after every
// trigger write for this reading has been attempted. A failure in any
// step is isolated to this message.
func (p *Pipeline) OnMessage(ctx context.Context, topic string, payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	MessagesReceived.Add(1)

	reading, err := p.decoder.Decode(topic, payload)
	if err != nil {
		DecodeFailures.Add(1)
		log.Warn().Err(err).Str("topic", topic).Msg("discarding message")
		return
	}

	p.hub.SetReading(reading)

	if _, err := p.readings.Append(ctx, reading); err != nil {
		// Live state already updated; durable storage lagging behind is
		// reported, not rolled back.
		StoreFailures.Add(1)
		log.Error().Err(err).Msg("reading persist failed")
	}

	ownerID, ok := p.session.CurrentOwnerID()
	if !ok {
		return
	}

	triggers, warn := p.evaluator.Evaluate(ctx, reading, ownerID)
	if len(triggers) == 0 {
		if warn != nil {
			log.Error().Err(warn).Msg("alert evaluation failed")
		}
		return
	}
	if warn != nil {
		log.Warn().Err(warn).Int("stored", len(triggers)).Msg("some trigger writes failed")
	}

	TriggersEmitted.Add(int64(len(triggers)))

	if p.notifier != nil {
		if err := p.notifier.TriggersFired(ctx, reading, triggers); err != nil {
			log.Error().Err(err).Msg("trigger notification failed")
		}
	}

	count, err := p.rules.UnacknowledgedCount(ctx, ownerID)
	if err != nil {
		log.Error().Err(err).Msg("unacknowledged count failed")
		return
	}
	p.hub.SetUnacknowledgedCount(count)
}
