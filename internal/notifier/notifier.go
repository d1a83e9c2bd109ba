package notifier

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"Cryptobot/internal/model"
)

// Notifier delivers operator events. Delivery is best effort and never fails the caller.
type Notifier interface {
	Emit(kind model.EventKind, msg string)
}

// Channel is one delivery route, such as a chat or a mailbox.
type Channel interface {
	Name() string
	Send(ctx context.Context, subject, msg string) error
}

var subjects = map[model.EventKind]string{
	model.EventOrder: "Cryptobot Order Placed",
	model.EventFlash: "Cryptobot Flash Change Detected",
	model.EventError: "Cryptobot Error Detected",
}

// Subject returns the message subject for kind.
func Subject(kind model.EventKind) string {
	if s, ok := subjects[kind]; ok {
		return s
	}
	return "Cryptobot " + string(kind)
}

type route struct {
	ch    Channel
	kinds []model.EventKind
}

// Dispatcher routes each event to the channels that handle its kind.
type Dispatcher struct {
	Timeout time.Duration

	mu     sync.Mutex
	routes []route
}

// deliveryKey marks the context handed to Channel.Send.
type deliveryKey struct{}

// NewDispatcher creates a dispatcher with no channels; events are then only logged.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{Timeout: time.Minute}
}

// Add registers ch for the event kinds listed in handle (case-insensitive).
func (d *Dispatcher) Add(ch Channel, handle []string) {
	kinds := make([]model.EventKind, 0, len(handle))
	for _, h := range handle {
		kinds = append(kinds, model.EventKind(strings.ToLower(strings.TrimSpace(h))))
	}
	d.mu.Lock()
	d.routes = append(d.routes, route{ch: ch, kinds: kinds})
	d.mu.Unlock()
	log.Info().Str("channel", ch.Name()).Strs("handle", handle).Msg("notification channel registered")
}

// Emit delivers msg to every channel handling kind. Concurrent callers queue and are
// delivered in turn.
func (d *Dispatcher) Emit(kind model.EventKind, msg string) {
	d.EmitContext(context.Background(), kind, msg)
}

// EmitContext is Emit for callers that hold a context. A channel that reports its own
// failure through the ctx it was given by Send is ignored, so delivery never recurses.
func (d *Dispatcher) EmitContext(ctx context.Context, kind model.EventKind, msg string) {
	if ctx.Value(deliveryKey{}) != nil {
		log.Warn().Str("kind", string(kind)).Str("msg", msg).Msg("event raised during its own delivery dropped")
		return
	}
	if _, ok := subjects[kind]; !ok {
		log.Warn().Str("kind", string(kind)).Msg("unknown notification kind")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	subject := Subject(kind)
	log.Info().Str("kind", string(kind)).Str("subject", subject).Msg(msg)

	ctx, cancel := context.WithTimeout(context.WithValue(context.WithoutCancel(ctx), deliveryKey{}, true), d.Timeout)
	defer cancel()
	for _, r := range d.routes {
		if !slices.Contains(r.kinds, kind) {
			continue
		}
		if err := r.ch.Send(ctx, subject, msg); err != nil {
			log.Error().Err(err).Str("channel", r.ch.Name()).Str("kind", string(kind)).Msg("notification delivery failed")
		}
	}
}
