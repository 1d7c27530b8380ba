package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
)

var ErrNoFacility = errors.New("realtime: no facility in scope")

type publisher interface {
	Publish(subj string, data []byte) error
}

type subscriber interface {
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Notifier publishes change signals. Delivery is best effort; a failed publish
// is logged and returned but never retried.
type Notifier struct {
	pub    publisher
	logger *slog.Logger
}

func NewNotifier(nc *nats.Conn, logger *slog.Logger) *Notifier {
	return newNotifier(nc, logger)
}

func newNotifier(pub publisher, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{pub: pub, logger: logger}
}

func (n *Notifier) Notify(ctx context.Context, scope model.Scope, scheduleID string, action model.Action) error {
	if !scope.Bound() {
		return ErrNoFacility
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeSignal(model.Signal{
		Kind:       model.KindSchedule,
		ID:         scheduleID,
		Action:     action,
		FacilityID: scope.FacilityID,
		StaffID:    scope.StaffID,
	})
	if err != nil {
		return err
	}

	if err := n.pub.Publish(Subject(scope.FacilityID), data); err != nil {
		n.logger.Warn("realtime: publish failed",
			"facility_id", scope.FacilityID,
			"schedule_id", scheduleID,
			"action", action,
			"err", err,
		)
		return fmt.Errorf("publish signal: %w", err)
	}
	n.logger.Debug("realtime: signal published", "facility_id", scope.FacilityID, "schedule_id", scheduleID, "action", action)
	return nil
}

// Subscriber delivers the signals of one facility to a callback. Callbacks run
// on the NATS delivery goroutine.
type Subscriber struct {
	sub    subscriber
	logger *slog.Logger
}

func NewSubscriber(nc *nats.Conn, logger *slog.Logger) *Subscriber {
	return newSubscriber(nc, logger)
}

func newSubscriber(sub subscriber, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{sub: sub, logger: logger}
}

func (s *Subscriber) Subscribe(facilityID, staffID string, onUpdate func(model.Signal)) (func(), error) {
	if facilityID == "" {
		return nil, ErrNoFacility
	}

	sub, err := s.sub.Subscribe(Subject(facilityID), s.handler(facilityID, staffID, onUpdate))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", Subject(facilityID), err)
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			s.logger.Debug("realtime: unsubscribe failed", "facility_id", facilityID, "err", err)
		}
	}, nil
}

// SubscribeAll delivers the signals of every facility, including the ones
// sessions would skip as their own. Servers use it to drop cached ranges.
func (s *Subscriber) SubscribeAll(onSignal func(model.Signal)) (func(), error) {
	sub, err := s.sub.Subscribe(WildcardSubject(), func(msg *nats.Msg) {
		sig, err := DecodeSignal(msg.Subject, msg.Data)
		if err != nil {
			s.logger.Warn("realtime: dropping malformed signal", "subject", msg.Subject, "err", err)
			return
		}
		onSignal(sig)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", WildcardSubject(), err)
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			s.logger.Debug("realtime: unsubscribe failed", "subject", WildcardSubject(), "err", err)
		}
	}, nil
}

func (s *Subscriber) handler(facilityID, staffID string, onUpdate func(model.Signal)) nats.MsgHandler {
	return func(msg *nats.Msg) {
		sig, err := DecodeSignal(msg.Subject, msg.Data)
		if err != nil {
			s.logger.Warn("realtime: dropping malformed signal", "subject", msg.Subject, "err", err)
			return
		}
		if !accept(sig, facilityID, staffID) {
			return
		}
		onUpdate(sig)
	}
}

// Nop is the realtime layer of demo sessions: nothing is sent or received.
type Nop struct{}

func (Nop) Notify(context.Context, model.Scope, string, model.Action) error { return nil }

func (Nop) Subscribe(string, string, func(model.Signal)) (func(), error) {
	return func() {}, nil
}
