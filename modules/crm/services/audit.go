package services

import (
	"github.com/sirupsen/logrus"

	"github.com/dealdesk/dealdesk/modules/crm/domain/aggregates/request"
	"github.com/dealdesk/dealdesk/pkg/eventbus"
)

// RegisterAuditSubscribers attaches the audit trail handlers to the bus.
// Every lifecycle event lands in the structured log with its attribution.
func RegisterAuditSubscribers(bus eventbus.EventBus, log *logrus.Logger) {
	bus.Subscribe(func(ev request.TransitionedEvent) {
		log.WithFields(logrus.Fields{
			"request_id": ev.Request.ID,
			"previous":   ev.Previous,
			"target":     ev.Target,
			"actor_id":   ev.ActorID,
			"at":         ev.At,
		}).Info("request status transitioned")
	})
	bus.Subscribe(func(ev request.StageMovedEvent) {
		log.WithFields(logrus.Fields{
			"request_id": ev.Request.ID,
			"from_stage": ev.FromStage,
			"to_stage":   ev.ToStage,
			"at":         ev.At,
		}).Info("request moved between stages")
	})
	bus.Subscribe(func(ev request.CreatedEvent) {
		log.WithFields(logrus.Fields{
			"request_id": ev.Request.ID,
			"listing_id": ev.Request.ListingID,
			"source":     ev.Request.SourceChannel,
		}).Info("connection request created")
	})
}
