package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "routinekeeper/contracts/mq"
	"routinekeeper/pkg/circuitbreaker"
	"routinekeeper/pkg/metrics"
)

// Publisher is the outbound event boundary. Satisfied by mq.Publisher.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

// ReminderService publishes review.remind notification requests for
// collaborators on shared goals. It is a request to an external channel,
// not a scheduling computation: failures are surfaced, never retried here.
type ReminderService struct {
	publisher Publisher
	breaker   *circuitbreaker.CircuitBreaker
	dedup     Deduper
	logger    *zap.Logger
}

func NewReminderService(publisher Publisher, dedup Deduper, logger *zap.Logger) *ReminderService {
	return &ReminderService{
		publisher: publisher,
		breaker:   circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
		dedup:     dedup,
		logger:    logger,
	}
}

// Remind publishes one reminder per collaborator, deduplicated per session
// and user so a re-issued action cannot double-nudge anyone. A failed
// publish releases its dedup key so the caller can re-issue the action.
// Returns the ids of the users actually sent to and the combined failures,
// if any.
func (s *ReminderService) Remind(ctx context.Context, sessionID, goalID, goalName, fromUser string, userIDs []string) ([]string, error) {
	var sent []string
	var failures []error

	for _, userID := range userIDs {
		dedupKey := fmt.Sprintf("%s:%s:%s", sessionID, goalID, userID)
		if !s.dedup.AcquireOnce(ctx, "remind", dedupKey) {
			s.logger.Debug("Reminder already sent, skipping",
				zap.String("session_id", sessionID),
				zap.String("goal_id", goalID),
				zap.String("to_user", userID),
			)
			metrics.RemindersPublished.WithLabelValues("deduplicated").Inc()
			continue
		}

		payload := mqcontracts.ReviewRemindPayload{
			SessionID: sessionID,
			GoalID:    goalID,
			FromUser:  fromUser,
			ToUser:    userID,
			GoalName:  goalName,
		}

		err := s.breaker.Execute(func() error {
			return s.publisher.Publish("review.remind", payload)
		})
		if err != nil {
			// The reminder did not go out, so the key must not burn the
			// user's slot for the whole TTL.
			s.dedup.Release(ctx, "remind", dedupKey)
			s.logger.Error("Failed to publish reminder",
				zap.String("session_id", sessionID),
				zap.String("goal_id", goalID),
				zap.String("to_user", userID),
				zap.Error(err),
			)
			metrics.RemindersPublished.WithLabelValues("failed").Inc()
			failures = append(failures, fmt.Errorf("remind %s: %w", userID, err))
			continue
		}

		sent = append(sent, userID)
		s.logger.Info("Reminder published",
			zap.String("session_id", sessionID),
			zap.String("goal_id", goalID),
			zap.String("to_user", userID),
		)
		metrics.RemindersPublished.WithLabelValues("sent").Inc()
	}

	return sent, errors.Join(failures...)
}
