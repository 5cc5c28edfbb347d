package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/domain"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/logger"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/notify"
)

// FeedbackManager implements domain.FeedbackService.
//
// Writes surface store failures as *domain.PersistenceError. Reads swallow
// them, log a warning and return an empty result, so a failing store shows
// up as "no data" on the dashboard rather than as an error.
type FeedbackManager struct {
	repo     domain.FeedbackRepository
	notifier notify.Notifier
	now      func() time.Time
}

func NewFeedbackManager(repo domain.FeedbackRepository, notifier notify.Notifier) *FeedbackManager {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &FeedbackManager{repo: repo, notifier: notifier, now: time.Now}
}

// requireFields takes field/value pairs and reports the first empty value
func requireFields(kv ...string) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if strings.TrimSpace(kv[i+1]) == "" {
			return &domain.ValidationError{Field: kv[i], Message: "is required"}
		}
	}
	return nil
}

// --- Feedback ---

func (s *FeedbackManager) CreateFeedback(ctx context.Context, opportunityID, fromTeam, toTeam, message string) (*domain.Feedback, error) {
	if err := requireFields(
		"opportunityId", opportunityID,
		"fromTeam", fromTeam,
		"toTeam", toTeam,
		"message", message,
	); err != nil {
		return nil, err
	}

	f := &domain.Feedback{
		ID:            uuid.NewString(),
		OpportunityID: opportunityID,
		FromTeam:      fromTeam,
		ToTeam:        toTeam,
		Message:       message,
		Read:          false,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.CreateFeedback(ctx, f); err != nil {
		return nil, &domain.PersistenceError{Op: "create feedback", Err: err}
	}

	if err := s.notifier.FeedbackCreated(ctx, *f); err != nil {
		logger.WithContext(ctx).WithError(err).WithField("feedback_id", f.ID).Warn("Feedback notification failed")
	}
	return f, nil
}

func (s *FeedbackManager) ListFeedback(ctx context.Context, toTeam, opportunityID string) []domain.Feedback {
	items, err := s.repo.ListFeedback(ctx, domain.FeedbackFilter{ToTeam: toTeam, OpportunityID: opportunityID})
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("to_team", toTeam).Warn("Listing feedback failed, returning empty result")
		return []domain.Feedback{}
	}
	if items == nil {
		return []domain.Feedback{}
	}
	return items
}

// MarkAsRead flips read to true. Repeating it is not an error.
func (s *FeedbackManager) MarkAsRead(ctx context.Context, feedbackID string) error {
	if err := requireFields("id", feedbackID); err != nil {
		return err
	}
	err := s.repo.MarkFeedbackRead(ctx, feedbackID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrFeedbackNotFound):
		return err
	default:
		return &domain.PersistenceError{Op: "mark feedback read", Err: err}
	}
}

func (s *FeedbackManager) UnreadCount(ctx context.Context, team, opportunityID string) int {
	n, err := s.repo.CountFeedback(ctx, domain.FeedbackFilter{ToTeam: team, OpportunityID: opportunityID, UnreadOnly: true})
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("to_team", team).Warn("Counting unread feedback failed, returning 0")
		return 0
	}
	return int(n)
}

// --- Comments ---

func (s *FeedbackManager) CreateComment(ctx context.Context, opportunityID, userID, message string) (*domain.Comment, error) {
	if err := requireFields(
		"opportunityId", opportunityID,
		"userId", userID,
		"message", message,
	); err != nil {
		return nil, err
	}

	c := &domain.Comment{
		ID:            uuid.NewString(),
		OpportunityID: opportunityID,
		UserID:        userID,
		Message:       message,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		return nil, &domain.PersistenceError{Op: "create comment", Err: err}
	}
	return c, nil
}

func (s *FeedbackManager) ListComments(ctx context.Context, opportunityID string) []domain.Comment {
	items, err := s.repo.ListComments(ctx, opportunityID)
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("opportunity_id", opportunityID).Warn("Listing comments failed, returning empty result")
		return []domain.Comment{}
	}
	if items == nil {
		return []domain.Comment{}
	}
	return items
}
