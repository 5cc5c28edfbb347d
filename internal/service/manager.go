package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/access"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/domain"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/lifecycle"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/logger"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/session"
)

// Manager implements domain.OpportunityService
type Manager struct {
	repo     domain.OpportunityRepository
	resolver *access.Resolver
	now      func() time.Time
}

func NewManager(repo domain.OpportunityRepository, resolver *access.Resolver) *Manager {
	return &Manager{repo: repo, resolver: resolver, now: time.Now}
}

// filter returns the stage filter of the session in ctx
func (s *Manager) filter(ctx context.Context) access.Filter {
	return s.resolver.Resolve(session.RoleFromContext(ctx))
}

func (s *Manager) annotate(o domain.Opportunity) (domain.OpportunityView, error) {
	return lifecycle.Annotate(o, s.now())
}

// --- Reads ---

func (s *Manager) ListOpportunities(ctx context.Context, stage domain.Stage) ([]domain.OpportunityView, error) {
	if stage != "" && !lifecycle.Valid(stage) {
		return nil, domain.ErrUnknownStage
	}

	f := s.filter(ctx)
	if f.Denied || (stage != "" && !f.Allows(stage)) {
		return []domain.OpportunityView{}, nil
	}
	if stage == "" {
		// Restricted roles only ever query their own stage
		stage = f.Stage
	}

	opps, err := s.repo.GetOpportunities(ctx, domain.OpportunityFilter{Stage: stage})
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("stage", stage).
			Warn("Listing opportunities failed, returning empty result")
		return []domain.OpportunityView{}, nil
	}

	views := make([]domain.OpportunityView, 0, len(opps))
	for _, o := range opps {
		v, err := s.annotate(o)
		if err != nil {
			// A row with a stage outside the lifecycle is skipped, not fatal
			logger.WithContext(ctx).WithError(err).WithField("opportunity_id", o.ID).
				Warn("Skipping opportunity with unknown stage")
			continue
		}
		views = append(views, v)
	}
	return views, nil
}

// GetOpportunity treats a failed store read like a missing record.
func (s *Manager) GetOpportunity(ctx context.Context, id string) (*domain.OpportunityView, error) {
	o, err := s.repo.GetOpportunityByID(ctx, id)
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("opportunity_id", id).
			Warn("Loading opportunity failed, returning no result")
		return nil, nil
	}
	if o == nil {
		return nil, nil
	}
	if !s.filter(ctx).Allows(o.Stage) {
		return nil, domain.ErrForbidden
	}

	v, err := s.annotate(*o)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// StageSummary returns every stage in order with its record count
func (s *Manager) StageSummary(ctx context.Context) ([]domain.StageCount, error) {
	counts, err := s.repo.GetStageCounts(ctx)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Warn("Counting stages failed, returning zero counts")
		counts = map[domain.Stage]int{}
	}

	f := s.filter(ctx)
	summary := make([]domain.StageCount, 0, len(lifecycle.Stages))
	for _, st := range lifecycle.Stages {
		c := counts[st]
		if !f.Allows(st) {
			c = 0
		}
		summary = append(summary, domain.StageCount{Stage: st, Count: c})
	}
	return summary, nil
}

// --- Writes ---

func (s *Manager) CreateOpportunity(ctx context.Context, o domain.Opportunity) (*domain.OpportunityView, error) {
	if strings.TrimSpace(o.Name) == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "is required"}
	}
	// New opportunities start at intake unless told otherwise
	if o.Stage == "" {
		o.Stage = domain.StageIntake
	}
	if o.Status == "" {
		o.Status = domain.StatusNotStarted
	}
	if o.Priority == "" {
		o.Priority = domain.PriorityMedium
	}
	if err := validateEnums(o.Stage, o.Status, o.Priority); err != nil {
		return nil, err
	}
	if !s.filter(ctx).Allows(o.Stage) {
		return nil, domain.ErrForbidden
	}

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := s.now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	o.StageEnteredAt = now

	if err := s.repo.CreateOpportunity(ctx, &o); err != nil {
		return nil, &domain.PersistenceError{Op: "create opportunity", Err: err}
	}
	logger.WithContext(ctx).WithField("opportunity_id", o.ID).Info("Opportunity created")

	v, err := s.annotate(o)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Manager) UpdateOpportunity(ctx context.Context, id string, upd domain.OpportunityUpdate) (*domain.OpportunityView, error) {
	o, err := s.loadForWrite(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return nil, &domain.ValidationError{Field: "name", Message: "must not be empty"}
		}
		o.Name = *upd.Name
	}
	if upd.Description != nil {
		o.Description = *upd.Description
	}
	if upd.Owner != nil {
		o.Owner = *upd.Owner
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		o.Status = *upd.Status
	}
	if upd.Priority != nil {
		if !upd.Priority.Valid() {
			return nil, domain.ErrInvalidPriority
		}
		o.Priority = *upd.Priority
	}

	return s.save(ctx, o)
}

// MoveStage writes a new stage. Jumps and rollbacks are allowed; the role
// must be able to act on both the current and the target stage.
func (s *Manager) MoveStage(ctx context.Context, id string, stage domain.Stage) (*domain.OpportunityView, error) {
	o, err := s.loadForWrite(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CheckTransition(o.Stage, stage); err != nil {
		return nil, err
	}
	if !s.filter(ctx).Allows(stage) {
		return nil, domain.ErrForbidden
	}

	// Idempotent: same stage keeps stage_entered_at
	if o.Stage != stage {
		o.Stage = stage
		o.StageEnteredAt = s.now().UTC()
	}
	return s.save(ctx, o)
}

// --- Helpers ---

func (s *Manager) loadForWrite(ctx context.Context, id string) (*domain.Opportunity, error) {
	o, err := s.repo.GetOpportunityByID(ctx, id)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load opportunity", Err: err}
	}
	if o == nil {
		return nil, domain.ErrOpportunityNotFound
	}
	if !s.filter(ctx).Allows(o.Stage) {
		return nil, domain.ErrForbidden
	}
	return o, nil
}

func (s *Manager) save(ctx context.Context, o *domain.Opportunity) (*domain.OpportunityView, error) {
	o.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateOpportunity(ctx, o); err != nil {
		return nil, &domain.PersistenceError{Op: "update opportunity", Err: err}
	}
	v, err := s.annotate(*o)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func validateEnums(stage domain.Stage, status domain.Status, priority domain.Priority) error {
	if _, err := lifecycle.PositionOf(stage); err != nil {
		return err
	}
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}
	if !priority.Valid() {
		return domain.ErrInvalidPriority
	}
	return nil
}
