package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/domain"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the handle for migrations and test cleanup.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// --- Opportunity ---

func (r *Repository) CreateOpportunity(ctx context.Context, o *domain.Opportunity) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *Repository) GetOpportunities(ctx context.Context, filter domain.OpportunityFilter) ([]domain.Opportunity, error) {
	var opps []domain.Opportunity
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if filter.Stage != "" {
		q = q.Where("stage = ?", filter.Stage)
	}
	err := q.Find(&opps).Error
	return opps, err
}

func (r *Repository) GetOpportunityByID(ctx context.Context, id string) (*domain.Opportunity, error) {
	var o domain.Opportunity
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *Repository) UpdateOpportunity(ctx context.Context, o *domain.Opportunity) error {
	result := r.db.WithContext(ctx).Save(o)
	return result.Error
}

// GetStageCounts counts opportunities per stage
func (r *Repository) GetStageCounts(ctx context.Context) (map[domain.Stage]int, error) {
	var results []struct {
		Stage domain.Stage
		Count int64
	}

	err := r.db.WithContext(ctx).
		Model(&domain.Opportunity{}).
		Select("stage, count(*) as count").
		Group("stage").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.Stage]int, len(results))
	for _, res := range results {
		counts[res.Stage] = int(res.Count)
	}
	return counts, nil
}

// --- Feedback ---

func (r *Repository) CreateFeedback(ctx context.Context, f *domain.Feedback) error {
	return r.db.WithContext(ctx).Create(f).Error
}

// feedbackScope uses map conditions so that the "read" column is quoted by the
// dialect (READ is reserved in MySQL).
func (r *Repository) feedbackScope(ctx context.Context, filter domain.FeedbackFilter) *gorm.DB {
	cond := map[string]interface{}{"to_team": filter.ToTeam}
	if filter.OpportunityID != "" {
		cond["opportunity_id"] = filter.OpportunityID
	}
	if filter.UnreadOnly {
		cond["read"] = false
	}
	return r.db.WithContext(ctx).Model(&domain.Feedback{}).Where(cond)
}

func (r *Repository) ListFeedback(ctx context.Context, filter domain.FeedbackFilter) ([]domain.Feedback, error) {
	var items []domain.Feedback
	err := r.feedbackScope(ctx, filter).
		Order("created_at DESC").
		Order("id").
		Find(&items).Error
	return items, err
}

func (r *Repository) CountFeedback(ctx context.Context, filter domain.FeedbackFilter) (int64, error) {
	var n int64
	err := r.feedbackScope(ctx, filter).Count(&n).Error
	return n, err
}

func (r *Repository) MarkFeedbackRead(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Feedback{}).
		Where("id = ?", id).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// MySQL reports 0 affected rows when the value did not change, so tell
	// "already read" apart from "no such id".
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.Feedback{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrFeedbackNotFound
	}
	return nil
}

// --- Comment ---

func (r *Repository) CreateComment(ctx context.Context, c *domain.Comment) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repository) ListComments(ctx context.Context, opportunityID string) ([]domain.Comment, error) {
	var items []domain.Comment
	err := r.db.WithContext(ctx).
		Where("opportunity_id = ?", opportunityID).
		Order("created_at DESC").
		Order("id").
		Find(&items).Error
	return items, err
}
