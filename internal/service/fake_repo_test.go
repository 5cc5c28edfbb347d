package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/domain"
)

var errStoreDown = errors.New("store unreachable")

// memRepo is an in-memory domain.Repository with switchable failures
type memRepo struct {
	mu         sync.Mutex
	opps       map[string]domain.Opportunity
	feedback   []domain.Feedback
	comments   []domain.Comment
	failReads  bool
	failWrites bool
}

func newMemRepo() *memRepo {
	return &memRepo{opps: make(map[string]domain.Opportunity)}
}

func (m *memRepo) CreateOpportunity(_ context.Context, o *domain.Opportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return errStoreDown
	}
	m.opps[o.ID] = *o
	return nil
}

func (m *memRepo) GetOpportunities(_ context.Context, filter domain.OpportunityFilter) ([]domain.Opportunity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return nil, errStoreDown
	}
	var out []domain.Opportunity
	for _, o := range m.opps {
		if filter.Stage == "" || o.Stage == filter.Stage {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) GetOpportunityByID(_ context.Context, id string) (*domain.Opportunity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return nil, errStoreDown
	}
	o, ok := m.opps[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *memRepo) UpdateOpportunity(_ context.Context, o *domain.Opportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return errStoreDown
	}
	m.opps[o.ID] = *o
	return nil
}

func (m *memRepo) GetStageCounts(_ context.Context) (map[domain.Stage]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return nil, errStoreDown
	}
	counts := make(map[domain.Stage]int)
	for _, o := range m.opps {
		counts[o.Stage]++
	}
	return counts, nil
}

func (m *memRepo) CreateFeedback(_ context.Context, f *domain.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return errStoreDown
	}
	m.feedback = append(m.feedback, *f)
	return nil
}

func (m *memRepo) matchFeedback(filter domain.FeedbackFilter) []domain.Feedback {
	var out []domain.Feedback
	// Walk backwards so equal timestamps keep newest-inserted first
	for i := len(m.feedback) - 1; i >= 0; i-- {
		f := m.feedback[i]
		if f.ToTeam != filter.ToTeam {
			continue
		}
		if filter.OpportunityID != "" && f.OpportunityID != filter.OpportunityID {
			continue
		}
		if filter.UnreadOnly && f.Read {
			continue
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memRepo) ListFeedback(_ context.Context, filter domain.FeedbackFilter) ([]domain.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return nil, errStoreDown
	}
	return m.matchFeedback(filter), nil
}

func (m *memRepo) CountFeedback(_ context.Context, filter domain.FeedbackFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return 0, errStoreDown
	}
	return int64(len(m.matchFeedback(filter))), nil
}

func (m *memRepo) MarkFeedbackRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return errStoreDown
	}
	for i := range m.feedback {
		if m.feedback[i].ID == id {
			m.feedback[i].Read = true
			return nil
		}
	}
	return domain.ErrFeedbackNotFound
}

func (m *memRepo) CreateComment(_ context.Context, c *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return errStoreDown
	}
	m.comments = append(m.comments, *c)
	return nil
}

func (m *memRepo) ListComments(_ context.Context, opportunityID string) ([]domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return nil, errStoreDown
	}
	var out []domain.Comment
	for i := len(m.comments) - 1; i >= 0; i-- {
		if m.comments[i].OpportunityID == opportunityID {
			out = append(out, m.comments[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
