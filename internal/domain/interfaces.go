package domain

import "context"

// OpportunityRepository describes storage of opportunity records
type OpportunityRepository interface {
	CreateOpportunity(ctx context.Context, o *Opportunity) error
	GetOpportunities(ctx context.Context, filter OpportunityFilter) ([]Opportunity, error)
	// GetOpportunityByID returns nil, nil when no record has this id
	GetOpportunityByID(ctx context.Context, id string) (*Opportunity, error)
	UpdateOpportunity(ctx context.Context, o *Opportunity) error

	// Returns map[Stage]count for the stage tabs
	GetStageCounts(ctx context.Context) (map[Stage]int, error)
}

// FeedbackRepository describes storage of feedback and comments
type FeedbackRepository interface {
	CreateFeedback(ctx context.Context, f *Feedback) error
	ListFeedback(ctx context.Context, filter FeedbackFilter) ([]Feedback, error)
	CountFeedback(ctx context.Context, filter FeedbackFilter) (int64, error)
	MarkFeedbackRead(ctx context.Context, id string) error

	CreateComment(ctx context.Context, c *Comment) error
	ListComments(ctx context.Context, opportunityID string) ([]Comment, error)
}

// Repository is everything the services need from the data store
type Repository interface {
	OpportunityRepository
	FeedbackRepository
}

// StageState - place of a stage relative to the current one in a progress bar
type StageState string

const (
	StageCompleted StageState = "completed"
	StageCurrent   StageState = "current"
	StageUpcoming  StageState = "upcoming"
)

type StageProgress struct {
	Stage Stage      `json:"stage"`
	State StageState `json:"state"`
}

// OpportunityView is an opportunity annotated for rendering
type OpportunityView struct {
	Opportunity
	Position    int             `json:"position"`
	Progress    []StageProgress `json:"progress"`
	// Whole seconds since the opportunity entered its stage
	TimeInStage int64           `json:"timeInStageSeconds"`
}

type StageCount struct {
	Stage Stage `json:"stage"`
	Count int   `json:"count"`
}

// OpportunityUpdate carries optional field changes; nil means "keep".
type OpportunityUpdate struct {
	Name        *string
	Description *string
	Owner       *string
	Status      *Status
	Priority    *Priority
}

// OpportunityService is the opportunity logic called from HTTP handlers
type OpportunityService interface {
	ListOpportunities(ctx context.Context, stage Stage) ([]OpportunityView, error)
	// GetOpportunity returns nil, nil when the id is unknown or the store read fails
	GetOpportunity(ctx context.Context, id string) (*OpportunityView, error)
	CreateOpportunity(ctx context.Context, o Opportunity) (*OpportunityView, error)
	UpdateOpportunity(ctx context.Context, id string, upd OpportunityUpdate) (*OpportunityView, error)
	MoveStage(ctx context.Context, id string, stage Stage) (*OpportunityView, error)
	StageSummary(ctx context.Context) ([]StageCount, error)
}

// FeedbackService: writes return an error, reads never do and fall back to
// empty results when the store fails.
type FeedbackService interface {
	CreateFeedback(ctx context.Context, opportunityID, fromTeam, toTeam, message string) (*Feedback, error)
	ListFeedback(ctx context.Context, toTeam, opportunityID string) []Feedback
	MarkAsRead(ctx context.Context, feedbackID string) error
	UnreadCount(ctx context.Context, team, opportunityID string) int

	CreateComment(ctx context.Context, opportunityID, userID, message string) (*Comment, error)
	ListComments(ctx context.Context, opportunityID string) []Comment
}
