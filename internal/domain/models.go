package domain

import "time"

// Stage - phase of an opportunity's lifecycle
type Stage string

const (
	StageIntake         Stage = "intake"
	StageProduct        Stage = "product"
	StageEngineering    Stage = "engineering"
	StagePlatform       Stage = "platform"
	StageImplementation Stage = "implementation"
	StageSupport        Stage = "support"
)

// Status - progress inside the current stage, independent of the stage itself
type Status string

const (
	StatusNotStarted        Status = "not-started"
	StatusInProgress        Status = "in-progress"
	StatusNeedClarification Status = "need-clarification"
	StatusCompleted         Status = "completed"
	StatusCancelled         Status = "cancelled"
)

var Statuses = []Status{
	StatusNotStarted,
	StatusInProgress,
	StatusNeedClarification,
	StatusCompleted,
	StatusCancelled,
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) Valid() bool {
	for _, known := range Priorities {
		if p == known {
			return true
		}
	}
	return false
}

// Role - what the current user declared themselves as for the session
type Role string

const (
	RoleProductManager Role = "Product Manager"
	RoleAdmin          Role = "Admin"
	RoleEngineer       Role = "Engineer"
	RolePlatform       Role = "Platform"
	RoleImplementation Role = "Implementation"
)

var Roles = []Role{RoleProductManager, RoleAdmin, RoleEngineer, RolePlatform, RoleImplementation}

func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Opportunity - the record that moves through the stages
type Opportunity struct {
	ID             string    `json:"id" gorm:"primaryKey;size:64"`
	Name           string    `json:"name" gorm:"size:255;not null"`
	Description    string    `json:"description" gorm:"type:text"`
	Owner          string    `json:"owner" gorm:"size:255"`
	Stage          Stage     `json:"stage" gorm:"size:32;index;not null"`
	Status         Status    `json:"status" gorm:"size:32;not null"`
	Priority       Priority  `json:"priority" gorm:"size:16;not null"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	StageEnteredAt time.Time `json:"stageEnteredAt"`
}

// Feedback - directed team-to-team message about one opportunity
type Feedback struct {
	ID            string       `json:"id" gorm:"primaryKey;size:36"`
	OpportunityID string       `json:"opportunityId" gorm:"size:64;index;not null"`
	Opportunity   *Opportunity `json:"-" gorm:"foreignKey:OpportunityID;constraint:OnDelete:CASCADE"`
	FromTeam      string       `json:"fromTeam" gorm:"size:128;not null"`
	ToTeam        string       `json:"toTeam" gorm:"size:128;index;not null"`
	Message       string       `json:"message" gorm:"type:text;not null"`
	Read          bool         `json:"read" gorm:"column:read;not null;default:false"`
	CreatedAt     time.Time    `json:"createdAt" gorm:"index"`
}

func (Feedback) TableName() string { return "feedback" }

// Comment - append-only note left by a user on an opportunity
type Comment struct {
	ID            string       `json:"id" gorm:"primaryKey;size:36"`
	OpportunityID string       `json:"opportunityId" gorm:"size:64;index;not null"`
	Opportunity   *Opportunity `json:"-" gorm:"foreignKey:OpportunityID;constraint:OnDelete:CASCADE"`
	UserID        string       `json:"userId" gorm:"size:255;not null"`
	Message       string       `json:"message" gorm:"type:text;not null"`
	CreatedAt     time.Time    `json:"createdAt" gorm:"index"`
}

// OpportunityFilter narrows GetOpportunities. Empty Stage means any stage.
type OpportunityFilter struct {
	Stage Stage
}

// FeedbackFilter narrows feedback queries. Empty OpportunityID means any.
type FeedbackFilter struct {
	ToTeam        string
	OpportunityID string
	UnreadOnly    bool
}
