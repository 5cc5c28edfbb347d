// Package seed loads demo opportunities, feedback and comments from a YAML
// fixture and writes them through the services.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/domain"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/logger"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/session"
)

type Opportunity struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Owner       string          `yaml:"owner"`
	Stage       domain.Stage    `yaml:"stage"`
	Status      domain.Status   `yaml:"status"`
	Priority    domain.Priority `yaml:"priority"`
}

type Feedback struct {
	OpportunityID string `yaml:"opportunityId"`
	FromTeam      string `yaml:"fromTeam"`
	ToTeam        string `yaml:"toTeam"`
	Message       string `yaml:"message"`
}

type Comment struct {
	OpportunityID string `yaml:"opportunityId"`
	UserID        string `yaml:"userId"`
	Message       string `yaml:"message"`
}

type Fixture struct {
	Opportunities []Opportunity `yaml:"opportunities"`
	Feedback      []Feedback    `yaml:"feedback"`
	Comments      []Comment     `yaml:"comments"`
}

// Result counts what Apply wrote.
type Result struct {
	Opportunities int
	Skipped       int
	Feedback      int
	Comments      int
}

func Load(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := fx.validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// validate requires an id on every opportunity; feedback and comments
// attach to opportunities by that id.
func (fx *Fixture) validate() error {
	seen := make(map[string]bool, len(fx.Opportunities))
	for i, o := range fx.Opportunities {
		if o.ID == "" {
			return fmt.Errorf("opportunities[%d] (%q): id is required", i, o.Name)
		}
		if seen[o.ID] {
			return fmt.Errorf("opportunities[%d]: duplicate id %q", i, o.ID)
		}
		seen[o.ID] = true
	}
	for i, f := range fx.Feedback {
		if !seen[f.OpportunityID] {
			return fmt.Errorf("feedback[%d]: unknown opportunityId %q", i, f.OpportunityID)
		}
	}
	for i, c := range fx.Comments {
		if !seen[c.OpportunityID] {
			return fmt.Errorf("comments[%d]: unknown opportunityId %q", i, c.OpportunityID)
		}
	}
	return nil
}

// Apply writes the fixture as Admin. Opportunities whose id already exists
// are skipped together with their feedback and comments, so re-running a
// seed does not duplicate rows.
func Apply(ctx context.Context, fx *Fixture, opps domain.OpportunityService, fb domain.FeedbackService) (Result, error) {
	ctx = session.WithSession(ctx, session.Session{Email: "seed@localhost", Role: domain.RoleAdmin, Name: "seed"})
	log := logger.WithContext(ctx)

	var res Result
	fresh := make(map[string]bool)
	for _, o := range fx.Opportunities {
		existing, err := opps.GetOpportunity(ctx, o.ID)
		if err != nil {
			return res, err
		}
		if existing != nil {
			res.Skipped++
			continue
		}

		v, err := opps.CreateOpportunity(ctx, domain.Opportunity{
			ID:          o.ID,
			Name:        o.Name,
			Description: o.Description,
			Owner:       o.Owner,
			Stage:       o.Stage,
			Status:      o.Status,
			Priority:    o.Priority,
		})
		if err != nil {
			return res, fmt.Errorf("seed opportunity %q: %w", o.Name, err)
		}
		fresh[v.ID] = true
		res.Opportunities++
	}

	for _, f := range fx.Feedback {
		if !fresh[f.OpportunityID] {
			continue
		}
		if _, err := fb.CreateFeedback(ctx, f.OpportunityID, f.FromTeam, f.ToTeam, f.Message); err != nil {
			return res, fmt.Errorf("seed feedback for %s: %w", f.OpportunityID, err)
		}
		res.Feedback++
	}

	for _, c := range fx.Comments {
		if !fresh[c.OpportunityID] {
			continue
		}
		if _, err := fb.CreateComment(ctx, c.OpportunityID, c.UserID, c.Message); err != nil {
			return res, fmt.Errorf("seed comment for %s: %w", c.OpportunityID, err)
		}
		res.Comments++
	}

	log.WithField("opportunities", res.Opportunities).
		WithField("skipped", res.Skipped).
		WithField("feedback", res.Feedback).
		WithField("comments", res.Comments).
		Info("Seed applied")
	return res, nil
}
