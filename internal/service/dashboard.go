// Package service holds the LMS read services backing the dashboard API.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gradewise/gradewise/internal/adapter/provider"
	"github.com/gradewise/gradewise/internal/domain"
	domainoauth "github.com/gradewise/gradewise/internal/domain/oauth"
	"github.com/gradewise/gradewise/internal/service/auth"
)

// Dashboard proxies signed reads of the LMS resources a dashboard load needs.
// Every outbound request is independently signed and stateless.
type Dashboard struct {
	flow   auth.Flow
	client provider.Client
	logger *zap.Logger
}

// NewDashboard wires the dashboard service.
func NewDashboard(flow auth.Flow, client provider.Client, logger *zap.Logger) *Dashboard {
	return &Dashboard{flow: flow, client: client, logger: logger}
}

// Overview is the merged payload for one dashboard load.
type Overview struct {
	Sections      []domain.Section      `json:"sections"`
	Grades        []domain.Grade        `json:"grades"`
	Announcements []domain.Announcement `json:"announcements"`
}

// actor resolves how requests for this call are signed: with the session
// user's own access token, or with the administrative credential running as
// the target user.
type actor struct {
	token    *domain.Credential
	runAs    string
	targetID string
}

func (s *Dashboard) resolveActor(ctx context.Context, sessionUserID, asUserID string) (actor, error) {
	if asUserID == "" || asUserID == sessionUserID {
		token, err := s.flow.Token(ctx, sessionUserID)
		if err != nil {
			return actor{}, err
		}
		return actor{token: token, targetID: sessionUserID}, nil
	}

	// Impersonation: only a session user the provider reports as an admin may
	// run as someone else. Enforced here, before any signed call for the
	// target goes out.
	token, err := s.flow.Token(ctx, sessionUserID)
	if err != nil {
		return actor{}, err
	}
	profile, err := s.client.FetchProfile(ctx, token, "")
	if err != nil {
		return actor{}, fmt.Errorf("verify acting user: %w", err)
	}
	if !profile.Admin {
		return actor{}, fmt.Errorf("user %s may not run as %s: %w", sessionUserID, asUserID, domainoauth.ErrAuthorization)
	}
	return actor{runAs: asUserID, targetID: asUserID}, nil
}

// Sections returns the course sections for the session user, or for asUserID
// under admin impersonation.
func (s *Dashboard) Sections(ctx context.Context, sessionUserID, asUserID string) ([]domain.Section, error) {
	act, err := s.resolveActor(ctx, sessionUserID, asUserID)
	if err != nil {
		return nil, err
	}
	return s.client.ListSections(ctx, act.token, act.targetID, act.runAs)
}

// Grades returns graded items.
func (s *Dashboard) Grades(ctx context.Context, sessionUserID, asUserID string) ([]domain.Grade, error) {
	act, err := s.resolveActor(ctx, sessionUserID, asUserID)
	if err != nil {
		return nil, err
	}
	return s.client.ListGrades(ctx, act.token, act.targetID, act.runAs)
}

// Announcements returns dashboard announcements.
func (s *Dashboard) Announcements(ctx context.Context, sessionUserID, asUserID string) ([]domain.Announcement, error) {
	act, err := s.resolveActor(ctx, sessionUserID, asUserID)
	if err != nil {
		return nil, err
	}
	return s.client.ListAnnouncements(ctx, act.token, act.runAs)
}

// InvalidateToken removes the stored token for targetUserID. Restricted to
// admin session users; this is the manual cleanup path, distinct from logout.
func (s *Dashboard) InvalidateToken(ctx context.Context, sessionUserID, targetUserID string) error {
	token, err := s.flow.Token(ctx, sessionUserID)
	if err != nil {
		return err
	}
	profile, err := s.client.FetchProfile(ctx, token, "")
	if err != nil {
		return fmt.Errorf("verify acting user: %w", err)
	}
	if !profile.Admin {
		return fmt.Errorf("user %s may not invalidate tokens: %w", sessionUserID, domainoauth.ErrAuthorization)
	}
	if err := s.flow.Invalidate(ctx, targetUserID); err != nil {
		return err
	}
	s.logger.Info("token invalidated by admin",
		zap.String("admin_user_id", sessionUserID),
		zap.String("target_user_id", targetUserID))
	return nil
}

// Load fans out over the three resources concurrently and merges the result.
// The actor is resolved once; each fetch is still signed independently.
func (s *Dashboard) Load(ctx context.Context, sessionUserID, asUserID string) (*Overview, error) {
	act, err := s.resolveActor(ctx, sessionUserID, asUserID)
	if err != nil {
		return nil, err
	}

	overview := &Overview{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sections, err := s.client.ListSections(ctx, act.token, act.targetID, act.runAs)
		if err != nil {
			return fmt.Errorf("load sections: %w", err)
		}
		overview.Sections = sections
		return nil
	})
	g.Go(func() error {
		grades, err := s.client.ListGrades(ctx, act.token, act.targetID, act.runAs)
		if err != nil {
			return fmt.Errorf("load grades: %w", err)
		}
		overview.Grades = grades
		return nil
	})
	g.Go(func() error {
		announcements, err := s.client.ListAnnouncements(ctx, act.token, act.runAs)
		if err != nil {
			return fmt.Errorf("load announcements: %w", err)
		}
		overview.Announcements = announcements
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return overview, nil
}
