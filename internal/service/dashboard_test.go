package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gradewise/gradewise/internal/domain"
	domainoauth "github.com/gradewise/gradewise/internal/domain/oauth"
	"github.com/gradewise/gradewise/internal/service/auth"
)

func TestDashboard_LoadMergesResources(t *testing.T) {
	h := newDashboardTestHarness()
	h.client.sections = []domain.Section{{ID: "s1", Title: "Algebra"}}
	h.client.grades = []domain.Grade{{SectionID: "s1", AssignmentID: "a1", Grade: 92, MaxPoints: 100}}
	h.client.announcements = []domain.Announcement{{ID: "n1", Title: "Picture day"}}

	overview, err := h.dashboard.Load(context.Background(), "U1", "")
	require.NoError(t, err)
	require.Len(t, overview.Sections, 1)
	require.Len(t, overview.Grades, 1)
	require.Len(t, overview.Announcements, 1)

	// Signed with the session user's own token, no run-as.
	require.Equal(t, "acc", h.client.gotToken.Key)
	require.Empty(t, h.client.gotRunAs)
}

func TestDashboard_AdminImpersonation(t *testing.T) {
	h := newDashboardTestHarness()
	h.client.profile = &domain.Profile{UserID: "U1", Admin: true}

	_, err := h.dashboard.Sections(context.Background(), "U1", "U2")
	require.NoError(t, err)
	require.Equal(t, "U2", h.client.gotRunAs)
	require.Nil(t, h.client.gotToken, "impersonated calls are signed by the gate, not the user token")
}

func TestDashboard_NonAdminImpersonationRejected(t *testing.T) {
	h := newDashboardTestHarness()
	h.client.profile = &domain.Profile{UserID: "U1", Admin: false}

	_, err := h.dashboard.Sections(context.Background(), "U1", "U2")
	require.ErrorIs(t, err, domainoauth.ErrAuthorization)
	require.Zero(t, h.client.sectionCalls, "no resource call goes out for an unauthorized impersonation")
}

func TestDashboard_NoStoredTokenFailsClosed(t *testing.T) {
	h := newDashboardTestHarness()
	h.flow.tokenErr = fmt.Errorf("user U1: %w", domainoauth.ErrFlowNotFound)

	_, err := h.dashboard.Load(context.Background(), "U1", "")
	require.ErrorIs(t, err, domainoauth.ErrFlowNotFound)
}

func TestDashboard_FanOutPropagatesFailure(t *testing.T) {
	h := newDashboardTestHarness()
	h.client.gradesErr = &domainoauth.ProviderError{Status: 502, Endpoint: "/grades"}

	_, err := h.dashboard.Load(context.Background(), "U1", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "load grades")
}

// ---- Test harness and fakes ----

type dashboardTestHarness struct {
	dashboard *Dashboard
	flow      *fakeFlow
	client    *fakeLMSClient
}

func newDashboardTestHarness() *dashboardTestHarness {
	flow := &fakeFlow{token: &domain.Credential{Key: "acc", Secret: "sec"}}
	client := &fakeLMSClient{}
	return &dashboardTestHarness{
		dashboard: NewDashboard(flow, client, zap.NewNop()),
		flow:      flow,
		client:    client,
	}
}

type fakeFlow struct {
	token    *domain.Credential
	tokenErr error
}

var _ auth.Flow = (*fakeFlow)(nil)

func (f *fakeFlow) Begin(context.Context, string) (*auth.BeginOutput, error) {
	return nil, fmt.Errorf("not used")
}

func (f *fakeFlow) Complete(context.Context, auth.CallbackInput) (*auth.Login, error) {
	return nil, fmt.Errorf("not used")
}

func (f *fakeFlow) Token(_ context.Context, userID string) (*domain.Credential, error) {
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return f.token, nil
}

func (f *fakeFlow) Invalidate(context.Context, string) error { return nil }

type fakeLMSClient struct {
	mu            sync.Mutex
	profile       *domain.Profile
	sections      []domain.Section
	grades        []domain.Grade
	announcements []domain.Announcement
	gradesErr     error

	gotToken     *domain.Credential
	gotRunAs     string
	sectionCalls int
}

func (f *fakeLMSClient) RequestToken(context.Context, string) (domain.Credential, error) {
	return domain.Credential{}, fmt.Errorf("not used")
}

func (f *fakeLMSClient) AccessToken(context.Context, domain.Credential, string) (domain.Credential, error) {
	return domain.Credential{}, fmt.Errorf("not used")
}

func (f *fakeLMSClient) FetchProfile(_ context.Context, token *domain.Credential, runAs string) (*domain.Profile, error) {
	if f.profile == nil {
		return nil, fmt.Errorf("profile not configured")
	}
	return f.profile, nil
}

func (f *fakeLMSClient) ListSections(_ context.Context, token *domain.Credential, userID, runAs string) ([]domain.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sectionCalls++
	f.gotToken = token
	f.gotRunAs = runAs
	return f.sections, nil
}

func (f *fakeLMSClient) ListGrades(_ context.Context, token *domain.Credential, userID, runAs string) ([]domain.Grade, error) {
	if f.gradesErr != nil {
		return nil, f.gradesErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotToken = token
	f.gotRunAs = runAs
	return f.grades, nil
}

func (f *fakeLMSClient) ListAnnouncements(_ context.Context, token *domain.Credential, runAs string) ([]domain.Announcement, error) {
	return f.announcements, nil
}
