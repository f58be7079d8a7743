package invitations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarovate/onboarding/internal/errs"
	"github.com/clarovate/onboarding/internal/mail"
	"github.com/clarovate/onboarding/internal/models"
)

type memStore struct {
	mu   sync.Mutex
	rows map[string]models.Invitation
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]models.Invitation)}
}

func (m *memStore) Create(_ context.Context, inv *models.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[inv.Email]; ok {
		return errs.ErrDuplicatePending
	}
	inv.UpdatedAt = inv.CreatedAt
	m.rows[inv.Email] = *inv
	return nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.rows[email]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (m *memStore) Reissue(_ context.Context, email, prevToken, token string, expiresAt, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.rows[email]
	if !ok || inv.Token != prevToken {
		return false, nil
	}
	inv.Token, inv.ExpiresAt, inv.Status, inv.UpdatedAt = token, expiresAt, models.InvitationStatusPending, now
	m.rows[email] = inv
	return true, nil
}

func (m *memStore) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, inv := range m.rows {
		if inv.Status == models.InvitationStatusPending && inv.IsExpired(now) {
			inv.Status = models.InvitationStatusExpired
			m.rows[k] = inv
			n++
		}
	}
	return n, nil
}

func (m *memStore) List(context.Context) ([]*models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Invitation, 0, len(m.rows))
	for _, inv := range m.rows {
		cp := inv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) Delete(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[email]; !ok {
		return false, nil
	}
	delete(m.rows, email)
	return true, nil
}

type memAccounts map[string]*models.Account

func (m memAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	return m[email], nil
}

type memOrgs map[string]*models.Organization

func (m memOrgs) FindByID(_ context.Context, id string) (*models.Organization, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errs.ErrInvalidReference
	}
	org, ok := m[id]
	if !ok {
		return nil, errs.ErrOrganizationNotFound
	}
	return org, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	err  error
	sent []mail.Invitation
}

func (r *recordingMailer) SendInvitation(_ context.Context, inv mail.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, inv)
	return nil
}

type fixture struct {
	svc      *Service
	store    *memStore
	accounts memAccounts
	orgs     memOrgs
	mailer   *recordingMailer
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemStore(),
		accounts: memAccounts{},
		orgs:     memOrgs{},
		mailer:   &recordingMailer{},
		clock:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.accounts, f.orgs, f.mailer, Options{
		BaseURL:      "https://app.example.com/",
		PlatformName: "Clarovate",
		TTL:          48 * time.Hour,
		ResendTTL:    24 * time.Hour,
	}, nil)
	f.svc.now = func() time.Time { return f.clock }
	seq := 0
	f.svc.newToken = func() (string, error) {
		seq++
		return fmt.Sprintf("tok-%d", seq), nil
	}
	return f
}

func (f *fixture) addOrg(name string) string {
	id := uuid.New()
	f.orgs[id.String()] = &models.Organization{ID: id, Name: name, Type: models.OrganizationTypeClient}
	return id.String()
}

func TestIssuePersistsAndDispatches(t *testing.T) {
	f := newFixture(t)
	orgID := f.addOrg("Acme")

	res, err := f.svc.Issue(context.Background(), IssueInput{
		Email: " A@X.com ", Role: models.RoleUser, Type: models.InvitationTypeClient, OrganizationID: orgID, CreatedBy: "USER01",
	})
	require.NoError(t, err)
	assert.True(t, res.Sent)

	inv := f.store.rows["a@x.com"]
	assert.Equal(t, models.InvitationStatusPending, inv.Status)
	assert.Equal(t, "tok-1", inv.Token)
	assert.Equal(t, f.clock.Add(48*time.Hour), inv.ExpiresAt)
	assert.Equal(t, "Acme", inv.OrganizationName)
	assert.Equal(t, "USER01", inv.CreatedBy)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, mail.Invitation{
		Email: "a@x.com", Role: "USER", Link: "https://app.example.com/invite/tok-1", OrganizationName: "Acme",
	}, f.mailer.sent[0])
}

func TestIssueDefaultsToPlatformName(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Issue(context.Background(), IssueInput{Email: "a@x.com", Role: models.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, models.InvitationTypeClient, f.store.rows["a@x.com"].Type)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "Clarovate", f.mailer.sent[0].OrganizationName)
}

func TestIssueDuplicateKeepsFirstToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Issue(ctx, IssueInput{Email: "b@y.com", Role: models.RoleUser})
	require.NoError(t, err)
	first := f.store.rows["b@y.com"].Token

	_, err = f.svc.Issue(ctx, IssueInput{Email: "b@y.com", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, errs.ErrDuplicatePending)
	assert.Equal(t, first, f.store.rows["b@y.com"].Token)
	assert.Equal(t, models.RoleUser, f.store.rows["b@y.com"].Role)
	assert.Len(t, f.mailer.sent, 1)
}

func TestIssueBlockedByExpiredInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Issue(ctx, IssueInput{Email: "b@y.com", Role: models.RoleUser})
	require.NoError(t, err)

	f.clock = f.clock.Add(72 * time.Hour)
	_, err = f.svc.Issue(ctx, IssueInput{Email: "b@y.com", Role: models.RoleUser})
	assert.ErrorIs(t, err, errs.ErrDuplicatePending)
}

func TestIssueRejections(t *testing.T) {
	f := newFixture(t)
	f.accounts["taken@x.com"] = &models.Account{ID: "USER01", Email: "taken@x.com"}
	ctx := context.Background()

	tests := []struct {
		name string
		in   IssueInput
		kind errs.Kind
	}{
		{"registered", IssueInput{Email: "taken@x.com", Role: models.RoleUser}, errs.KindAlreadyRegistered},
		{"malformed org", IssueInput{Email: "n@x.com", Role: models.RoleUser, OrganizationID: "acme"}, errs.KindInvalidReference},
		{"unknown org", IssueInput{Email: "n@x.com", Role: models.RoleUser, OrganizationID: uuid.NewString()}, errs.KindOrganizationNotFound},
		{"malformed org internal", IssueInput{Email: "n@x.com", Role: models.RoleUser, Type: models.InvitationTypeInternal, OrganizationID: "acme"}, errs.KindInvalidReference},
		{"bad role", IssueInput{Email: "n@x.com", Role: "ROOT"}, errs.KindBadRequest},
		{"bad type", IssueInput{Email: "n@x.com", Role: models.RoleUser, Type: "PARTNER"}, errs.KindBadRequest},
		{"empty email", IssueInput{Email: "  ", Role: models.RoleUser}, errs.KindBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.Issue(ctx, tt.in)
			assert.Nil(t, res)
			assert.Equal(t, tt.kind, errs.KindOf(err))
		})
	}
	assert.Empty(t, f.store.rows)
	assert.Empty(t, f.mailer.sent)
}

func TestIssueInternalDropsOrganization(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Issue(context.Background(), IssueInput{
		Email: "staff@x.com", Role: models.RoleSupervisor, Type: models.InvitationTypeInternal, OrganizationID: uuid.NewString(),
	})
	require.NoError(t, err)
	inv := f.store.rows["staff@x.com"]
	assert.Nil(t, inv.OrganizationID)
	assert.Empty(t, inv.OrganizationName)
}

func TestIssueMailFailureKeepsInvitation(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("queue down")

	res, err := f.svc.Issue(context.Background(), IssueInput{Email: "a@x.com", Role: models.RoleUser})
	assert.Equal(t, errs.KindMailDispatchFailed, errs.KindOf(err))
	require.NotNil(t, res)
	assert.Equal(t, "a@x.com", res.Invitation.Email)
	assert.Contains(t, f.store.rows, "a@x.com")
}

func TestResendNothingToResend(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Resend(context.Background(), "ghost@x.com", "USER01")
	require.NoError(t, err)
	assert.False(t, res.Sent)
	assert.Equal(t, NothingToResend, res.Message)
	assert.Empty(t, f.mailer.sent)
}

func TestResendBlockedWhileLive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Issue(ctx, IssueInput{Email: "a@x.com", Role: models.RoleUser})
	require.NoError(t, err)

	f.clock = f.clock.Add(47 * time.Hour)
	_, err = f.svc.Resend(ctx, "a@x.com", "USER01")
	assert.ErrorIs(t, err, errs.ErrActiveInvitation)
	assert.Equal(t, "tok-1", f.store.rows["a@x.com"].Token)
}

func TestResendRejectsRegistered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Issue(ctx, IssueInput{Email: "a@x.com", Role: models.RoleUser})
	require.NoError(t, err)
	f.accounts["a@x.com"] = &models.Account{ID: "USER01", Email: "a@x.com"}

	_, err = f.svc.Resend(ctx, "a@x.com", "USER01")
	assert.ErrorIs(t, err, errs.ErrAlreadyRegistered)
}

func TestExpiredInvitationListsThenResends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID := f.addOrg("Zeta")
	_, err := f.svc.Issue(ctx, IssueInput{Email: "c@z.com", Role: models.RoleDesigner, OrganizationID: orgID})
	require.NoError(t, err)

	f.clock = f.clock.Add(49 * time.Hour)
	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.InvitationStatusExpired, list[0].Status)

	res, err := f.svc.Resend(ctx, "c@z.com", "USER02")
	require.NoError(t, err)
	assert.True(t, res.Sent)

	inv := f.store.rows["c@z.com"]
	assert.Equal(t, models.InvitationStatusPending, inv.Status)
	assert.Equal(t, "tok-2", inv.Token)
	assert.Equal(t, f.clock.Add(24*time.Hour), inv.ExpiresAt)
	assert.Equal(t, models.RoleDesigner, inv.Role)
	assert.Equal(t, models.InvitationTypeClient, inv.Type)
	assert.Equal(t, "Zeta", inv.OrganizationName)
	require.NotNil(t, inv.OrganizationID)
	assert.Equal(t, orgID, inv.OrganizationID.String())

	require.Len(t, f.mailer.sent, 2)
	assert.Equal(t, "https://app.example.com/invite/tok-2", f.mailer.sent[1].Link)
}

type racingStore struct {
	*memStore
}

func (r racingStore) Reissue(context.Context, string, string, string, time.Time, time.Time) (bool, error) {
	return false, nil
}

func TestResendLosingRaceIsActiveInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Issue(ctx, IssueInput{Email: "a@x.com", Role: models.RoleUser})
	require.NoError(t, err)
	f.svc.store = racingStore{f.store}
	f.clock = f.clock.Add(49 * time.Hour)

	_, err = f.svc.Resend(ctx, "a@x.com", "USER01")
	assert.ErrorIs(t, err, errs.ErrActiveInvitation)
	assert.Len(t, f.mailer.sent, 1)
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Issue(ctx, IssueInput{Email: "old@x.com", Role: models.RoleUser})
	require.NoError(t, err)
	f.clock = f.clock.Add(49 * time.Hour)
	_, err = f.svc.Issue(ctx, IssueInput{Email: "new@x.com", Role: models.RoleUser})
	require.NoError(t, err)

	first, err := f.svc.List(ctx)
	require.NoError(t, err)
	second, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.Len(t, second, 2)
	assert.Equal(t, "new@x.com", second[0].Email)
	assert.Equal(t, models.InvitationStatusPending, second[0].Status)
	assert.Equal(t, models.InvitationStatusExpired, second[1].Status)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Issue(ctx, IssueInput{Email: "a@x.com", Role: models.RoleUser})
	require.NoError(t, err)

	ok, err := f.svc.Delete(ctx, "A@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.Delete(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentIssueOneWinner(t *testing.T) {
	f := newFixture(t)
	f.svc.newToken = generateToken
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Issue(ctx, IssueInput{Email: "race@x.com", Role: models.RoleUser}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, errs.ErrDuplicatePending)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Len(t, f.store.rows, 1)
}

func TestGenerateToken(t *testing.T) {
	a, err := generateToken()
	require.NoError(t, err)
	b, err := generateToken()
	require.NoError(t, err)
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}
