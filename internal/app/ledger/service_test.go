package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tontine-app/internal/domain/access"
	"tontine-app/internal/domain/carnets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	mu       sync.Mutex
	carnets  map[string]carnets.Carnet
	txs      map[string][]carnets.Transaction
	applyErr error
	applied  int
	// onGet runs before Get answers, outside the lock
	onGet func()
}

func newFakeRepo(cs ...carnets.Carnet) *fakeRepo {
	r := &fakeRepo{carnets: map[string]carnets.Carnet{}, txs: map[string][]carnets.Transaction{}}
	for _, c := range cs {
		r.carnets[c.ID] = c
	}
	return r
}

func (r *fakeRepo) Get(_ context.Context, id string) (carnets.Carnet, error) {
	if r.onGet != nil {
		r.onGet()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carnets[id]
	if !ok {
		return carnets.Carnet{}, carnets.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *fakeRepo) ListByClient(_ context.Context, clientID uint) ([]carnets.Carnet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []carnets.Carnet
	for _, c := range r.carnets {
		if c.ClientID == clientID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeRepo) Create(_ context.Context, c carnets.Carnet) (carnets.Carnet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carnets[c.ID] = c
	return c, nil
}

// ApplyMark holds the lock for the whole read-modify-write, like the row lock of the SQL store.
func (r *fakeRepo) ApplyMark(_ context.Context, id string, _ carnets.MarkDayCommand, mutate carnets.Mutation) (carnets.Carnet, *carnets.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applyErr != nil {
		return carnets.Carnet{}, nil, r.applyErr
	}
	current, ok := r.carnets[id]
	if !ok {
		return carnets.Carnet{}, nil, carnets.ErrNotFound
	}
	next, entry, err := mutate(current.Clone())
	if err != nil {
		return carnets.Carnet{}, nil, err
	}
	if entry == nil {
		return current.Clone(), nil, nil
	}
	r.applied++
	r.carnets[id] = next.Clone()
	r.txs[id] = append(r.txs[id], *entry)
	return next, entry, nil
}

func (r *fakeRepo) Transactions(_ context.Context, id string) ([]carnets.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]carnets.Transaction(nil), r.txs[id]...), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []carnets.DayMarked
	err    error
}

func (p *recordingPublisher) PublishDayMarked(_ context.Context, evt carnets.DayMarked) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

type clientDirectory map[uint]bool

func (d clientDirectory) IsActiveClient(_ context.Context, id uint) (bool, error) {
	return d[id], nil
}

var clock = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func client(id string) access.Session {
	return access.Session{IdentityID: id, Role: access.RoleClient, Authenticated: true}
}

func staff(role access.Role) access.Session {
	return access.Session{IdentityID: "900", Role: role, Authenticated: true}
}

func setup(t *testing.T) (*Service, *fakeRepo, *recordingPublisher, carnets.Carnet) {
	t.Helper()
	c, err := carnets.NewCarnet(42, "tontine-1", "2025-06-01", 1000, clock.AddDate(0, 0, -12))
	require.NoError(t, err)
	repo := newFakeRepo(c)
	pub := &recordingPublisher{}
	clients := clientDirectory{42: true, 77: true}
	svc := NewService(repo, clients, pub, zap.NewNop()).WithClock(func() time.Time { return clock })
	return svc, repo, pub, c
}

func TestMarkDay_OwnerPaysAndPublishes(t *testing.T) {
	svc, repo, pub, c := setup(t)
	montant := int64(1500)

	v, err := svc.MarkDay(context.Background(), client("42"), c.ID, carnets.MarkDayCommand{Jour: 2, Paye: true, Montant: &montant, ReferenceTransaction: "OM-9"})
	require.NoError(t, err)

	assert.True(t, v.Carnet.IsPaid(2))
	assert.Equal(t, 1, v.Calendar.Statistiques.JoursPayes)
	assert.Equal(t, int64(1500), v.Calendar.Statistiques.MontantTotalVerse)
	assert.Equal(t, "OM-9", v.Calendar.Jours[1].ReferenceTransaction)

	assert.Equal(t, 1, repo.applied)
	require.Len(t, pub.events, 1)
	assert.Equal(t, carnets.TxMise, pub.events[0].Type)
	assert.Equal(t, "42", pub.events[0].ActorID)
}

func TestMarkDay_RetryIsNoop(t *testing.T) {
	svc, repo, pub, c := setup(t)
	cmd := carnets.MarkDayCommand{Jour: 1, Paye: true}

	first, err := svc.MarkDay(context.Background(), client("42"), c.ID, cmd)
	require.NoError(t, err)
	second, err := svc.MarkDay(context.Background(), client("42"), c.ID, cmd)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, second.Calendar.Statistiques.CommissionSFDPayee)
	assert.Equal(t, 1, repo.applied)
	assert.Len(t, pub.events, 1)
}

func TestMarkDay_ValidationStopsBeforeRepository(t *testing.T) {
	svc, repo, _, c := setup(t)

	_, err := svc.MarkDay(context.Background(), client("42"), c.ID, carnets.MarkDayCommand{Jour: 32, Paye: true})
	ve, ok := carnets.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, carnets.CodeOutOfRange, ve.Code)
	assert.Zero(t, repo.applied)
}

func TestMarkDay_RepositoryFailureIsReturnedAsIs(t *testing.T) {
	svc, repo, pub, c := setup(t)
	boom := errors.New("remote down")
	repo.applyErr = boom

	_, err := svc.MarkDay(context.Background(), client("42"), c.ID, carnets.MarkDayCommand{Jour: 3, Paye: true})
	assert.Same(t, boom, err)
	assert.Empty(t, pub.events)

	stored, _ := repo.Get(context.Background(), c.ID)
	assert.False(t, stored.IsPaid(3))
}

func TestMarkDay_PublishFailureDoesNotFail(t *testing.T) {
	svc, _, pub, c := setup(t)
	pub.err = errors.New("broker gone")

	v, err := svc.MarkDay(context.Background(), client("42"), c.ID, carnets.MarkDayCommand{Jour: 4, Paye: true})
	require.NoError(t, err)
	assert.True(t, v.Carnet.IsPaid(4))
}

func TestMarkDay_OnlyOwnerMayWrite(t *testing.T) {
	svc, _, _, c := setup(t)
	cmd := carnets.MarkDayCommand{Jour: 2, Paye: true}

	_, err := svc.MarkDay(context.Background(), client("43"), c.ID, cmd)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.MarkDay(context.Background(), staff(access.RoleAgentSFD), c.ID, cmd)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.MarkDay(context.Background(), access.Session{}, c.ID, cmd)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestMarkDay_UnknownRoleIsConfigurationError(t *testing.T) {
	svc, _, _, c := setup(t)
	actor := access.Session{IdentityID: "42", Role: access.Role("GOD"), Authenticated: true}

	_, err := svc.MarkDay(context.Background(), actor, c.ID, carnets.MarkDayCommand{Jour: 2, Paye: true})
	assert.True(t, access.IsConfigurationError(err))
}

func TestGet(t *testing.T) {
	svc, _, _, c := setup(t)

	v, err := svc.Get(context.Background(), client("42"), c.ID)
	require.NoError(t, err)
	assert.Len(t, v.Calendar.Jours, carnets.CycleLength)
	assert.Equal(t, 8, v.Calendar.Statistiques.JoursRetard)

	_, err = svc.Get(context.Background(), staff(access.RoleSuperviseurSFD), c.ID)
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), client("1"), c.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(context.Background(), client("42"), "missing")
	assert.ErrorIs(t, err, carnets.ErrNotFound)
}

func TestList(t *testing.T) {
	svc, _, _, c := setup(t)

	out, err := svc.List(context.Background(), client("42"), 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, c.ID, out[0].ID)

	_, err = svc.List(context.Background(), client("42"), 7)
	assert.ErrorIs(t, err, ErrForbidden)

	out, err = svc.List(context.Background(), staff(access.RoleAdminSFD), 42)
	require.NoError(t, err)
	assert.Len(t, out, 1)

	_, err = svc.List(context.Background(), staff(access.RoleAdminSFD), 0)
	_, ok := carnets.AsValidationError(err)
	assert.True(t, ok)
}

func TestCreate(t *testing.T) {
	svc, repo, _, _ := setup(t)
	in := CreateInput{ClientID: 77, TontineID: "tontine-2", CycleStart: "2025-07-01", MiseJournaliere: 500}

	_, err := svc.Create(context.Background(), client("77"), in)
	assert.ErrorIs(t, err, ErrForbidden)

	v, err := svc.Create(context.Background(), staff(access.RoleAgentSFD), in)
	require.NoError(t, err)
	assert.Equal(t, uint(77), v.Carnet.ClientID)
	assert.Zero(t, v.Calendar.Statistiques.TauxPonctualite)

	_, err = repo.Get(context.Background(), v.Carnet.ID)
	assert.NoError(t, err)

	in.ClientID = 900
	_, err = svc.Create(context.Background(), staff(access.RoleAgentSFD), in)
	ve, ok := carnets.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "client_id", ve.Field)

	in.ClientID = 77
	in.CycleStart = "juillet"
	_, err = svc.Create(context.Background(), staff(access.RoleAdminSFD), in)
	ve, ok = carnets.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, carnets.CodeMalformedCarnet, ve.Code)
}

func TestTransactions(t *testing.T) {
	svc, _, _, c := setup(t)
	_, err := svc.MarkDay(context.Background(), client("42"), c.ID, carnets.MarkDayCommand{Jour: 2, Paye: true})
	require.NoError(t, err)
	_, err = svc.MarkDay(context.Background(), client("42"), c.ID, carnets.MarkDayCommand{Jour: 2, Reversal: true, Motif: "erreur"})
	require.NoError(t, err)

	txs, err := svc.Transactions(context.Background(), staff(access.RoleSuperviseurSFD), c.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, carnets.TxMise, txs[0].Type)
	assert.Equal(t, carnets.TxReversal, txs[1].Type)
	assert.Equal(t, "erreur", txs[1].Motif)
}

// markConcurrently sends every command at once, each request having read the
// carnet before any of them writes.
func markConcurrently(t *testing.T, svc *Service, repo *fakeRepo, id string, cmds ...carnets.MarkDayCommand) {
	t.Helper()
	var arrived sync.WaitGroup
	arrived.Add(len(cmds))
	repo.onGet = func() {
		arrived.Done()
		arrived.Wait()
	}
	defer func() { repo.onGet = nil }()

	var wg sync.WaitGroup
	errs := make([]error, len(cmds))
	for i, cmd := range cmds {
		wg.Add(1)
		go func(i int, cmd carnets.MarkDayCommand) {
			defer wg.Done()
			_, errs[i] = svc.MarkDay(context.Background(), client("42"), id, cmd)
		}(i, cmd)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
}

func TestMarkDay_ConcurrentDaysKeepEveryFlag(t *testing.T) {
	svc, repo, pub, c := setup(t)

	markConcurrently(t, svc, repo, c.ID,
		carnets.MarkDayCommand{Jour: 3, Paye: true},
		carnets.MarkDayCommand{Jour: 4, Paye: true},
	)

	stored, err := repo.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid(3))
	assert.True(t, stored.IsPaid(4))
	assert.Len(t, repo.txs[c.ID], 2)
	assert.Len(t, pub.events, 2)
}

func TestMarkDay_ConcurrentRetryWritesOnce(t *testing.T) {
	svc, repo, pub, c := setup(t)
	cmd := carnets.MarkDayCommand{Jour: 3, Paye: true}

	markConcurrently(t, svc, repo, c.ID, cmd, cmd, cmd)

	assert.Equal(t, 1, repo.applied)
	assert.Len(t, repo.txs[c.ID], 1)
	assert.Len(t, pub.events, 1)
}
