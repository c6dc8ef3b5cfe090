package ledger

import (
	"context"
	"errors"
	"strconv"
	"time"

	"tontine-app/internal/domain/access"
	"tontine-app/internal/domain/carnets"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrForbidden = errors.New("forbidden")

// Repository is where carnets live: Postgres or the remote REST service.
type Repository interface {
	Get(ctx context.Context, id string) (carnets.Carnet, error)
	ListByClient(ctx context.Context, clientID uint) ([]carnets.Carnet, error)
	Create(ctx context.Context, c carnets.Carnet) (carnets.Carnet, error)
	// ApplyMark runs mutate on the stored carnet while no other mark can
	// interleave. The entry is nil when nothing was written.
	ApplyMark(ctx context.Context, id string, cmd carnets.MarkDayCommand, mutate carnets.Mutation) (carnets.Carnet, *carnets.Transaction, error)
	Transactions(ctx context.Context, carnetID string) ([]carnets.Transaction, error)
}

// Clients tells whether an account may own a carnet.
type Clients interface {
	IsActiveClient(ctx context.Context, id uint) (bool, error)
}

type Publisher interface {
	PublishDayMarked(ctx context.Context, evt carnets.DayMarked) error
}

// View is a carnet with everything derived from it.
type View struct {
	Carnet   carnets.Carnet   `json:"carnet"`
	Calendar carnets.Calendar `json:"calendar"`
}

type CreateInput struct {
	ClientID        uint   `json:"client_id" binding:"required"`
	TontineID       string `json:"tontine_id" binding:"required"`
	CycleStart      string `json:"cycle_start" binding:"required"`
	MiseJournaliere int64  `json:"mise_journaliere"`
}

type Service struct {
	repo    Repository
	clients Clients
	pub     Publisher
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo Repository, clients Clients, pub Publisher, log *zap.Logger) *Service {
	return &Service{repo: repo, clients: clients, pub: pub, log: log, now: time.Now}
}

// WithClock swaps the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

var (
	readers  = access.Roles()
	creators = []access.Role{access.RoleAgentSFD, access.RoleAdminSFD}
	writers  = []access.Role{access.RoleClient}
)

// gate turns a gate decision into ErrForbidden, passing configuration errors through.
func gate(actor access.Session, allowed []access.Role) error {
	d, err := access.Authorize(actor, allowed)
	if err != nil {
		return err
	}
	if !d.Allowed() {
		return ErrForbidden
	}
	return nil
}

func ownedBy(actor access.Session, c carnets.Carnet) bool {
	return actor.IdentityID == strconv.FormatUint(uint64(c.ClientID), 10)
}

func canRead(actor access.Session, c carnets.Carnet) error {
	if err := gate(actor, readers); err != nil {
		return err
	}
	if actor.Role == access.RoleClient && !ownedBy(actor, c) {
		return ErrForbidden
	}
	return nil
}

// Only the owning client may change a carnet.
func canWrite(actor access.Session, c carnets.Carnet) error {
	if err := gate(actor, writers); err != nil {
		return err
	}
	if !ownedBy(actor, c) {
		return ErrForbidden
	}
	return nil
}

func (s *Service) List(ctx context.Context, actor access.Session, clientID uint) ([]carnets.Carnet, error) {
	if err := gate(actor, readers); err != nil {
		return nil, err
	}
	if actor.Role == access.RoleClient {
		own, err := strconv.ParseUint(actor.IdentityID, 10, 64)
		if err != nil {
			return nil, ErrForbidden
		}
		if clientID != 0 && clientID != uint(own) {
			return nil, ErrForbidden
		}
		clientID = uint(own)
	}
	if clientID == 0 {
		return nil, &carnets.ValidationError{Code: carnets.CodeInvalidCommand, Field: "client_id", Message: "client_id is required"}
	}
	return s.repo.ListByClient(ctx, clientID)
}

func (s *Service) Create(ctx context.Context, actor access.Session, in CreateInput) (View, error) {
	if err := gate(actor, creators); err != nil {
		return View{}, err
	}
	now := s.now()
	c, err := carnets.NewCarnet(in.ClientID, in.TontineID, in.CycleStart, in.MiseJournaliere, now)
	if err != nil {
		return View{}, err
	}
	// only the owning CLIENT can ever mark a carnet
	ok, err := s.clients.IsActiveClient(ctx, in.ClientID)
	if err != nil {
		return View{}, err
	}
	if !ok {
		return View{}, &carnets.ValidationError{Code: carnets.CodeInvalidCommand, Field: "client_id", Message: "client_id is not an active client account"}
	}
	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return View{}, err
	}
	s.log.Info("carnet opened",
		zap.String("carnet_id", created.ID),
		zap.Uint("client_id", created.ClientID),
		zap.String("actor_id", actor.IdentityID),
	)
	return s.view(created, nil, now)
}

// Get loads the carnet and its transactions in parallel and derives the calendar.
func (s *Service) Get(ctx context.Context, actor access.Session, id string) (View, error) {
	var (
		c   carnets.Carnet
		txs []carnets.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		c, err = s.repo.Get(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = s.repo.Transactions(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return View{}, err
	}

	if err := canRead(actor, c); err != nil {
		return View{}, err
	}
	return s.view(c, txs, s.now())
}

func (s *Service) Transactions(ctx context.Context, actor access.Session, id string) ([]carnets.Transaction, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canRead(actor, c); err != nil {
		return nil, err
	}
	return s.repo.Transactions(ctx, id)
}

// MarkDay checks access on the current carnet, then lets the repository apply
// the mark on the stored row. Nothing is kept locally if the repository refuses:
// the caller gets the repository error as is and the carnet it returns is the
// confirmed one. Replaying a mark already applied writes and publishes nothing.
func (s *Service) MarkDay(ctx context.Context, actor access.Session, id string, cmd carnets.MarkDayCommand) (View, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	if err := canWrite(actor, current); err != nil {
		return View{}, err
	}
	if err := cmd.Validate(); err != nil {
		return View{}, err
	}

	now := s.now()
	confirmed, entry, err := s.repo.ApplyMark(ctx, id, cmd, carnets.MarkMutation(cmd, actor.IdentityID, now))
	if err != nil {
		s.log.Warn("mark day not confirmed",
			zap.String("carnet_id", id),
			zap.Int("jour", cmd.Jour),
			zap.Error(err),
		)
		return View{}, err
	}
	if err := confirmed.Validate(); err != nil {
		return View{}, err
	}

	if entry != nil {
		s.log.Info("carnet day marked",
			zap.String("carnet_id", id),
			zap.Int("jour", cmd.Jour),
			zap.Bool("paye", cmd.Paye),
			zap.String("type", string(entry.Type)),
			zap.String("actor_id", actor.IdentityID),
		)
		if err := s.pub.PublishDayMarked(ctx, carnets.NewDayMarked(confirmed, *entry)); err != nil {
			s.log.Error("publish day marked", zap.String("carnet_id", id), zap.Error(err))
		}
	}

	txs, err := s.repo.Transactions(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.view(confirmed, txs, now)
}

func (s *Service) view(c carnets.Carnet, txs []carnets.Transaction, now time.Time) (View, error) {
	cal, err := carnets.DeriveCalendar(c, txs, now)
	if err != nil {
		return View{}, err
	}
	return View{Carnet: c, Calendar: cal}, nil
}
