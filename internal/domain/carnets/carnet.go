package carnets

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	CycleLength      = 31
	CommissionDay    = 1
	ContributionDays = CycleLength - 1

	DateLayout = "2006-01-02"
	dayPrefix  = "jour_"
)

var ErrNotFound = errors.New("carnet not found")

// MisesCochees holds one flag per cycle day, keyed "jour_1".."jour_31".
type MisesCochees map[string]bool

// Carnet is one client's 31-day contribution cycle in a tontine.
type Carnet struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID  uint   `gorm:"not null;index" json:"client_id"`
	TontineID string `gorm:"not null;index" json:"tontine_id"`

	CycleStart      string       `gorm:"type:varchar(10);not null" json:"cycle_start"`
	MiseJournaliere int64        `gorm:"not null;default:0" json:"mise_journaliere"`
	MisesCochees    MisesCochees `gorm:"serializer:json;type:jsonb;not null" json:"mises_cochees"`

	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `gorm:"column:modified_at" json:"modified_at"`
}

func DayKey(day int) string {
	return dayPrefix + strconv.Itoa(day)
}

// dayFromKey is the inverse of DayKey. It rejects leading zeros and signs.
func dayFromKey(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, dayPrefix)
	if !ok || rest == "" || rest[0] < '1' || rest[0] > '9' {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 || n > CycleLength {
		return 0, false
	}
	return n, true
}

func EmptyMises() MisesCochees {
	m := make(MisesCochees, CycleLength)
	for d := 1; d <= CycleLength; d++ {
		m[DayKey(d)] = false
	}
	return m
}

// NewCarnet opens a cycle with every day unpaid.
func NewCarnet(clientID uint, tontineID, cycleStart string, mise int64, now time.Time) (Carnet, error) {
	c := Carnet{
		ID:              uuid.NewString(),
		ClientID:        clientID,
		TontineID:       strings.TrimSpace(tontineID),
		CycleStart:      strings.TrimSpace(cycleStart),
		MiseJournaliere: mise,
		MisesCochees:    EmptyMises(),
		CreatedAt:       now,
		ModifiedAt:      now,
	}
	if c.ClientID == 0 {
		return Carnet{}, malformed("client_id", "client reference is required")
	}
	if c.TontineID == "" {
		return Carnet{}, malformed("tontine_id", "tontine reference is required")
	}
	if err := c.Validate(); err != nil {
		return Carnet{}, err
	}
	return c, nil
}

func (c Carnet) IsPaid(day int) bool {
	return c.MisesCochees[DayKey(day)]
}

// Clone returns a copy that shares no map with c.
func (c Carnet) Clone() Carnet {
	out := c
	if c.MisesCochees != nil {
		out.MisesCochees = make(MisesCochees, len(c.MisesCochees))
		for k, v := range c.MisesCochees {
			out.MisesCochees[k] = v
		}
	}
	return out
}

func (c Carnet) CycleStartDate() (time.Time, error) {
	t, err := time.Parse(DateLayout, c.CycleStart)
	if err != nil {
		return time.Time{}, malformed("cycle_start", "expected YYYY-MM-DD, got "+strconv.Quote(c.CycleStart))
	}
	return t, nil
}

// DayDate is the calendar date of a cycle day, at midnight UTC.
func (c Carnet) DayDate(day int) (time.Time, error) {
	start, err := c.CycleStartDate()
	if err != nil {
		return time.Time{}, err
	}
	return start.AddDate(0, 0, day-1), nil
}

// Validate refuses carnets the ledger cannot operate on.
func (c Carnet) Validate() error {
	if _, err := c.CycleStartDate(); err != nil {
		return err
	}
	if c.MiseJournaliere < 0 {
		return malformed("mise_journaliere", "daily stake cannot be negative")
	}
	if len(c.MisesCochees) != CycleLength {
		return malformed("mises_cochees", "expected "+strconv.Itoa(CycleLength)+" days, got "+strconv.Itoa(len(c.MisesCochees)))
	}
	for key := range c.MisesCochees {
		if _, ok := dayFromKey(key); !ok {
			return malformed("mises_cochees", "unexpected key "+strconv.Quote(key))
		}
	}
	return nil
}
