package carnets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 15, 4, 5, 0, time.UTC)
}

func mustMark(t *testing.T, c Carnet, cmds ...MarkDayCommand) Carnet {
	t.Helper()
	for _, cmd := range cmds {
		var err error
		c, err = MarkDay(c, cmd, markedAt)
		require.NoError(t, err)
	}
	return c
}

func TestDeriveCalendar_ThirtyOneOrderedDays(t *testing.T) {
	c := newTestCarnet(t)
	cal, err := DeriveCalendar(c, nil, at(2025, 6, 10))
	require.NoError(t, err)

	require.Len(t, cal.Jours, CycleLength)
	for i, j := range cal.Jours {
		assert.Equal(t, i+1, j.Numero)
		assert.Equal(t, i == 0, j.EstCommissionSFD)
	}
	assert.Equal(t, "2025-06-01", cal.Jours[0].Date)
	assert.Equal(t, "2025-07-01", cal.Jours[30].Date)
}

func TestDeriveCalendar_FreshCarnet(t *testing.T) {
	c := newTestCarnet(t)
	cal, err := DeriveCalendar(c, nil, at(2025, 6, 10))
	require.NoError(t, err)

	s := cal.Statistiques
	assert.Equal(t, 0, s.JoursPayes)
	assert.Equal(t, 30, s.JoursManques)
	assert.False(t, s.CommissionSFDPayee)
	assert.Equal(t, 8, s.JoursRetard) // days 2..9
	assert.Zero(t, s.TauxPonctualite)
	assert.Zero(t, s.MontantTotalVerse)
	require.NotNil(t, s.ProchaineEcheance)
	assert.Equal(t, "2025-06-10", *s.ProchaineEcheance)

	assert.True(t, cal.Jours[8].EstEnRetard)
	assert.False(t, cal.Jours[9].EstEnRetard, "today is not late yet")
}

func TestDeriveCalendar_CommissionDoesNotCount(t *testing.T) {
	c := mustMark(t, newTestCarnet(t), MarkDayCommand{Jour: 1, Paye: true})
	cal, err := DeriveCalendar(c, nil, at(2025, 6, 10))
	require.NoError(t, err)

	assert.True(t, cal.Statistiques.CommissionSFDPayee)
	assert.Equal(t, 0, cal.Statistiques.JoursPayes)
	assert.Equal(t, 30, cal.Statistiques.JoursManques)
	assert.Zero(t, cal.Statistiques.MontantTotalVerse)
}

func TestDeriveCalendar_AmountsAndRate(t *testing.T) {
	c := mustMark(t, newTestCarnet(t),
		MarkDayCommand{Jour: 2, Paye: true},
		MarkDayCommand{Jour: 3, Paye: true},
		MarkDayCommand{Jour: 4, Paye: true},
	)
	txs := []Transaction{
		{CarnetID: c.ID, Jour: 3, Type: TxMise, Montant: 2500, ReferenceTransaction: "WAVE-1", CreatedAt: markedAt},
		{CarnetID: "other", Jour: 4, Type: TxMise, Montant: 99999, CreatedAt: markedAt},
	}

	cal, err := DeriveCalendar(c, txs, at(2025, 6, 10))
	require.NoError(t, err)

	assert.Equal(t, int64(1000), cal.Jours[1].Montant)
	assert.Equal(t, int64(2500), cal.Jours[2].Montant)
	assert.Equal(t, "WAVE-1", cal.Jours[2].ReferenceTransaction)
	assert.Equal(t, int64(1000), cal.Jours[3].Montant)
	assert.Zero(t, cal.Jours[4].Montant)

	s := cal.Statistiques
	assert.Equal(t, 3, s.JoursPayes)
	assert.Equal(t, 27, s.JoursManques)
	assert.Equal(t, 5, s.JoursRetard) // days 5..9
	assert.Equal(t, int64(4500), s.MontantTotalVerse)
	assert.Equal(t, 10.0, s.TauxPonctualite)
}

func TestDeriveCalendar_LatestTransactionWins(t *testing.T) {
	c := mustMark(t, newTestCarnet(t), MarkDayCommand{Jour: 5, Paye: true})
	txs := []Transaction{
		{CarnetID: c.ID, Jour: 5, Type: TxMise, Montant: 3000, CreatedAt: markedAt.Add(2 * time.Hour)},
		{CarnetID: c.ID, Jour: 5, Type: TxMise, Montant: 1200, CreatedAt: markedAt},
	}
	cal, err := DeriveCalendar(c, txs, at(2025, 6, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(3000), cal.Jours[4].Montant)

	// paid again after a reversal without a new transaction: fall back to the stake
	txs = append(txs, Transaction{CarnetID: c.ID, Jour: 5, Type: TxReversal, CreatedAt: markedAt.Add(3 * time.Hour)})
	cal, err = DeriveCalendar(c, txs, at(2025, 6, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), cal.Jours[4].Montant)
}

func TestDeriveCalendar_NoElapsedContributionDay(t *testing.T) {
	c := mustMark(t, newTestCarnet(t),
		MarkDayCommand{Jour: 2, Paye: true},
		MarkDayCommand{Jour: 3, Paye: true},
	)
	for _, now := range []time.Time{at(2025, 5, 20), at(2025, 6, 1)} {
		cal, err := DeriveCalendar(c, nil, now)
		require.NoError(t, err)
		assert.Zero(t, cal.Statistiques.TauxPonctualite, now)
		assert.Zero(t, cal.Statistiques.JoursRetard, now)
	}
}

func TestDeriveCalendar_RateBounds(t *testing.T) {
	c := newTestCarnet(t)
	after := at(2025, 8, 1)

	for day := 2; day <= CycleLength; day++ {
		c = mustMark(t, c, MarkDayCommand{Jour: day, Paye: true})
		cal, err := DeriveCalendar(c, nil, after)
		require.NoError(t, err)
		rate := cal.Statistiques.TauxPonctualite
		assert.GreaterOrEqual(t, rate, 0.0)
		assert.LessOrEqual(t, rate, 100.0)
	}

	cal, err := DeriveCalendar(c, nil, after)
	require.NoError(t, err)
	assert.Equal(t, 100.0, cal.Statistiques.TauxPonctualite)
	assert.Nil(t, cal.Statistiques.ProchaineEcheance)
	assert.Equal(t, int64(30000), cal.Statistiques.MontantTotalVerse)
}

func TestDeriveCalendar_UsesOneSnapshotOfToday(t *testing.T) {
	c := newTestCarnet(t)
	// late evening: day 10 is still "today" for every entry
	cal, err := DeriveCalendar(c, nil, time.Date(2025, 6, 10, 23, 59, 59, 999, time.UTC))
	require.NoError(t, err)
	assert.True(t, cal.Jours[8].EstEnRetard)
	assert.False(t, cal.Jours[9].EstEnRetard)
	assert.False(t, cal.Jours[10].EstEnRetard)
}

func TestDeriveCalendar_RefusesMalformedCarnet(t *testing.T) {
	c := newTestCarnet(t)
	c.CycleStart = "2025-13-01"
	_, err := DeriveCalendar(c, nil, at(2025, 6, 10))
	requireCode(t, err, CodeMalformedCarnet)
}
