package carnets

import (
	"math"
	"sort"
	"time"
)

type JourCotisation struct {
	Numero               int    `json:"numero"`
	Date                 string `json:"date"`
	EstPaye              bool   `json:"est_paye"`
	EstCommissionSFD     bool   `json:"est_commission_sfd"`
	Montant              int64  `json:"montant"`
	ReferenceTransaction string `json:"reference_transaction,omitempty"`
	EstEnRetard          bool   `json:"est_en_retard"`
}

type Statistiques struct {
	JoursPayes         int     `json:"jours_payes"`
	JoursManques       int     `json:"jours_manques"`
	TauxPonctualite    float64 `json:"taux_ponctualite"`
	JoursRetard        int     `json:"jours_retard"`
	MontantTotalVerse  int64   `json:"montant_total_verse"`
	ProchaineEcheance  *string `json:"prochaine_echeance"`
	CommissionSFDPayee bool    `json:"commission_sfd_payee"`
}

type Calendar struct {
	Jours        []JourCotisation `json:"jours"`
	Statistiques Statistiques     `json:"statistiques"`
}

// DeriveCalendar expands c into its 31 days and the cycle statistics.
//
// "Today" is taken once from now, so lateness is consistent across the whole pass.
// txs supply amounts and references; entries for other carnets are ignored.
func DeriveCalendar(c Carnet, txs []Transaction, now time.Time) (Calendar, error) {
	if err := c.Validate(); err != nil {
		return Calendar{}, err
	}
	start, err := c.CycleStartDate()
	if err != nil {
		return Calendar{}, err
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	latest := latestPerDay(c.ID, txs)

	cal := Calendar{Jours: make([]JourCotisation, 0, CycleLength)}
	stats := &cal.Statistiques
	elapsed := 0

	for day := 1; day <= CycleLength; day++ {
		date := start.AddDate(0, 0, day-1)
		j := JourCotisation{
			Numero:           day,
			Date:             date.Format(DateLayout),
			EstPaye:          c.IsPaid(day),
			EstCommissionSFD: day == CommissionDay,
		}

		if j.EstPaye {
			j.Montant = c.MiseJournaliere
			if tx, ok := latest[day]; ok && tx.Type != TxReversal {
				j.Montant = tx.Montant
				j.ReferenceTransaction = tx.ReferenceTransaction
			}
		} else {
			j.EstEnRetard = date.Before(today)
		}
		cal.Jours = append(cal.Jours, j)

		if j.EstCommissionSFD {
			stats.CommissionSFDPayee = j.EstPaye
			continue
		}

		if !date.After(today) {
			elapsed++
		}
		if j.EstPaye {
			stats.JoursPayes++
			stats.MontantTotalVerse += j.Montant
			continue
		}
		stats.JoursManques++
		if j.EstEnRetard {
			stats.JoursRetard++
		}
		if stats.ProchaineEcheance == nil && !date.Before(today) {
			d := j.Date
			stats.ProchaineEcheance = &d
		}
	}

	stats.TauxPonctualite = ponctualite(stats.JoursPayes, elapsed)
	return cal, nil
}

// ponctualite is the share of contribution days paid, in percent with two decimals.
// A cycle where no contribution day has started yet scores 0.
func ponctualite(paid, elapsed int) float64 {
	if elapsed == 0 {
		return 0
	}
	rate := float64(paid) / float64(ContributionDays) * 100
	rate = math.Round(rate*100) / 100
	return math.Max(0, math.Min(100, rate))
}

func latestPerDay(carnetID string, txs []Transaction) map[int]Transaction {
	sorted := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.CarnetID != carnetID || tx.Jour < 1 || tx.Jour > CycleLength {
			continue
		}
		sorted = append(sorted, tx)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	out := make(map[int]Transaction, len(sorted))
	for _, tx := range sorted {
		out[tx.Jour] = tx
	}
	return out
}
