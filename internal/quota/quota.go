// Package quota tracks warehouse deliveries against each farmer's volume
// quota.
package quota

import (
	"sort"

	"cocoa-insights-go/internal/aggregator"
	"cocoa-insights-go/internal/types"
)

// Transaction statuses and notes
const (
	StatusUnder      = "Under Quota"
	StatusOver       = "OVERQUOTA"
	NoteFirstOver    = "TRANSAKSI PERTAMA OVERQUOTA"
	outputDateLayout = "02/01/2006"
)

// Entry is one delivery with its running quota position
type Entry struct {
	Date       string  `csv:"Tanggal Transaksi"`
	FarmerID   string  `csv:"ID"`
	Name       string  `csv:"Nama Propper"`
	QuotaKg    float64 `csv:"Kouta"`
	NetKg      float64 `csv:"Netto Gudang (Kg)"`
	Cumulative float64 `csv:"Total_Kumulatif"`
	Remaining  float64 `csv:"Sisa_Kouta"`
	Status     string  `csv:"Status_Kouta"`
	AllowedKg  float64 `csv:"Seharusnya_Input"`
	ExcessKg   float64 `csv:"Kelebihan"`
	Note       string  `csv:"Keterangan"`
}

// Analyze walks each farmer's deliveries in order. The quota of a farmer is
// taken from their first transaction. Input must be sorted by farmer id
// then date, as LoadQuota returns it.
func Analyze(txs []types.QuotaTransaction) []Entry {
	out := make([]Entry, 0, len(txs))
	var (
		current string
		quota   float64
		cum     float64
		flagged bool
	)
	for _, tx := range txs {
		if tx.FarmerID != current {
			current, quota, cum, flagged = tx.FarmerID, tx.QuotaKg, 0, false
		}
		before := quota - cum
		cum += tx.NetKg
		e := Entry{
			FarmerID:   tx.FarmerID,
			Name:       tx.Name,
			QuotaKg:    quota,
			NetKg:      tx.NetKg,
			Cumulative: aggregator.Round2(cum),
			Remaining:  aggregator.Round2(quota - cum),
			Status:     StatusUnder,
		}
		if !tx.Date.IsZero() {
			e.Date = tx.Date.Format(outputDateLayout)
		}
		e.AllowedKg = aggregator.Round2(clamp(tx.NetKg, 0, max(before, 0)))
		e.ExcessKg = aggregator.Round2(tx.NetKg - e.AllowedKg)
		if quota-cum < 0 {
			e.Status = StatusOver
			if !flagged {
				e.Note, flagged = NoteFirstOver, true
			}
		}
		out = append(out, e)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}

// FarmerSummary is the quota position of one farmer after all deliveries
type FarmerSummary struct {
	FarmerID     string  `csv:"ID"`
	Name         string  `csv:"Nama Propper"`
	QuotaKg      float64 `csv:"Kouta"`
	TotalKg      float64 `csv:"Total_Volume"`
	Transactions int     `csv:"Total_Transaksi"`
	OverTx       int     `csv:"Transaksi_Overquota"`
	Difference   float64 `csv:"Selisih"`
	UsagePct     float64 `csv:"Persentase_Penggunaan"`
	Status       string  `csv:"Status_Akhir"`
}

// Summarize rolls entries up per farmer. The final status is the status of
// the farmer's last delivery.
func Summarize(entries []Entry) []FarmerSummary {
	var out []FarmerSummary
	for _, e := range entries {
		if len(out) == 0 || out[len(out)-1].FarmerID != e.FarmerID {
			out = append(out, FarmerSummary{FarmerID: e.FarmerID, Name: e.Name, QuotaKg: e.QuotaKg})
		}
		s := &out[len(out)-1]
		s.TotalKg += e.NetKg
		s.Transactions++
		if e.Status == StatusOver {
			s.OverTx++
		}
		s.Status = e.Status
	}
	for i := range out {
		s := &out[i]
		s.TotalKg = aggregator.Round2(s.TotalKg)
		s.Difference = aggregator.Round2(s.TotalKg - s.QuotaKg)
		if s.QuotaKg > 0 {
			s.UsagePct = aggregator.Round2(s.TotalKg / s.QuotaKg * 100)
		}
	}
	return out
}

// Stats are the totals across all farmers
type Stats struct {
	Farmers      int
	Compliant    int
	Over         int
	CompliantPct float64
	OverPct      float64
	Transactions int
	TotalVolume  float64
	TotalQuota   float64
	TotalExcess  float64 // sum of differences of over-quota farmers
	UsagePct     float64
}

// Overall computes the statistics of a summary
func Overall(sum []FarmerSummary) Stats {
	s := Stats{Farmers: len(sum)}
	for _, f := range sum {
		s.Transactions += f.Transactions
		s.TotalVolume += f.TotalKg
		s.TotalQuota += f.QuotaKg
		if f.Status == StatusOver {
			s.Over++
			s.TotalExcess += f.Difference
		}
	}
	s.Compliant = s.Farmers - s.Over
	if s.Farmers > 0 {
		s.CompliantPct = aggregator.Round2(float64(s.Compliant) / float64(s.Farmers) * 100)
		s.OverPct = aggregator.Round2(float64(s.Over) / float64(s.Farmers) * 100)
	}
	if s.TotalQuota > 0 {
		s.UsagePct = aggregator.Round2(s.TotalVolume / s.TotalQuota * 100)
	}
	s.TotalVolume = aggregator.Round2(s.TotalVolume)
	s.TotalExcess = aggregator.Round2(s.TotalExcess)
	return s
}

// TopOver returns up to n over-quota farmers, largest excess first
func TopOver(sum []FarmerSummary, n int) []FarmerSummary {
	var over []FarmerSummary
	for _, f := range sum {
		if f.Status == StatusOver {
			over = append(over, f)
		}
	}
	sort.SliceStable(over, func(i, j int) bool { return over[i].Difference > over[j].Difference })
	if len(over) > n {
		over = over[:n]
	}
	return over
}

// Filter keeps farmers with the given final status
func Filter(sum []FarmerSummary, status string) []FarmerSummary {
	var out []FarmerSummary
	for _, f := range sum {
		if f.Status == status {
			out = append(out, f)
		}
	}
	return out
}
