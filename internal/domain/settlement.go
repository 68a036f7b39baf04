package domain

import (
	"math/big"
	"time"
)

// SplitParams controls how a resolved pool is divided. FeeBps is the platform
// fee in basis points of the total pool; OrgShareBps is the organization's
// cut in basis points of what remains after the fee.
type SplitParams struct {
	FeeBps      int64
	OrgShareBps int64
}

// DefaultSplit is the production split: 5% platform fee, then half of the
// remainder to the hosting organization, the rest to the winners.
var DefaultSplit = SplitParams{FeeBps: 500, OrgShareBps: 5000}

// Payout is one winner's share of the winners pool.
type Payout struct {
	StakeID string
	UserID  string
	Amount  int64
}

// Settlement is the result of resolving one question: the computed split and
// the per-winner payouts, in the order the ledger entries were written.
type Settlement struct {
	QuestionID        string
	OrganizationID    string
	Outcome           Prediction
	TotalPool         int64
	AdminFee          int64
	OrganizationShare int64
	WinnersPool       int64
	TotalWinning      int64
	Payouts           []Payout
	ResolvedAt        time.Time
}

// ComputeSettlement divides the pool formed by stakes according to params.
//
// All arithmetic is integer-exact: winner shares are floor-divided pro rata
// and whatever the floors leave over is added to the platform fee, so
// AdminFee + OrganizationShare + sum(Payouts) always equals the total pool.
// When no stake backed the winning outcome the winners pool folds into the
// organization share. Stakes must already be in deterministic order; payouts
// preserve it.
func ComputeSettlement(questionID, organizationID string, stakes []Stake, outcome Prediction, params SplitParams) Settlement {
	s := Settlement{
		QuestionID:     questionID,
		OrganizationID: organizationID,
		Outcome:        outcome,
	}

	for _, st := range stakes {
		s.TotalPool += st.Amount
		if st.Won(outcome) {
			s.TotalWinning += st.Amount
		}
	}
	if s.TotalPool == 0 {
		return s
	}

	// The bps products can exceed int64 for large pools, same as the
	// per-winner shares below, so they go through big.Int too.
	s.AdminFee = mulDivBps(s.TotalPool, params.FeeBps)
	remaining := s.TotalPool - s.AdminFee
	s.OrganizationShare = mulDivBps(remaining, params.OrgShareBps)
	s.WinnersPool = remaining - s.OrganizationShare

	if s.TotalWinning == 0 {
		// Nobody backed the winning side: the organization absorbs the
		// undistributable winners pool.
		s.OrganizationShare += s.WinnersPool
		s.WinnersPool = 0
		return s
	}

	distributed := int64(0)
	pool := big.NewInt(s.WinnersPool)
	totalWinning := big.NewInt(s.TotalWinning)
	for _, st := range stakes {
		if !st.Won(outcome) {
			continue
		}
		// share = WinnersPool * stake / TotalWinning, floor. The product can
		// exceed int64 for large pools, hence big.Int.
		share := new(big.Int).Mul(pool, big.NewInt(st.Amount))
		share.Quo(share, totalWinning)
		amount := share.Int64()
		distributed += amount
		s.Payouts = append(s.Payouts, Payout{
			StakeID: st.ID,
			UserID:  st.UserID,
			Amount:  amount,
		})
	}

	// Flooring remainder goes to the platform fee so the pool is conserved
	// to the unit.
	s.AdminFee += s.WinnersPool - distributed
	s.WinnersPool = distributed

	return s
}

// mulDivBps computes amount * bps / 10_000 with floor division, using big.Int
// so the product cannot overflow.
func mulDivBps(amount, bps int64) int64 {
	v := new(big.Int).Mul(big.NewInt(amount), big.NewInt(bps))
	v.Quo(v, big.NewInt(10_000))
	return v.Int64()
}
