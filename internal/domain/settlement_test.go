package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stake(id, userID string, amount int64, p Prediction) Stake {
	return Stake{ID: id, UserID: userID, QuestionID: "q1", Amount: amount, Prediction: p}
}

func TestComputeSettlementDocumentedScenario(t *testing.T) {
	// Pool of 400: A 100 yes, B 100 no, C 200 yes. Resolve yes.
	stakes := []Stake{
		stake("s1", "alice", 100, PredictionYes),
		stake("s2", "bob", 100, PredictionNo),
		stake("s3", "carol", 200, PredictionYes),
	}

	s := ComputeSettlement("q1", "org1", stakes, PredictionYes, DefaultSplit)

	assert.Equal(t, int64(400), s.TotalPool)
	assert.Equal(t, int64(300), s.TotalWinning)
	assert.Equal(t, int64(190), s.OrganizationShare)

	require.Len(t, s.Payouts, 2)
	assert.Equal(t, "alice", s.Payouts[0].UserID)
	assert.Equal(t, int64(63), s.Payouts[0].Amount) // floor(190*100/300)
	assert.Equal(t, "carol", s.Payouts[1].UserID)
	assert.Equal(t, int64(126), s.Payouts[1].Amount) // floor(190*200/300)

	// Flooring left 1 unit; it lands on the platform fee.
	assert.Equal(t, int64(21), s.AdminFee)
	assert.Equal(t, s.TotalPool, s.AdminFee+s.OrganizationShare+s.Payouts[0].Amount+s.Payouts[1].Amount)
}

func TestComputeSettlementConservation(t *testing.T) {
	cases := []struct {
		name    string
		amounts []int64
		sides   []Prediction
		outcome Prediction
	}{
		{"even split", []int64{100, 100}, []Prediction{PredictionYes, PredictionNo}, PredictionYes},
		{"awkward thirds", []int64{7, 11, 13}, []Prediction{PredictionYes, PredictionYes, PredictionNo}, PredictionYes},
		{"single winner", []int64{1, 999}, []Prediction{PredictionYes, PredictionNo}, PredictionYes},
		{"primes", []int64{101, 103, 107, 109}, []Prediction{PredictionYes, PredictionNo, PredictionYes, PredictionNo}, PredictionNo},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stakes []Stake
			var pool int64
			for i, amt := range tc.amounts {
				stakes = append(stakes, Stake{ID: string(rune('a' + i)), UserID: "u", Amount: amt, Prediction: tc.sides[i]})
				pool += amt
			}

			s := ComputeSettlement("q", "o", stakes, tc.outcome, DefaultSplit)

			var distributed int64
			for _, p := range s.Payouts {
				distributed += p.Amount
			}
			assert.Equal(t, pool, s.AdminFee+s.OrganizationShare+distributed,
				"settlement must account for the pool exactly")
		})
	}
}

func TestComputeSettlementProportionality(t *testing.T) {
	stakes := []Stake{
		stake("s1", "small", 100, PredictionYes),
		stake("s2", "big", 200, PredictionYes),
		stake("s3", "loser", 300, PredictionNo),
	}

	s := ComputeSettlement("q1", "org1", stakes, PredictionYes, DefaultSplit)

	require.Len(t, s.Payouts, 2)
	assert.Equal(t, 2*s.Payouts[0].Amount, s.Payouts[1].Amount,
		"a stake twice as large pays out exactly twice as much")
}

func TestComputeSettlementZeroPool(t *testing.T) {
	s := ComputeSettlement("q1", "org1", nil, PredictionNo, DefaultSplit)

	assert.Zero(t, s.TotalPool)
	assert.Zero(t, s.AdminFee)
	assert.Zero(t, s.OrganizationShare)
	assert.Empty(t, s.Payouts)
}

func TestComputeSettlementLargePool(t *testing.T) {
	// A pool this size overflows int64 when multiplied by the bps factors
	// directly; every stage of the split must survive it.
	const huge = int64(4_000_000_000_000_000_000)
	stakes := []Stake{
		stake("s1", "whale", huge, PredictionYes),
		stake("s2", "minnow", 1, PredictionNo),
	}

	s := ComputeSettlement("q1", "org1", stakes, PredictionYes, DefaultSplit)

	assert.Equal(t, huge+1, s.TotalPool)
	assert.Positive(t, s.AdminFee)
	assert.Positive(t, s.OrganizationShare)

	var distributed int64
	for _, p := range s.Payouts {
		distributed += p.Amount
	}
	assert.Equal(t, s.TotalPool, s.AdminFee+s.OrganizationShare+distributed)
}

func TestComputeSettlementNoWinningStakes(t *testing.T) {
	stakes := []Stake{
		stake("s1", "alice", 150, PredictionNo),
		stake("s2", "bob", 50, PredictionNo),
	}

	s := ComputeSettlement("q1", "org1", stakes, PredictionYes, DefaultSplit)

	assert.Empty(t, s.Payouts)
	assert.Equal(t, int64(10), s.AdminFee)
	// The undistributable winners pool folds into the organization share.
	assert.Equal(t, int64(190), s.OrganizationShare)
	assert.Equal(t, s.TotalPool, s.AdminFee+s.OrganizationShare)
}
