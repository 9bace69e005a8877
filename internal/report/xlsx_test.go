package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/avanta-group/claims-cli/internal/model"
)

func sampleResult() *model.ScreeningResult {
	return &model.ScreeningResult{
		RunID:   "run-1",
		ClaimID: "clm-1",
		Gate:    model.ReconciliationGate{Status: model.GateWarn, ConflictCount: 1},
		Coverage: &model.CoverageAnalysisResult{
			ClaimID: "clm-1",
			Items: []model.LineItemCoverage{
				{
					Item:            model.LineItem{Description: "Turbolader", Type: model.ItemParts, TotalPrice: 2200},
					Status:          model.StatusCovered,
					MatchedCategory: "engine",
					Method:          model.MethodKeyword,
					Confidence:      0.9,
					CoveredAmount:   2200,
				},
				{
					Item:             model.LineItem{Description: "Abschleppen", Type: model.ItemFee, TotalPrice: 180},
					Status:           model.StatusNotCovered,
					Method:           model.MethodRule,
					Confidence:       1.0,
					NotCoveredAmount: 180,
					Rationale:        `exclusion keyword "abschleppen"`,
				},
			},
			CoveredTotal:    2200,
			NotCoveredTotal: 180,
			ClaimTotal:      2380,
		},
		Payout: &model.PayoutBreakdown{
			CoveredPartsGross: 2200,
			AppliedPartsRate:  0.7,
			PreCapSubtotal:    1540,
			CappedSubtotal:    1540,
			VATPercent:        8.1,
			VATAmount:         124.74,
			VATApplied:        true,
			SubtotalWithVAT:   1664.74,
			DeductibleAmount:  300,
			FinalPayout:       1364.74,
		},
		CoveredShare: 0.92,
		HardFails:    []model.HardFail{{Reason: model.HardFailMileageLimit, Detail: "odometer over limit"}},
		AutoReject:   true,
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claim.xlsx")
	require.NoError(t, WriteXLSX(sampleResult(), path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)
	assert.Equal(t, "Coverage", f.Sheets[0].Name)
	assert.Equal(t, "Payout", f.Sheets[1].Name)

	// Header + two items + totals row.
	require.Len(t, f.Sheets[0].Rows, 4)
	assert.Equal(t, "Turbolader", f.Sheets[0].Rows[1].Cells[0].Value)
	assert.Equal(t, "covered", f.Sheets[0].Rows[1].Cells[3].Value)
	assert.Equal(t, "Abschleppen", f.Sheets[0].Rows[2].Cells[0].Value)

	// Payout sheet carries the full breakdown.
	var keys []string
	for _, row := range f.Sheets[1].Rows {
		if len(row.Cells) > 0 {
			keys = append(keys, row.Cells[0].Value)
		}
	}
	assert.Contains(t, keys, "Final payout")
	assert.Contains(t, keys, "Hard fail: mileage_limit_exceeded")
}

func TestWriteXLSXNilResult(t *testing.T) {
	err := WriteXLSX(nil, filepath.Join(t.TempDir(), "x.xlsx"))
	assert.Error(t, err)
}
