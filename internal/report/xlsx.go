// Package report renders screening results for adjusters.
package report

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/avanta-group/claims-cli/internal/model"
)

// WriteXLSX exports a screening result to an XLSX workbook with a line-item
// coverage sheet and a payout breakdown sheet.
func WriteXLSX(result *model.ScreeningResult, path string) error {
	if result == nil {
		return eris.New("report: nil result")
	}

	f := xlsx.NewFile()

	if err := addCoverageSheet(f, result); err != nil {
		return err
	}
	if err := addPayoutSheet(f, result); err != nil {
		return err
	}

	return eris.Wrapf(f.Save(path), "report: save %s", path)
}

func addCoverageSheet(f *xlsx.File, result *model.ScreeningResult) error {
	sheet, err := f.AddSheet("Coverage")
	if err != nil {
		return eris.Wrap(err, "report: add coverage sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"Description", "Type", "Price", "Status", "Category",
		"Method", "Confidence", "Covered", "Not covered", "Rationale",
	} {
		header.AddCell().SetString(h)
	}

	if result.Coverage != nil {
		for _, lc := range result.Coverage.Items {
			row := sheet.AddRow()
			row.AddCell().SetString(lc.Item.Description)
			row.AddCell().SetString(string(lc.Item.Type))
			row.AddCell().SetFloatWithFormat(lc.Item.TotalPrice, "0.00")
			row.AddCell().SetString(string(lc.Status))
			row.AddCell().SetString(lc.MatchedCategory)
			row.AddCell().SetString(string(lc.Method))
			row.AddCell().SetFloatWithFormat(lc.Confidence, "0.00")
			row.AddCell().SetFloatWithFormat(lc.CoveredAmount, "0.00")
			row.AddCell().SetFloatWithFormat(lc.NotCoveredAmount, "0.00")
			row.AddCell().SetString(lc.Rationale)
		}

		totals := sheet.AddRow()
		totals.AddCell().SetString("Total")
		totals.AddCell()
		totals.AddCell().SetFloatWithFormat(result.Coverage.ClaimTotal, "0.00")
		totals.AddCell()
		totals.AddCell()
		totals.AddCell()
		totals.AddCell()
		totals.AddCell().SetFloatWithFormat(result.Coverage.CoveredTotal, "0.00")
		totals.AddCell().SetFloatWithFormat(result.Coverage.NotCoveredTotal, "0.00")
	}
	return nil
}

func addPayoutSheet(f *xlsx.File, result *model.ScreeningResult) error {
	sheet, err := f.AddSheet("Payout")
	if err != nil {
		return eris.Wrap(err, "report: add payout sheet")
	}

	addKV := func(key string, value any) {
		row := sheet.AddRow()
		row.AddCell().SetString(key)
		switch v := value.(type) {
		case float64:
			row.AddCell().SetFloatWithFormat(v, "0.00")
		case bool:
			row.AddCell().SetBool(v)
		default:
			row.AddCell().SetString(fmt.Sprintf("%v", v))
		}
	}

	addKV("Claim", result.ClaimID)
	addKV("Run", result.RunID)
	addKV("Policy version", result.Policy)
	addKV("Gate", string(result.Gate.Status))
	addKV("Covered share", result.CoveredShare)
	addKV("Materiality flag", result.MaterialityFlag)
	addKV("Auto reject", result.AutoReject)
	for _, hf := range result.HardFails {
		addKV("Hard fail: "+string(hf.Reason), hf.Detail)
	}

	if p := result.Payout; p != nil {
		addKV("Covered parts gross", p.CoveredPartsGross)
		addKV("Covered labor gross", p.CoveredLaborGross)
		addKV("Applied parts rate", p.AppliedPartsRate)
		addKV("Applied labor rate", p.AppliedLaborRate)
		addKV("Pre-cap subtotal", p.PreCapSubtotal)
		addKV("Capped subtotal", p.CappedSubtotal)
		addKV("Cap applied", p.CapApplied)
		addKV("VAT percent", p.VATPercent)
		addKV("VAT amount", p.VATAmount)
		addKV("Subtotal with VAT", p.SubtotalWithVAT)
		addKV("Deductible", p.DeductibleAmount)
		addKV("Final payout", p.FinalPayout)
	}
	return nil
}
