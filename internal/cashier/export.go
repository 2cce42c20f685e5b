package cashier

import (
	"bytes"
	"fmt"

	"restoran-pos/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Özet"
	paymentsSheet = "Ödemeler"
)

var methodLabels = map[models.PaymentMethod]string{
	models.PaymentCash:     "Nakit",
	models.PaymentCard:     "Kart",
	models.PaymentTransfer: "Havale",
}

// ReportWorkbook vardiya raporunu iki sayfalı bir Excel dosyasına yazar
func ReportWorkbook(r ShiftReport) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}

	closedAt := "-"
	closingFloat := "-"
	if r.Shift.ClosedAt != nil {
		closedAt = r.Shift.ClosedAt.Format("2006-01-02 15:04")
	}
	if r.Shift.ClosingFloat.Valid {
		closingFloat = r.Shift.ClosingFloat.Decimal.StringFixed(2)
	}

	summary := [][]any{
		{"Vardiya", r.Shift.ID},
		{"Kasiyer", r.Shift.User.DisplayName()},
		{"Durum", string(r.Shift.Status)},
		{"Açılış", r.Shift.OpenedAt.Format("2006-01-02 15:04")},
		{"Kapanış", closedAt},
		{"Açılış kasası", r.Shift.OpeningFloat.StringFixed(2)},
		{"Kapanış kasası", closingFloat},
		{"Nakit satış", r.Sales.Cash.StringFixed(2)},
		{"Kart satış", r.Sales.Card.StringFixed(2)},
		{"Havale satış", r.Sales.Transfer.StringFixed(2)},
		{"Toplam satış", r.Sales.Total.StringFixed(2)},
		{"Ödeme sayısı", r.Sales.Count},
	}
	if r.ExpectedCash != nil {
		summary = append(summary,
			[]any{"Beklenen nakit", r.ExpectedCash.StringFixed(2)},
			[]any{"Fark", r.Discrepancy.StringFixed(2)},
		)
	}

	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 18); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(paymentsSheet); err != nil {
		return nil, err
	}
	header := []any{"Fiş", "Komanda", "Yöntem", "Tutar", "Alınan", "Para üstü", "Zaman"}
	if err := f.SetSheetRow(paymentsSheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, p := range r.Payments {
		row := []any{
			p.TicketCode,
			p.OrderID,
			methodLabels[p.Method],
			p.Amount.InexactFloat64(),
			p.Received.InexactFloat64(),
			p.Change.InexactFloat64(),
			p.PaidAt.Format("2006-01-02 15:04:05"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(paymentsSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(paymentsSheet, "A", "A", 38); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("excel yazılamadı: %w", err)
	}
	return buf, nil
}
