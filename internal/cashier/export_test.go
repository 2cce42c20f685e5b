package cashier

import (
	"testing"
	"time"

	"restoran-pos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func summaryValues(t *testing.T, r ShiftReport) map[string]string {
	t.Helper()
	buf, err := ReportWorkbook(r)
	if err != nil {
		t.Fatalf("ReportWorkbook: %v", err)
	}
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("excel okunamadı: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(summarySheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		if len(row) == 2 {
			out[row[0]] = row[1]
		}
	}
	return out
}

func TestReportWorkbook_ClosedShiftReconciliation(t *testing.T) {
	opened := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	closed := opened.Add(8 * time.Hour)
	expected := decimal.RequireFromString("125")
	diff := decimal.RequireFromString("-5")

	r := ShiftReport{
		Shift: models.Shift{
			ID:           7,
			User:         models.User{Username: "kasa", Name: "Ayşe"},
			Status:       models.ShiftClosed,
			OpeningFloat: decimal.RequireFromString("100"),
			ClosingFloat: decimal.NewNullDecimal(decimal.RequireFromString("120")),
			OpenedAt:     opened,
			ClosedAt:     &closed,
		},
		Sales: SalesTotals{
			Cash:  decimal.RequireFromString("25"),
			Card:  decimal.RequireFromString("40"),
			Total: decimal.RequireFromString("65"),
			Count: 2,
		},
		ExpectedCash: &expected,
		Discrepancy:  &diff,
	}

	got := summaryValues(t, r)
	tests := []struct {
		label string
		want  string
	}{
		{"Kasiyer", "Ayşe"},
		{"Açılış kasası", "100.00"},
		{"Kapanış kasası", "120.00"},
		{"Nakit satış", "25.00"},
		{"Toplam satış", "65.00"},
		{"Beklenen nakit", "125.00"},
		{"Fark", "-5.00"},
	}
	for _, tt := range tests {
		if got[tt.label] != tt.want {
			t.Errorf("%s = %q, want %q", tt.label, got[tt.label], tt.want)
		}
	}
}

func TestReportWorkbook_OpenShiftHasNoReconciliation(t *testing.T) {
	r := ShiftReport{
		Shift: models.Shift{
			ID:           3,
			User:         models.User{Username: "kasa"},
			Status:       models.ShiftOpen,
			OpeningFloat: decimal.RequireFromString("50"),
			OpenedAt:     time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC),
		},
	}

	got := summaryValues(t, r)
	if got["Kapanış"] != "-" || got["Kapanış kasası"] != "-" {
		t.Fatalf("açık vardiyada kapanış boş olmalı: %v", got)
	}
	if _, ok := got["Beklenen nakit"]; ok {
		t.Fatalf("açık vardiyada mutabakat satırı olmamalı: %v", got)
	}
	if got["Kasiyer"] != "kasa" {
		t.Fatalf("isim yoksa kullanıcı adı yazılmalı: %v", got["Kasiyer"])
	}
}
