package valuation

import (
	"testing"

	"fincast/pkg/core/dcf"
)

func TestSummarizeTickerKeepsPriceWhenValuationFails(t *testing.T) {
	price := 42.5
	row := summarizeTicker("ACME", &price, nil, errMissingFCF)

	if row.Price == nil || *row.Price != 42.5 {
		t.Errorf("expected price 42.5 on failed row, got %v", row.Price)
	}
	if row.Error == "" {
		t.Error("expected error message on failed row")
	}
	if row.FairValuePerShare != nil || row.UpsideVsPrice != nil {
		t.Error("expected nil fair value and upside on failed row")
	}
}

func TestSummarizeTickerCopiesValuation(t *testing.T) {
	fv, up, p := 100.0, 0.25, 80.0
	resp := &dcfResponse{Result: &dcf.Result{
		FairValuePerShare: &fv,
		Price:             &p,
		UpsideVsPrice:     &up,
	}}

	row := summarizeTicker("ACME", nil, resp, nil)

	if row.FairValuePerShare == nil || *row.FairValuePerShare != 100.0 {
		t.Errorf("expected fair value 100, got %v", row.FairValuePerShare)
	}
	if row.Price == nil || *row.Price != 80.0 {
		t.Errorf("expected price 80, got %v", row.Price)
	}
	if row.UpsideVsPrice == nil || *row.UpsideVsPrice != 0.25 {
		t.Errorf("expected upside 0.25, got %v", row.UpsideVsPrice)
	}
	if row.Error != "" {
		t.Errorf("expected no error, got %q", row.Error)
	}
}

func TestClampYears(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, 0},
		{-1, 0},
		{1, dcf.MinYears},
		{10, 10},
		{20, 20},
		{50, dcf.MaxYears},
	}
	for _, tc := range cases {
		if got := clampYears(tc.in); got != tc.want {
			t.Errorf("clampYears(%d): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}
