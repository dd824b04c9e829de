package loans

import (
	"math/big"
	"testing"
)

func TestNormalizeToken(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "usdh", want: "USDH"},
		{in: " USDH ", want: "USDH"},
		{in: "usd1", want: "USD1"},
		{in: "", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "toolongsymbol", wantErr: true},
		{in: "usd-h", wantErr: true},
		{in: "usd h", wantErr: true},
	}
	for _, tc := range cases {
		got, err := NormalizeToken(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("NormalizeToken(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NormalizeToken(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestOrderStatusClassification(t *testing.T) {
	for _, s := range []OrderStatus{StatusOpen, StatusFunded, StatusCancelled, StatusRepaid, StatusLiquidated} {
		if !s.Valid() {
			t.Fatalf("expected %s to be valid", s)
		}
	}
	if OrderStatus(99).Valid() {
		t.Fatalf("expected out-of-range status to be invalid")
	}
	if StatusOpen.Closed() || StatusFunded.Closed() {
		t.Fatalf("open and funded must not be terminal")
	}
	for _, s := range []OrderStatus{StatusCancelled, StatusRepaid, StatusLiquidated} {
		if !s.Closed() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
}

func TestOrderCloneIsDeep(t *testing.T) {
	order := &Order{
		Seq:                  7,
		Token:                "USDH",
		Principal:            big.NewInt(1_000),
		Interest:             big.NewInt(50),
		AdditionalCollateral: big.NewInt(200),
		Status:               StatusFunded,
	}
	clone := order.Clone()
	clone.Principal.SetInt64(1)
	clone.Status = StatusRepaid
	if order.Principal.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("clone mutation leaked into original principal")
	}
	if order.Status != StatusFunded {
		t.Fatalf("clone mutation leaked into original status")
	}
}

func TestMarketCloneNormalizesNilBuffer(t *testing.T) {
	market := &Market{Token: "USDH"}
	clone := market.Clone()
	if clone.TotalLockedBuffer == nil || clone.TotalLockedBuffer.Sign() != 0 {
		t.Fatalf("expected zero locked buffer on clone")
	}
	var nilMarket *Market
	if nilMarket.Clone() != nil {
		t.Fatalf("expected nil clone of nil market")
	}
}
