package events

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSummaryIncrementMessageRoundTrip(t *testing.T) {
	amount, _ := decimal.NewFromString("123.45")
	msg := NewSummaryIncrementMessage("u1", "2026-03", "Deseos", amount)

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := SummaryIncrementMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	if got.UserID != "u1" || got.MonthKey != "2026-03" || got.SpendType != "Deseos" {
		t.Errorf("round trip changed fields: %+v", got)
	}
	delta, err := got.Delta()
	if err != nil {
		t.Fatalf("Delta: %v", err)
	}
	if !delta.Equal(amount) {
		t.Errorf("delta = %s, want exact %s after transit", delta, amount)
	}
}

func TestDeltaRejectsMalformedAmount(t *testing.T) {
	msg := &SummaryIncrementMessage{Amount: "not-a-number"}
	if _, err := msg.Delta(); err == nil {
		t.Fatal("malformed amount accepted")
	}
}
