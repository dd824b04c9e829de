package loans

import (
	"math/big"
	"testing"

	"nftloans/core/events"
)

type captureEmitter struct {
	types []string
}

func (c *captureEmitter) Emit(evt events.Event) {
	c.types = append(c.types, evt.EventType())
}

func TestLifecycleEmitsEvents(t *testing.T) {
	fx := newFixture(t)
	emitter := &captureEmitter{}
	fx.engine.SetEmitter(emitter)

	order := fx.createOrder(t)
	fx.fundOrder(t, order.Seq)
	fx.now += 100
	if err := fx.engine.RepayOrder("USDH", order.Seq, fx.borrower); err != nil {
		t.Fatalf("RepayOrder: %v", err)
	}

	want := []string{EventTypeOrderCreated, EventTypeOrderFunded, EventTypeOrderRepaid}
	if len(emitter.types) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), emitter.types)
	}
	for i, eventType := range want {
		if emitter.types[i] != eventType {
			t.Fatalf("event %d: expected %s, got %s", i, eventType, emitter.types[i])
		}
	}
}

func TestOrderEventAttributes(t *testing.T) {
	order := &Order{
		Seq:                  3,
		Token:                "USDH",
		Borrower:             newTestAddress(0x01),
		Principal:            big.NewInt(1_000),
		Interest:             big.NewInt(50),
		PeriodSeconds:        86_400,
		AdditionalCollateral: big.NewInt(200),
		Status:               StatusOpen,
	}
	evt := NewOrderCreatedEvent(order)
	if evt.Type != EventTypeOrderCreated {
		t.Fatalf("unexpected event type %s", evt.Type)
	}
	if evt.Attributes["seq"] != "3" || evt.Attributes["principal"] != "1000" || evt.Attributes["status"] != "open" {
		t.Fatalf("unexpected attributes %v", evt.Attributes)
	}
	if _, ok := evt.Attributes["lender"]; ok {
		t.Fatalf("unfunded order must not carry a lender attribute")
	}
	if _, ok := evt.Attributes["fundedAt"]; ok {
		t.Fatalf("unfunded order must not carry a fundedAt attribute")
	}

	order.Lender = newTestAddress(0x02)
	order.FundedAt = 42
	order.Status = StatusFunded
	funded := NewOrderFundedEvent(order)
	if funded.Attributes["fundedAt"] != "42" {
		t.Fatalf("expected fundedAt attribute, got %v", funded.Attributes)
	}
	if funded.Attributes["status"] != "funded" {
		t.Fatalf("expected funded status attribute, got %v", funded.Attributes)
	}
}
