package model

import "testing"

func TestKnownEvent(t *testing.T) {
	for _, ev := range AllEvents {
		if !KnownEvent(ev) {
			t.Errorf("KnownEvent(%q) = false", ev)
		}
	}
	if KnownEvent("order.deleted") {
		t.Error("KnownEvent accepted an unregistered event name")
	}
}

func TestWantsEvent(t *testing.T) {
	cfg := WebhookConfig{Events: []string{EventOrderReady, EventPickupConfirmed}}
	if !cfg.WantsEvent(EventOrderReady) {
		t.Error("subscription must cover its listed events")
	}
	if cfg.WantsEvent(EventOrderCreated) {
		t.Error("subscription must not cover unlisted events")
	}
}
