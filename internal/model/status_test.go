package model

import "testing"

func TestLeadTransitions(t *testing.T) {
	allowed := []struct{ from, to LeadStatus }{
		{LeadStatusNew, LeadStatusResearching},
		{LeadStatusResearching, LeadStatusQualified},
		{LeadStatusResearching, LeadStatusDisqualified},
		{LeadStatusQualified, LeadStatusSequencing},
		{LeadStatusQualified, LeadStatusResearching},
		{LeadStatusSequencing, LeadStatusContacted},
		{LeadStatusContacted, LeadStatusSequencing},
		{LeadStatusContacted, LeadStatusReplied},
		{LeadStatusContacted, LeadStatusCompleted},
		{LeadStatusReplied, LeadStatusConverted},
		{LeadStatusCompleted, LeadStatusSequencing},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransition(tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to LeadStatus }{
		{LeadStatusNew, LeadStatusSequencing},
		{LeadStatusNew, LeadStatusQualified},
		{LeadStatusDisqualified, LeadStatusQualified},
		{LeadStatusConverted, LeadStatusSequencing},
		{LeadStatusReplied, LeadStatusContacted},
		{LeadStatusQualified, LeadStatusContacted},
	}
	for _, tc := range forbidden {
		if tc.from.CanTransition(tc.to) {
			t.Errorf("expected %s -> %s to be forbidden", tc.from, tc.to)
		}
	}

	// Self-transition is always a no-op, never an error.
	if !LeadStatusContacted.CanTransition(LeadStatusContacted) {
		t.Error("self transition should be allowed")
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []LeadStatus{LeadStatusDisqualified, LeadStatusConverted, LeadStatusReplied} {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []LeadStatus{LeadStatusNew, LeadStatusSequencing, LeadStatusCompleted} {
		if s.Terminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
	}
}

func TestDelayDaysForFillForward(t *testing.T) {
	c := &Campaign{SequenceTouches: 4, TouchDelays: []int{2, 3}}

	cases := map[int]int{1: 2, 2: 3, 3: 3, 4: 3}
	for touch, want := range cases {
		if got := c.DelayDaysFor(touch); got != want {
			t.Errorf("DelayDaysFor(%d) = %d, want %d", touch, got, want)
		}
	}

	empty := &Campaign{SequenceTouches: 3}
	if got := empty.DelayDaysFor(1); got != 3 {
		t.Errorf("empty delays should default to 3, got %d", got)
	}
}

func TestDraftSubject(t *testing.T) {
	d := &Draft{SubjectOptions: []string{"first", "second"}}
	if d.Subject() != "first" {
		t.Errorf("expected first option, got %q", d.Subject())
	}

	chosen := "second"
	d.SelectedSubject = &chosen
	if d.Subject() != "second" {
		t.Errorf("expected selected subject, got %q", d.Subject())
	}

	if (&Draft{}).Subject() != "" {
		t.Error("draft without subjects should return empty string")
	}
}
