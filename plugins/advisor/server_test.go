package main

import (
	"context"
	"strings"
	"testing"

	advisorrpc "microstep/internal/modules/focus/adapter/out/rpc"

	hclog "github.com/hashicorp/go-hclog"
)

func TestSuggestPivotMatchesReason(t *testing.T) {
	t.Parallel()
	s := &server{logger: hclog.NewNullLogger()}
	cases := []struct {
		reason  string
		empathy string
	}{
		{reason: "Too many messages", empathy: "a lot"},
		{reason: "don't know where to start", empathy: "first move"},
		{reason: "so tired", empathy: "Low energy"},
		{reason: "the cat", empathy: "Getting stuck"},
	}
	for _, tc := range cases {
		resp, err := s.SuggestPivot(context.Background(), &advisorrpc.PivotRequest{
			Context: advisorrpc.TaskContext{TaskTitle: "Clear inbox", CurrentAction: "reply to Ann"},
			Reason:  tc.reason,
		})
		if err != nil {
			t.Fatalf("%s: %v", tc.reason, err)
		}
		if !strings.Contains(resp.Empathy, tc.empathy) || len(resp.Pivots) == 0 {
			t.Fatalf("%s: unexpected response %#v", tc.reason, resp)
		}
	}
}

func TestSuggestFirstActionsUsesHistory(t *testing.T) {
	t.Parallel()
	s := &server{logger: hclog.NewNullLogger()}
	fresh, err := s.SuggestFirstActions(context.Background(), &advisorrpc.TaskContext{TaskTitle: "Write report"})
	if err != nil {
		t.Fatalf("first actions: %v", err)
	}
	if !strings.Contains(fresh.Suggestions[0], "Write report") {
		t.Fatalf("expected title in suggestion, got %v", fresh.Suggestions)
	}
	relay, err := s.SuggestFirstActions(context.Background(), &advisorrpc.TaskContext{TaskTitle: "Write report", History: []string{"open doc"}})
	if err != nil {
		t.Fatalf("first actions: %v", err)
	}
	if !strings.Contains(relay.Suggestions[0], "open doc") {
		t.Fatalf("expected last step in suggestion, got %v", relay.Suggestions)
	}
}
