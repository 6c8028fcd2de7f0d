package main

import (
	"context"
	"fmt"
	"strings"

	advisorrpc "microstep/internal/modules/focus/adapter/out/rpc"

	hclog "github.com/hashicorp/go-hclog"
)

// server is a deterministic advisor. It shrinks whatever the user is facing
// into something that fits in two minutes.
type server struct {
	logger hclog.Logger
}

func (s *server) SuggestFirstActions(_ context.Context, in *advisorrpc.TaskContext) (*advisorrpc.SuggestionsResponse, error) {
	title := subject(in)
	if len(in.History) > 0 {
		last := in.History[len(in.History)-1]
		return &advisorrpc.SuggestionsResponse{Suggestions: []string{
			fmt.Sprintf("Do the next smallest piece after %q", last),
			fmt.Sprintf("Re-read what you just did on %s for one minute", title),
			"Write down the very next physical action",
		}}, nil
	}
	return &advisorrpc.SuggestionsResponse{Suggestions: []string{
		fmt.Sprintf("Open whatever you need for %s", title),
		fmt.Sprintf("Write one sentence about %s", title),
		"Set a two minute timer and start anywhere",
	}}, nil
}

func (s *server) SuggestStuckCauses(_ context.Context, in *advisorrpc.TaskContext) (*advisorrpc.SuggestionsResponse, error) {
	return &advisorrpc.SuggestionsResponse{Suggestions: []string{
		"It feels too big",
		"I don't know where to start",
		fmt.Sprintf("I'm missing something for %q", strings.TrimSpace(in.CurrentAction)),
		"I'm tired",
		"Something else is on my mind",
	}}, nil
}

func (s *server) SuggestPivot(_ context.Context, in *advisorrpc.PivotRequest) (*advisorrpc.PivotResponse, error) {
	reason := strings.ToLower(strings.TrimSpace(in.Reason))
	action := strings.TrimSpace(in.Context.CurrentAction)
	if action == "" {
		action = subject(&in.Context)
	}
	s.logger.Debug("pivot requested", "session_id", in.Context.SessionID, "reason", reason)

	switch {
	case containsAny(reason, "big", "many", "much", "overwhelm"):
		return &advisorrpc.PivotResponse{
			Empathy: "That is a lot to hold at once.",
			Pivots: []string{
				fmt.Sprintf("Do only the first tenth of %q", action),
				"List the pieces without doing any of them",
				"Pick the single easiest piece and do just that",
			},
		}, nil
	case containsAny(reason, "start", "where", "how"):
		return &advisorrpc.PivotResponse{
			Empathy: "Not knowing the first move is the hardest part.",
			Pivots: []string{
				fmt.Sprintf("Write a messy draft of %q", action),
				"Look at one example of something similar",
				"Ask yourself what done looks like, in one line",
			},
		}, nil
	case containsAny(reason, "tired", "energy", "sleep"):
		return &advisorrpc.PivotResponse{
			Empathy: "Low energy is real, and it is fine to go smaller.",
			Pivots: []string{
				"Stand up and drink some water, then come back",
				fmt.Sprintf("Spend sixty seconds on %q", action),
			},
		}, nil
	default:
		return &advisorrpc.PivotResponse{
			Empathy: "Getting stuck happens. Let's make it smaller.",
			Pivots: []string{
				fmt.Sprintf("Do a two minute version of %q", action),
				"Write down what is blocking you",
			},
		}, nil
	}
}

func subject(in *advisorrpc.TaskContext) string {
	if title := strings.TrimSpace(in.TaskTitle); title != "" {
		return title
	}
	return "this task"
}

func containsAny(s string, words ...string) bool {
	for _, word := range words {
		if strings.Contains(s, word) {
			return true
		}
	}
	return false
}
