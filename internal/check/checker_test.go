package check

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dshills/quizedit/internal/chat"
)

type stubProvider struct {
	reply string
	err   error
	got   chat.Request
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, req chat.Request) (string, error) {
	s.got = req
	return s.reply, s.err
}

func TestCheckerCheck(t *testing.T) {
	p := &stubProvider{reply: `{"fachlich":[{"original":"Das Werkstück wird","suggestion":"Das Lot wird","explanation":"Nur das Lot schmilzt."}],"sprachlich":[],"guidelines":[]}`}
	c := &Checker{Provider: p, Model: "test-model"}

	res, err := c.Check(context.Background(), document)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if res.Len() != 1 || res.Factual[0].Suggestion != "Das Lot wird" {
		t.Errorf("results = %+v", res)
	}

	req := p.got
	if req.Model != "test-model" || req.Temperature != Temperature || !req.JSON {
		t.Errorf("request = %+v", req)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != chat.RoleSystem || req.Messages[0].Content != DefaultSystemPrompt {
		t.Fatalf("messages = %+v", req.Messages)
	}
	if req.Messages[1].Content != "Hier ist die Aufgabe, die du prüfen sollst:\n\n---\n\n"+document {
		t.Errorf("user prompt = %q", req.Messages[1].Content)
	}
}

func TestCheckerCustomSystemPrompt(t *testing.T) {
	p := &stubProvider{reply: "{}"}
	c := &Checker{Provider: p, SystemPrompt: "Prüfe nur Sprache."}
	if _, err := c.Check(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if p.got.Messages[0].Content != "Prüfe nur Sprache." {
		t.Errorf("system prompt = %q", p.got.Messages[0].Content)
	}
}

func TestCheckerErrors(t *testing.T) {
	boom := errors.New("boom")

	if _, err := (&Checker{}).Check(context.Background(), "x"); !errors.Is(err, ErrNoProvider) {
		t.Errorf("nil provider error = %v", err)
	}

	res, err := (&Checker{Provider: &stubProvider{err: boom}}).Check(context.Background(), "x")
	if !errors.Is(err, boom) {
		t.Errorf("provider error = %v, want wrapped boom", err)
	}
	if res.Len() != 0 {
		t.Errorf("failed check must not invent findings: %+v", res)
	}

	_, err = (&Checker{Provider: &stubProvider{reply: "Alles gut!"}}).Check(context.Background(), "x")
	if !errors.Is(err, ErrMalformedResponse) || !strings.Contains(err.Error(), "Alles gut!") {
		t.Errorf("malformed error = %v", err)
	}
}
