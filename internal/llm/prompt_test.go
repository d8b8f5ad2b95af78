package llm

import (
	"errors"
	"testing"

	"github.com/csheth/sanctuary/internal/i18n"
)

func TestParseAxioms(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		count int
	}{
		{name: "bare array", raw: `[{"term":"A","definition":"a"},{"term":"B","definition":"b"}]`, count: 2},
		{name: "wrapper", raw: `{"axioms":[{"term":"A","definition":"a"}]}`, count: 1},
		{name: "fenced", raw: "```json\n[{\"term\":\"A\",\"definition\":\"a\"}]\n```", count: 1},
		{name: "prose around array", raw: "Here you go: [{\"term\":\"A\",\"definition\":\"a\"}] enjoy", count: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			axioms, err := parseAxioms(tc.raw)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if len(axioms) != tc.count {
				t.Fatalf("got %d axioms want %d", len(axioms), tc.count)
			}
		})
	}
}

func TestParseAxiomsRejectsIncompleteEntries(t *testing.T) {
	cases := map[string]string{
		"empty":              "",
		"empty array":        "[]",
		"missing definition": `[{"term":"A","definition":"a"},{"term":"B"}]`,
		"blank term":         `[{"term":"  ","definition":"a"}]`,
		"not json":           "six lovely axioms",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := parseAxioms(raw); !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestParseAxiomsPreservesOrder(t *testing.T) {
	axioms, err := parseAxioms(`[{"term":"Z","definition":"z"},{"term":"A","definition":"a"},{"term":"M","definition":"m"}]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := axioms[0].Term + axioms[1].Term + axioms[2].Term
	if got != "ZAM" {
		t.Fatalf("order not preserved: %s", got)
	}
}

func TestBuildExtractionPrompt(t *testing.T) {
	want := "Based on your deep authorial analysis, synthesize 6 'Knowledge Axioms'. Output in English in JSON format."
	if got := buildExtractionPrompt(i18n.English); got != want {
		t.Fatalf("unexpected prompt:\n%s", got)
	}
}

func TestNormalizeReply(t *testing.T) {
	if normalizeReply("   ") != SilentReply {
		t.Fatal("blank reply should become the silent reply")
	}
	if normalizeReply(" ok ") != "ok" {
		t.Fatal("reply should be trimmed")
	}
}
