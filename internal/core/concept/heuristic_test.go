package concept

import (
	"context"
	"testing"
)

func TestHeuristicAnalyze(t *testing.T) {
	h := NewHeuristic()
	tests := []struct {
		name     string
		query    string
		concept  string
		isAction bool
	}{
		{"english_action", "How to configure the Kafka consumer?", "configure", true},
		{"korean_action", "PostgreSQL 마이그레이션 방법 알려줘", "마이그레이션", true},
		{"keeps_original_spelling", "Database Migration guide", "Migration", true},
		{"earliest_action_wins", "upgrade error on node", "upgrade", true},
		{"longest_action_at_position", "installation failed", "installation", true},
		{"ascii_action_needs_word_end", "deployer pipeline logs", "deployer", false},
		{"ascii_action_before_punctuation", "Why did deploy, again, fail?", "deploy", true},
		{"korean_noun_particle_stripped", "파이썬이 무엇인가요?", "파이썬", false},
		{"longest_token", "What is Kubernetes?", "Kubernetes", false},
		{"earliest_on_tie", "alpha gamma", "alpha", false},
		{"only_stop_words", "what is the", "", false},
		{"empty", "   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.Analyze(tt.query)
			if got.Concept != tt.concept || got.IsAction != tt.isAction {
				t.Fatalf("Analyze(%q) = %+v, want concept=%q action=%v", tt.query, got, tt.concept, tt.isAction)
			}
		})
	}
}

func TestHeuristicExtractNeverFails(t *testing.T) {
	got, err := NewHeuristic().Extract(context.Background(), "백업 복구 절차")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "백업" {
		t.Fatalf("expected 백업, got %q", got)
	}
}

func TestHeuristicIsActionWord(t *testing.T) {
	h := NewHeuristic()
	if !h.IsActionWord("Deploy") {
		t.Fatalf("expected Deploy to be an action word")
	}
	if h.IsActionWord("deployer") {
		t.Fatalf("partial match must not count as action word")
	}
	if h.IsActionWord("Kubernetes") {
		t.Fatalf("Kubernetes is not an action word")
	}
}

func TestStripParticle(t *testing.T) {
	tests := map[string]string{
		"파이썬이": "파이썬",
		"서버에서": "서버",
		"데이터로": "데이터",
		"사과":   "사과",
		"東京へ":  "東京",
		"nginx": "nginx",
	}
	for in, want := range tests {
		if got := StripParticle(in); got != want {
			t.Fatalf("StripParticle(%q) = %q, want %q", in, got, want)
		}
	}
}
