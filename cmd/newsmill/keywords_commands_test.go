package main

import (
	"testing"
)

func TestKeywordsAddAndList(t *testing.T) {
	_, configPath := newCLIConfig(t)

	out, _, err := runCLI(t, configPath, "keywords", "add", "AI News!!", "ai news", "Quantum Update")
	if err != nil {
		t.Fatalf("keywords add: %v", err)
	}
	requireContains(t, out, "Added 2 keywords")

	out, _, err = runCLI(t, configPath, "keywords", "list")
	if err != nil {
		t.Fatalf("keywords list: %v", err)
	}
	requireContains(t, out, "ai-news")
	requireContains(t, out, "quantum-update")
}

func TestKeywordsListEmpty(t *testing.T) {
	_, configPath := newCLIConfig(t)

	out, _, err := runCLI(t, configPath, "keywords", "list")
	if err != nil {
		t.Fatalf("keywords list: %v", err)
	}
	requireContains(t, out, "Keyword queue is empty")
}
