package escalate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestChainLogAppendAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	log, err := OpenChainLog(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	for i := 0; i < 5; i++ {
		ev := NewEvent(EventEscalation, "1.0", "analyst", "missing required fields", "fallback")
		if err := log.Send(ev); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if err := log.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("chain invalid: %s (line %d)", result.Error, result.ErrorLine)
	}
	if result.Lines != 5 {
		t.Errorf("lines = %d, want 5", result.Lines)
	}
}

func TestChainLogResumesExistingChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	log, err := OpenChainLog(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := log.Send(NewEvent(EventError, "1.0", "analyst", "agent call failed", "fallback")); err != nil {
		t.Fatalf("send: %v", err)
	}
	log.Close()

	// Reopen and append; the chain must continue from the tail.
	log, err = OpenChainLog(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := log.Send(NewEvent(EventFlagged, "1.0", "analyst", "decision flip", "flag_for_review")); err != nil {
		t.Fatalf("send after reopen: %v", err)
	}
	log.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("chain broke across reopen: %s (line %d)", result.Error, result.ErrorLine)
	}
	if result.Lines != 2 {
		t.Errorf("lines = %d, want 2", result.Lines)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	log, err := OpenChainLog(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := log.Send(NewEvent(EventEscalation, "1.0", "analyst", "r", "fallback")); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	log.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	tampered := strings.Replace(string(data), `"reason":"r"`, `"reason":"x"`, 1)
	if tampered == string(data) {
		t.Fatal("tamper replacement did not apply")
	}
	if err := os.WriteFile(path, []byte(tampered), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	result := Verify(path)
	if result.Valid {
		t.Fatal("tampered log verified as valid")
	}
	if result.ErrorLine != 2 {
		t.Errorf("error line = %d, want 2", result.ErrorLine)
	}
}

func TestVerifyRejectsForgedGenesis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	line := `{"id":"a","ts":"t","event_type":"escalation","contract_version":"1.0","role":"r","reason":"x","action":"fallback","prev_hash":"sha256:deadbeef"}`
	if err := os.WriteFile(path, []byte(line+"\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	result := Verify(path)
	if result.Valid {
		t.Fatal("forged genesis accepted")
	}
	if result.ErrorLine != 1 {
		t.Errorf("error line = %d, want 1", result.ErrorLine)
	}
}
