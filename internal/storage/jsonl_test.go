package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"farmLedger/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.jsonl")
	s := NewJsonlStorage(path)

	if err := s.PutResultBatch(nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("empty batch created the file")
	}

	first := []model.OpResult{{Seq: 1, Op: model.OpDeposit, OK: true, Outputs: map[string]string{"reward_paid": "0"}}}
	second := []model.OpResult{{Seq: 2, Op: model.OpWithdraw, Error: "withdraw: insufficient stake"}}
	if err := s.PutResultBatch(first); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.PutResultBatch(second); err != nil {
		t.Fatalf("second batch after close: %v", err)
	}
	defer s.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var got model.OpResult
	if err := json.Unmarshal([]byte(lines[1]), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Seq != 2 || got.OK || got.Error == "" {
		t.Fatalf("result mismatch: %+v", got)
	}
}
