package model

import (
	"encoding/json"
	"testing"
)

func TestOpRecordDecodeJournalLine(t *testing.T) {
	line := `{"seq":3,"ts":1700000000,"op":"deposit","caller":"0x1111111111111111111111111111111111111111","pool":0,"amount":"400"}`

	var rec OpRecord
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if rec.Seq != 3 || rec.Timestamp != 1700000000 || rec.Op != OpDeposit {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Pool != 0 || rec.Amount != "400" {
		t.Fatalf("unexpected pool/amount: %+v", rec)
	}
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("")
	if err != nil || v.Sign() != 0 {
		t.Fatalf("empty amount should be zero, got %v %v", v, err)
	}
	v, err = ParseAmount("2000000000000000000000000000")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if v.String() != "2000000000000000000000000000" {
		t.Fatalf("unexpected value %s", v)
	}
	if _, err := ParseAmount("12x"); err == nil {
		t.Fatalf("expected error for malformed amount")
	}
}

func TestFormatAmount(t *testing.T) {
	v, _ := ParseAmount("1728020000000000000000")
	if got := FormatAmount(v, 18); got != "1728.020000000000000000" {
		t.Fatalf("unexpected format %s", got)
	}
	if got := FormatAmount(nil, 18); got != "0" {
		t.Fatalf("nil should format as 0, got %s", got)
	}
}
