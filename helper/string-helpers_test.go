package helper

import (
	"encoding/json"
	"testing"

	"github.com/relloyd/songlake/logger"
)

func TestCsvStringOfTokensToMap(t *testing.T) {
	log := logger.NewLogger("songlake", "info", true)
	// Test 1
	input := "fieldA:valA"
	m, err := CsvStringOfTokensToMap(log, input)
	if err != nil {
		t.Fatal(err)
	}
	expected := "valA"
	got := m["fieldA"]
	if got != expected {
		t.Fatalf("expected %q; got %q", expected, got)
	}
	// Test 2
	input = "\"userId:user_id\",\"firstName:first_name\""
	m, err = CsvStringOfTokensToMap(log, input)
	if err != nil {
		t.Fatal(err)
	}
	expected = "user_id"
	got = m["userId"]
	if got != expected {
		t.Fatalf("expected %q; got %q", expected, got)
	}
}

func TestTokensToOrderedMap(t *testing.T) {
	log := logger.NewLogger("songlake", "info", true)
	// Test 1
	log.Info("Test 1, confirm empty string produces empty ordered map")
	input := ""
	om := TokensToOrderedMap(input)
	if om.Len() != 0 {
		t.Fatal("expected empty ordered map but got something")
	}
}

func TestInt64FromInterface(t *testing.T) {
	log := logger.NewLogger("songlake", "info", true)
	log.Info("Test 1, whole numbers coerce across input types")
	for _, v := range []interface{}{int(42), int64(42), float64(42), json.Number("42"), "42"} {
		got, ok := Int64FromInterface(v)
		if !ok || got != 42 {
			t.Fatalf("expected 42 from %T(%v); got %v ok=%v", v, v, got, ok)
		}
	}
	log.Info("Test 2, fractional floats are rejected rather than truncated")
	if _, ok := Int64FromInterface(float64(42.5)); ok {
		t.Fatal("expected !ok for fractional float")
	}
	log.Info("Test 3, junk is rejected")
	if _, ok := Int64FromInterface("NextSong"); ok {
		t.Fatal("expected !ok for non-numeric string")
	}
}

func TestFloat64FromInterface(t *testing.T) {
	got, ok := Float64FromInterface(json.Number("218.93179"))
	if !ok || got != 218.93179 {
		t.Fatalf("expected 218.93179; got %v ok=%v", got, ok)
	}
	if _, ok := Float64FromInterface(struct{}{}); ok {
		t.Fatal("expected !ok for unsupported type")
	}
}
