package tabledefinition

import (
	"encoding/json"
	"testing"
)

func TestCoercionFuncs(t *testing.T) {
	log.Info("Test 1 - string coercion handles strings and json numbers...")
	v, err := coerceString(json.Number("2018"))
	if err != nil || v != "2018" {
		t.Fatalf("expected \"2018\", got %v (%v)", v, err)
	}

	log.Info("Test 2 - int32 coercion rejects fractional and overflowing values...")
	if _, err := coerceInt32(11.5); err == nil {
		t.Fatal("expected error for fractional value")
	}
	if _, err := coerceInt32(int64(1) << 40); err == nil {
		t.Fatal("expected error for int32 overflow")
	}
	v, err = coerceInt32(float64(11))
	if err != nil || v != int32(11) {
		t.Fatalf("expected int32 11, got %#v (%v)", v, err)
	}

	log.Info("Test 3 - int64 coercion accepts json numbers...")
	v, err = coerceInt64(json.Number("1542837407796"))
	if err != nil || v != int64(1542837407796) {
		t.Fatalf("expected int64 1542837407796, got %#v (%v)", v, err)
	}

	log.Info("Test 4 - double coercion rejects text...")
	if _, err := coerceDouble("abc"); err == nil {
		t.Fatal("expected error for text in double column")
	}

	log.Info("Test 5 - unsupported data type lookup produces an error...")
	if _, err := parquetTypeConfig.getRecord("decimal"); err == nil {
		t.Fatal("expected error for unsupported data type")
	}
}
