package cmd

import (
	"os"
	"testing"
)

func TestGetCliFlag(t *testing.T) {
	fnGetConfig := func(key string, out interface{}) error {
		return nil
	}
	flagName := "mock"
	mockEnvVar := flagNameToEnvVar(flagName)
	expected := "envTest"
	d := "myDefault"
	// Test 1 - test default value applied to mock CLI flag.
	twelveFactorMode = false
	got := switches.getCliFlag(flagName, d, fnGetConfig)
	if got.val != d { // if no default was applied...
		t.Fatalf("test 1 failed: expected default value %v to be applied to mock CLI flag", got.val)
	}
	// Test 2 - fetch flag value from environment when it is not set - expect default value to be applied.
	twelveFactorMode = true // enable twelveFactorMode so that env variables are read.
	got = switches.getCliFlag(flagName, d, fnGetConfig)
	if got.val != d {
		t.Fatalf("test 2 failed: expected default value (%v) to be applied to mock CLI flag fetched via environment variable (%v)", got.val, mockEnvVar)
	}
	// Test 3 - fetch flag value from environment after setting it explicitly (requires twelveFactorMode).
	err := os.Setenv(mockEnvVar, expected)
	if err != nil {
		t.Fatalf("test 3 failed: unable to set environment variable %v", mockEnvVar)
	}
	got = switches.getCliFlag(flagName, d, fnGetConfig)
	if got.val != expected {
		t.Fatalf("test 3 failed: expected value (%v) to be applied to mock CLI flag (%v) fetched from environment variable (%v); got: %v", expected, flagName, mockEnvVar, got.val)
	}
	_ = os.Unsetenv(mockEnvVar)
	// Test 4 - config file values win over defaults when not in twelveFactorMode.
	twelveFactorMode = false
	fnGetConfigWithValue := func(key string, out interface{}) error {
		p := out.(*string)
		*p = "configValue"
		return nil
	}
	got = switches.getCliFlag(flagName, d, fnGetConfigWithValue)
	if got.val != "configValue" {
		t.Fatalf("test 4 failed: expected config value to be applied to mock CLI flag; got: %v", got.val)
	}
}

func TestGetCliFlagPanicsForUnregisteredName(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic for an unregistered CLI flag name")
		}
	}()
	_ = switches.getCliFlag("no-such-flag", "", func(key string, out interface{}) error { return nil })
}

func TestFlagNameToEnvVar(t *testing.T) {
	tests := map[string]string{
		"log-level":          "SL_LOG_LEVEL",
		"staging-dir":        "SL_STAGING_DIR",
		"abort-after-errors": "SL_ABORT_AFTER_ERRORS",
		"mock":               "SL_MOCK",
	}
	for name, expected := range tests {
		if got := flagNameToEnvVar(name); got != expected {
			t.Fatalf("expected %v; got %v", expected, got)
		}
	}
}
