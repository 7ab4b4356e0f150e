package cmd

import (
	"fmt"
	"os"
	"reflect"
	"testing"

	"github.com/relloyd/songlake/actions"
	"github.com/relloyd/songlake/config"
	"github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/logger"
)

var mockTwelveFactorActions = map[string]twelveFactorAction{
	"run-etl": {
		setupFunc: func(src string, tgt string) {
			runEtlCfg.SrcAndTgtConnections.SourceString.ConnectionObject = src
			runEtlCfg.SrcAndTgtConnections.TargetString.ConnectionObject = tgt
		},
		runnerFunc: getMock12FactorExecutor("run-etl"),
	},
}

var results = map[string]int{
	"run-etl":     0,
	"query-table": 0,
}

func getMock12FactorExecutor(action string) func() error {
	return func() error {
		results[action] = 1
		return nil
	}
}

func TestSetupTwelveFactorMode(t *testing.T) {
	if twelveFactorMode {
		t.Fatal("expected twelveFactorMode to be false; got true")
	}
	_ = os.Setenv(envVarTwelveFactorMode, "1")
	setupTwelveFactorMode()
	if !twelveFactorMode {
		t.Fatal("expected twelveFactorMode to be true; got false")
	}
	if lambdaMode {
		t.Fatal("expected lambdaMode to be false; got true")
	}
	_ = os.Setenv(envVarTwelveFactorMode, "lambda")
	setupTwelveFactorMode()
	if !twelveFactorMode || !lambdaMode {
		t.Fatal("expected twelveFactorMode and lambdaMode to be true")
	}
	lambdaMode = false
	_ = os.Setenv(envVarTwelveFactorMode, "1")
	setupTwelveFactorMode()
}

func TestExecute12FactorMode(t *testing.T) {
	log := logger.NewLogger("songlake", "error", true)

	var expected, got string
	srcObject := ""
	tgtObject := ""
	var osVars = map[string]string{
		"SL_LOG_LEVEL":        "error",
		"SL_SOURCE_DSN":       "s3://test.songlake.io/raw",
		"SL_TARGET_DSN":       "s3://test.songlake.io/lake",
		"SL_SOURCE_TYPE":      "s3",
		"SL_TARGET_TYPE":      "s3",
		"SL_SOURCE_OBJECT":    srcObject,
		"SL_TARGET_OBJECT":    tgtObject,
		"SL_SOURCE_S3_REGION": "eu-west-2",
		"SL_TARGET_S3_REGION": "eu-west-2",
		"SL_STACK_DUMP":       "1",
	}

	// Setup environment.
	_ = os.Setenv(envVarTwelveFactorMode, "1")
	for k, v := range osVars {
		_ = os.Setenv(k, v)
	}

	// Test 1 - action runner function is called
	log.Info("test 1 - run etl")
	_ = os.Setenv("SL_COMMAND", "run")
	_ = os.Setenv("SL_SUBCOMMAND", "etl")
	if err := execute12FactorMode(mockTwelveFactorActions); err != nil {
		t.Fatalf("test 1 failed: expected nil error got error: %v", err)
	}
	assert12FactorExecution(t, "test 1", "run-etl")

	// Test 2 - invalid command + subcommand
	log.Info("test 2 - invalid command subcommand")
	_ = os.Setenv("SL_COMMAND", "invalidCommand")
	_ = os.Setenv("SL_SUBCOMMAND", "invalidSubcommand")
	if err := execute12FactorMode(mockTwelveFactorActions); err == nil {
		t.Fatal("test 2 failed, expected: error; got: nil")
	}

	// Test 3 - connection objects are set correctly
	log.Info("test 3 - src and tgt connection strings are set correctly")
	_ = os.Setenv("SL_COMMAND", "run")
	_ = os.Setenv("SL_SUBCOMMAND", "etl")
	if err := execute12FactorMode(mockTwelveFactorActions); err != nil {
		t.Fatalf("test 3 failed: expected nil error got error: %v", err)
	}
	got = runEtlCfg.SrcAndTgtConnections.SourceString.ConnectionObject
	expected = fmt.Sprintf("%v.%v", defaultConnectionNameSource, srcObject)
	if got != expected {
		t.Fatalf("test 3 failed for source, expected: %v; got: %v", expected, got)
	}
	got = runEtlCfg.SrcAndTgtConnections.TargetString.ConnectionObject
	expected = fmt.Sprintf("%v.%v", defaultConnectionNameTarget, tgtObject)
	if got != expected {
		t.Fatalf("test 3 failed for target, expected: %v; got: %v", expected, got)
	}

	// Test 4 - all twelveFactorVars are fetched from the environment
	for k := range osVars { // for each hardcoded env var in this test...
		got = twelveFactorVars[k] // check that twelveFactorMode has picked it up!
		expected = osVars[k]
		if got != expected {
			t.Fatalf("expected %v = %v; got: %v", k, expected, got)
		}
	}

	// Test 5 - GetConnectionType uses default values.
	ts := TwelveFactorConnections{}
	got, err := ts.GetConnectionType("junk")
	if err == nil {
		t.Fatal("Test 5 junk failed: expected an error, got nil")
	}
	got, err = ts.GetConnectionType(defaultConnectionNameSource)
	expected = twelveFactorVars[envVarSourceType]
	if got != expected {
		t.Fatalf("Test 5 source failed: got %v, expected: %v", got, expected)
	}
	if err != nil {
		t.Fatal("Test 5 source failed: got error: ", err)
	}
	got, err = ts.GetConnectionType(defaultConnectionNameTarget)
	expected = twelveFactorVars[envVarTargetType]
	if got != expected {
		t.Fatalf("Test 5 target failed: got %v, expected: %v", got, expected)
	}
	if err != nil {
		t.Fatal("Test 5 target failed: got error: ", err)
	}
}

func assert12FactorExecution(t *testing.T, testName string, action string) {
	if results[action] == 0 {
		t.Fatalf("%v failed, expected: >0; got: 0", testName)
	}
}

func TestTwelveFactorActions(t *testing.T) {
	// Test that struct twelveFactorActions provides valid actions also handled by CLI Cobra commands.
	// For each key-key in map actions.ActionFuncs{} assert that it exists as a key in map twelveFactorActions{}.
	for k1, v1 := range actions.ActionFuncs { // for each Cobra command action (run, query, etc)...
		for k2 := range v1 { // for each subcommand...
			key := fmt.Sprintf("%v-%v", k1, k2) // construct the key
			_, ok12 := twelveFactorActions[key] // check if twelveFactorActions handles the action
			if !ok12 {                          // if the action key is not handled...
				t.Fatalf("twelveFactorActions does not handle Cobra action %v", key)
			}
		}
	}
}

func TestTwelveFactorGetConnectionDetails(t *testing.T) {
	_ = os.Setenv("SL_SOURCE_DSN", "s3://test.songlake.io/raw")
	_ = os.Setenv("SL_SOURCE_S3_REGION", "eu-west-2")
	_ = os.Setenv("SL_TARGET_DSN", "/data/lake")
	twelveFactorVars[envVarSourceType] = constants.ConnectionTypeS3
	twelveFactorVars[envVarTargetType] = constants.ConnectionTypeLocalFs
	ts := TwelveFactorConnections{}
	// Test 1 - S3 details are parsed from the DSN and region variables.
	cd, err := ts.GetConnectionDetails(defaultConnectionNameSource)
	if err != nil {
		t.Fatalf("test 1 failed: %v", err)
	}
	if cd.Type != constants.ConnectionTypeS3 ||
		cd.Data["name"] != "test.songlake.io" ||
		cd.Data["prefix"] != "raw" ||
		cd.Data["region"] != "eu-west-2" {
		t.Fatalf("test 1 failed: unexpected connection details: %+v", cd)
	}
	// Test 2 - localfs details use the DSN as the directory.
	cd, err = ts.GetConnectionDetails(defaultConnectionNameTarget)
	if err != nil {
		t.Fatalf("test 2 failed: %v", err)
	}
	if cd.Type != constants.ConnectionTypeLocalFs || cd.Data["dir"] != "/data/lake" {
		t.Fatalf("test 2 failed: unexpected connection details: %+v", cd)
	}
	// Test 3 - unsupported connection types produce an error.
	twelveFactorVars[envVarTargetType] = "ftp"
	if _, err := ts.GetConnectionDetails(defaultConnectionNameTarget); err == nil {
		t.Fatal("test 3 failed: expected an error for an unsupported connection type")
	}
	twelveFactorVars[envVarTargetType] = ""
}

func TestTwelveFactorLoadConnection(t *testing.T) {
	ts := TwelveFactorConnections{}
	// Test 1 - an s3:// DSN infers an S3 connection.
	_ = os.Setenv("SL_RAW_DSN", "s3://test.songlake.io/raw")
	_ = os.Setenv("SL_RAW_S3_REGION", "eu-west-2")
	cd, err := ts.LoadConnection("RAW")
	if err != nil {
		t.Fatalf("test 1 failed: %v", err)
	}
	if cd.Type != constants.ConnectionTypeS3 ||
		cd.Data["name"] != "test.songlake.io" ||
		cd.Data["prefix"] != "raw" ||
		cd.Data["region"] != "eu-west-2" {
		t.Fatalf("test 1 failed: unexpected connection details: %+v", cd)
	}
	// Test 2 - an absolute path infers a localfs connection.
	_ = os.Setenv("SL_LAKE_DSN", "/data/lake")
	cd, err = ts.LoadConnection("LAKE")
	if err != nil {
		t.Fatalf("test 2 failed: %v", err)
	}
	if cd.Type != constants.ConnectionTypeLocalFs || cd.Data["dir"] != "/data/lake" {
		t.Fatalf("test 2 failed: unexpected connection details: %+v", cd)
	}
	// Test 3 - a missing DSN produces an error.
	if _, err := ts.LoadConnection("MISSING"); err == nil {
		t.Fatal("test 3 failed: expected an error for a missing DSN")
	}
}

func TestGetConnectionHandler(t *testing.T) {
	// Test 1
	twelveFactorMode = true
	c := getConnectionHandler()
	tx := reflect.TypeOf(c)
	if tx != reflect.TypeOf(&TwelveFactorConnections{}) {
		t.Fatalf("TestGetConnectionHandler test 1 failed - expected: *cmd.TwelveFactorConnections; got: %v", tx.String())
	}
	// Test 2
	twelveFactorMode = false
	c = getConnectionHandler()
	tx = reflect.TypeOf(c)
	if tx != reflect.TypeOf(config.Connections) {
		t.Fatalf("TestGetConnectionHandler test 2 failed - expected: config.Connections; got: %v", tx.String())
	}
}

func TestGetConnectionLoader(t *testing.T) {
	// Test 1
	twelveFactorMode = true
	c := getConnectionLoader()
	tx := reflect.TypeOf(c)
	if tx != reflect.TypeOf(&TwelveFactorConnections{}) {
		t.Fatalf("TestGetConnectionLoader test 1 failed - expected: *cmd.TwelveFactorConnections; got: %v", tx.String())
	}
	// Test 2
	twelveFactorMode = false
	c = getConnectionLoader()
	tx = reflect.TypeOf(c)
	if tx != reflect.TypeOf(config.Connections) {
		t.Fatalf("TestGetConnectionLoader test 2 failed - expected: config.Connections; got: %v", tx.String())
	}
}
