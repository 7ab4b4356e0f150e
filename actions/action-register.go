package actions

import (
	"fmt"
	"reflect"

	"github.com/relloyd/songlake/constants"
)

type SrcAndTgtConnections struct {
	Connections  ConnectionHandler
	SourceString ConnectionObject
	TargetString ConnectionObject
}

type Action struct {
	FnAction   func(actionCfg interface{}) error                         // the function to execute the action
	ActionCfg  interface{}                                               // the config struct to pass to the FnAction
	FnSetupCfg func(genericCfg interface{}, actionCfg interface{}) error // the function to convert generic cfg to action-specific config for the FnAction
}

// ActionLauncher will:
// 1) call the function fnActionGetter to find the Action{} based on the sourceType and targetType strings supplied.
// 2) Once it has the Action{}, it calls setup function Action.FnSetupCfg() to populate Action.ActionCfg{}.
// 3) Then it can start the action by calling Action.FnAction().
// TODO: consider moving use of fnActionGetter out to the caller such that the caller supplies a fn(void) to call all
//  preconfigured ready to go.
func ActionLauncher(
	cfg interface{},
	fnActionGetter func(sourceType string, targetType string) (Action, error),
	sourceType string,
	targetType string) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("expected pointer to config in variable cfg to be supplied to ActionLauncher")
	}
	// Fetch the action.
	a, err := fnActionGetter(sourceType, targetType)
	if err != nil {
		return err
	}
	// Populate the action's config struct using the generic.
	if err = a.FnSetupCfg(cfg, a.ActionCfg); err != nil {
		return err
	}
	// Run the action.
	return a.FnAction(a.ActionCfg)
}

// ActionFuncs is a register of all supported actions.
// Note that keys in the final map[string]Action are used to validate connections before
// they are added. See RunConnectionAdd().
var ActionFuncs = map[string]map[string]map[string]Action{
	constants.ActionFuncsCommandRun: { // command...
		constants.ActionFuncsSubCommandEtl: { // subcommand...
			// All four storage combinations share the one action; the pipe template switches
			// its list and copy step types per scheme.
			"s3-s3":           Action{FnAction: RunEtl, ActionCfg: &EtlConfig{}, FnSetupCfg: SetupRunEtl},
			"s3-localfs":      Action{FnAction: RunEtl, ActionCfg: &EtlConfig{}, FnSetupCfg: SetupRunEtl},
			"localfs-s3":      Action{FnAction: RunEtl, ActionCfg: &EtlConfig{}, FnSetupCfg: SetupRunEtl},
			"localfs-localfs": Action{FnAction: RunEtl, ActionCfg: &EtlConfig{}, FnSetupCfg: SetupRunEtl},
		},
	},
	constants.ActionFuncsCommandQuery: {
		constants.ActionFuncsSubCommandTable: {
			"s3-stdout":      Action{FnAction: RunQueryTable, ActionCfg: &QueryTableConfig{}, FnSetupCfg: SetupQueryTable},
			"localfs-stdout": Action{FnAction: RunQueryTable, ActionCfg: &QueryTableConfig{}, FnSetupCfg: SetupQueryTable},
		},
	},
	constants.ActionFuncsCommandDiff: {
		constants.ActionFuncsSubCommandTable: {
			"s3-s3":           Action{FnAction: RunDiffTable, ActionCfg: &DiffTableConfig{}, FnSetupCfg: SetupDiffTable},
			"s3-localfs":      Action{FnAction: RunDiffTable, ActionCfg: &DiffTableConfig{}, FnSetupCfg: SetupDiffTable},
			"localfs-s3":      Action{FnAction: RunDiffTable, ActionCfg: &DiffTableConfig{}, FnSetupCfg: SetupDiffTable},
			"localfs-localfs": Action{FnAction: RunDiffTable, ActionCfg: &DiffTableConfig{}, FnSetupCfg: SetupDiffTable},
		},
	},
}

// GetRunEtlAction returns the "run etl" Action based on sourceType and targetTypes supplied.
func GetRunEtlAction(sourceType string, targetType string) (Action, error) {
	retval, ok := ActionFuncs[constants.ActionFuncsCommandRun][constants.ActionFuncsSubCommandEtl][sourceType+"-"+targetType]
	if !ok {
		return Action{}, fmt.Errorf("unsupported run etl action for source type %q and target type %q", sourceType, targetType)
	}
	return retval, nil
}

// GetQueryTableAction returns the "query table" Action based on sourceType and targetTypes supplied.
func GetQueryTableAction(sourceType string, targetType string) (Action, error) {
	retval, ok := ActionFuncs[constants.ActionFuncsCommandQuery][constants.ActionFuncsSubCommandTable][sourceType+"-"+targetType]
	if !ok {
		return Action{}, fmt.Errorf("unsupported query table action for source type %q and target type %q", sourceType, targetType)
	}
	return retval, nil
}

// GetDiffTableAction returns the "diff table" Action based on sourceType and targetTypes supplied.
func GetDiffTableAction(sourceType string, targetType string) (Action, error) {
	retval, ok := ActionFuncs[constants.ActionFuncsCommandDiff][constants.ActionFuncsSubCommandTable][sourceType+"-"+targetType]
	if !ok {
		return Action{}, fmt.Errorf("unsupported diff table action for source type %q and target type %q", sourceType, targetType)
	}
	return retval, nil
}
