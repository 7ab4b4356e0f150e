package transform

import (
	"github.com/relloyd/songlake/connections"
	"github.com/relloyd/songlake/stream"
)

type MockTransformManager struct{}

func (tm *MockTransformManager) getTransformGuid() string {
	return "mockTransformGuid-123456789"
}

func (tm *MockTransformManager) newStepGroupManager(transformGroupName string) StepGroupManager {
	return &MockStepGroupManager{}
}

func (tm *MockTransformManager) deleteStepGroupManager(stepGroupName string) {
	return
}

func (tm *MockTransformManager) getConnectionDetails(name string) connections.ConnectionDetails {
	return connections.ConnectionDetails{}
}

func (tm *MockTransformManager) getStepCanonicalName(transformGroupName string, stepName string) string {
	return "canonical step name"
}

func (tm *MockTransformManager) addConsumer(sourceStepName string, c consumer) {
	return
}

func (tm *MockTransformManager) stepHasConsumer(stepName string) bool {
	if stepName != "" {
		return true
	}
	return false
}

func (tm *MockTransformManager) sendOutputChanToRequesters(fromStepName string, c chan stream.Record) {
	return
}

func (tm *MockTransformManager) shutdown() {
	return
}
