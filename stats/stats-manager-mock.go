package stats

// MockStatsManager satisfies the StatsManager interface for tests and
// for transforms that don't want stats gathered.
type MockStatsManager struct{}

func (s *MockStatsManager) StartDumping() {}

func (s *MockStatsManager) StopDumping() {}

func (s *MockStatsManager) AddStepWatcher(stepName string) *StepWatcher {
	return nil
}

func (s *MockStatsManager) TotalCounter(name string) int64 {
	return 0
}

func NewMockStatsManager() *MockStatsManager {
	return &MockStatsManager{}
}
