package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthChecker is any dependency that can report its health
type HealthChecker interface {
	Health(ctx context.Context) error
}

// DependencyStatus is the health of one dependency
type DependencyStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// ServiceStatus aggregates dependency health
type ServiceStatus struct {
	Healthy      bool               `json:"healthy"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Timestamp    time.Time          `json:"timestamp"`
}

// StatusService checks all dependencies
type StatusService struct {
	checks map[string]HealthChecker
	order  []string
	log    *zap.Logger
}

// NewStatusService creates a new status service
func NewStatusService(log *zap.Logger) *StatusService {
	return &StatusService{
		checks: make(map[string]HealthChecker),
		log:    log,
	}
}

// Register adds a named dependency
func (s *StatusService) Register(name string, c HealthChecker) {
	if _, ok := s.checks[name]; !ok {
		s.order = append(s.order, name)
	}
	s.checks[name] = c
}

// Check runs every health check concurrently. An unhealthy dependency is
// reported, never returned as an error.
func (s *StatusService) Check(ctx context.Context) ServiceStatus {
	var (
		wg      sync.WaitGroup
		results = make([]DependencyStatus, len(s.order))
	)

	for i, name := range s.order {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			st := DependencyStatus{Name: name, Healthy: true}
			if err := s.checks[name].Health(ctx); err != nil {
				s.log.Warn("dependency unhealthy", zap.String("name", name), zap.Error(err))
				st.Healthy = false
				st.Error = err.Error()
			}
			results[i] = st
		}(i, name)
	}

	wg.Wait()

	status := ServiceStatus{Healthy: true, Dependencies: results, Timestamp: time.Now()}
	for _, r := range results {
		if !r.Healthy {
			status.Healthy = false
		}
	}
	return status
}

// HealthFunc adapts a function to HealthChecker
type HealthFunc func(ctx context.Context) error

// Health calls f
func (f HealthFunc) Health(ctx context.Context) error {
	return f(ctx)
}
