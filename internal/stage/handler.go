package stage

import "context"

// Health is one component's answer to "can you do your job right now".
// Detail explains a failure; ready components may leave it empty or use it
// for a note such as the resolved path.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

func Healthy(name string) Health { return Health{Name: name, Ready: true} }

func Unhealthy(name, detail string) Health { return Health{Name: name, Detail: detail} }

// Checker is implemented by every component that can report its readiness
// (encoders, save targets).
type Checker interface {
	HealthCheck(context.Context) Health
}

// CheckAll runs each checker in order and collects the results.
func CheckAll(ctx context.Context, checkers ...Checker) []Health {
	results := make([]Health, 0, len(checkers))
	for _, c := range checkers {
		if c == nil {
			continue
		}
		results = append(results, c.HealthCheck(ctx))
	}
	return results
}
