package cron

import "context"

// Job is a scheduled unit of work. Run must be safe to call again after a
// partial failure.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in registration order, keyed by name. A second job with
// an already registered name is ignored.
type Registry struct {
	jobs   []Job
	byName map[string]Job
}

// NewRegistry builds a registry preloaded with jobs; nil entries are skipped.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{byName: make(map[string]Job, len(jobs))}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds job and reports whether it was accepted.
func (r *Registry) Register(job Job) bool {
	if job == nil {
		return false
	}
	if r.byName == nil {
		r.byName = make(map[string]Job)
	}
	if _, exists := r.byName[job.Name()]; exists {
		return false
	}
	r.byName[job.Name()] = job
	r.jobs = append(r.jobs, job)
	return true
}

// Jobs returns a copy of the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

// Settler returns the named job when it produces a settlement report.
func (r *Registry) Settler(name string) (Settler, bool) {
	job, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	settler, ok := job.(Settler)
	return settler, ok
}
