package registry

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// ErrWorkerNotFound is returned when a worker name cannot be resolved.
// Lookup failures are configuration errors and are never retried.
var ErrWorkerNotFound = errors.New("worker not found")

// Registry maps worker names to descriptors and executable capabilities.
// Descriptors are loaded once at construction; the registry is read-only
// afterwards and safe for concurrent use across runs.
type Registry struct {
	// descriptors maps worker names to their static descriptors.
	descriptors map[string]models.WorkerDescriptor
	// capabilities maps worker names to their executable implementations.
	capabilities map[string]WorkerCapability
	// order preserves registration order for deterministic listing.
	order []string
	// mu protects all fields during registration.
	mu sync.RWMutex
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		descriptors:  make(map[string]models.WorkerDescriptor),
		capabilities: make(map[string]WorkerCapability),
	}
}

// Register adds a worker descriptor and its capability. Re-registering a name
// replaces the previous entry.
func (r *Registry) Register(desc models.WorkerDescriptor, cap WorkerCapability) error {
	if desc.Name == "" {
		return fmt.Errorf("register worker: empty name")
	}
	if cap == nil {
		return fmt.Errorf("register worker %s: nil capability", desc.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.descriptors[desc.Name]; !exists {
		r.order = append(r.order, desc.Name)
	}
	r.descriptors[desc.Name] = desc
	r.capabilities[desc.Name] = cap
	return nil
}

// Resolve returns the capability for a worker name.
// Returns ErrWorkerNotFound for unknown names.
func (r *Registry) Resolve(name string) (WorkerCapability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cap, ok := r.capabilities[name]
	if !ok {
		return nil, fmt.Errorf("resolve %q: %w", name, ErrWorkerNotFound)
	}
	return cap, nil
}

// Descriptor returns the descriptor for a worker name.
func (r *Registry) Descriptor(name string) (models.WorkerDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.descriptors[name]
	if !ok {
		return models.WorkerDescriptor{}, fmt.Errorf("descriptor %q: %w", name, ErrWorkerNotFound)
	}
	return desc, nil
}

// Descriptors returns all descriptors in registration order.
func (r *Registry) Descriptors() []models.WorkerDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.WorkerDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.descriptors[name])
	}
	return out
}

// Count returns the number of registered workers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descriptors)
}

// manifest is the on-disk shape of a worker manifest file.
type manifest struct {
	Workers []manifestWorker `yaml:"workers"`
}

// manifestWorker is one worker entry in a manifest file. ExpectedTime is a
// duration string ("4s", "1m30s"); yaml.v3 has no native duration decoding.
type manifestWorker struct {
	Name         string   `yaml:"name"`
	Type         string   `yaml:"type"`
	Capabilities []string `yaml:"capabilities"`
	ExpectedTime string   `yaml:"expected_time"`
	Priority     int      `yaml:"priority"`
	Command      string   `yaml:"command"`
}

// LoadManifest reads worker descriptors from a YAML manifest file and
// registers each with the capability produced by the factory. The factory
// receives the descriptor and the entry's command string (empty when the
// manifest defines none), letting the embedder bind descriptors to real
// implementations while keeping the manifest declarative.
func (r *Registry) LoadManifest(path string, factory func(desc models.WorkerDescriptor, command string) WorkerCapability) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	if len(m.Workers) == 0 {
		return fmt.Errorf("manifest %s: no workers defined", path)
	}

	for _, w := range m.Workers {
		var expected time.Duration
		if w.ExpectedTime != "" {
			expected, err = time.ParseDuration(w.ExpectedTime)
			if err != nil {
				return fmt.Errorf("manifest %s: worker %s expected_time: %w", path, w.Name, err)
			}
		}
		desc := models.WorkerDescriptor{
			Name:         w.Name,
			Type:         w.Type,
			Capabilities: w.Capabilities,
			ExpectedTime: expected,
			Priority:     w.Priority,
		}
		if err := r.Register(desc, factory(desc, w.Command)); err != nil {
			return fmt.Errorf("manifest %s: %w", path, err)
		}
	}
	return nil
}
