// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

var ErrActivityNotFound = errors.New("ACTIVITY_NOT_FOUND")

// ActivityRegistry lists the job types a deployment serves, in the format
// process modelers import.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity describes one job type. Timeout is a Go duration string.
type Activity struct {
	TaskType     string                 `json:"taskType"`
	DisplayName  string                 `json:"displayName"`
	Description  string                 `json:"description,omitempty"`
	Category     string                 `json:"category"`
	Version      string                 `json:"version"`
	Status       string                 `json:"status"`
	InputSchema  map[string]interface{} `json:"inputSchema"`
	OutputSchema map[string]interface{} `json:"outputSchema"`
	ErrorCodes   []string               `json:"errorCodes"`
	Timeout      string                 `json:"timeout"`
	Retries      int                    `json:"retries"`
	Tags         []string               `json:"tags,omitempty"`
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// New returns a registry holding activities, stamped with now.
func New(version string, now time.Time, activities ...Activity) *ActivityRegistry {
	return &ActivityRegistry{
		Version:     version,
		LastUpdated: now.UTC().Format(time.RFC3339),
		Activities:  activities,
	}
}

// Find returns the activity registered for taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, error) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrActivityNotFound, taskType)
}

// Upsert replaces the activity with the same task type or appends a.
func (r *ActivityRegistry) Upsert(a Activity) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == a.TaskType {
			r.Activities[i] = a
			return
		}
	}
	r.Activities = append(r.Activities, a)
}

// Save writes the registry as indented JSON.
func (r *ActivityRegistry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
