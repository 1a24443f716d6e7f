package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/taskmesh/core"
)

// ErrCycle marks a workflow whose dependency graph is not acyclic.
var ErrCycle = errors.New("workflow contains a dependency cycle")

// TaskSpec describes one task of a workflow DAG.
//
// Priority follows the "lower value = more urgent" convention used across
// TaskMesh. MaxRetries of zero means the orchestrator's default retry budget
// applies; a negative value disables retries for the task.
type TaskSpec struct {
	ID          string         `yaml:"id" json:"id"`
	Description string         `yaml:"description" json:"description"`
	Capability  string         `yaml:"capability" json:"capability"`
	Priority    int            `yaml:"priority" json:"priority"`
	DependsOn   []string       `yaml:"depends_on" json:"depends_on,omitempty"`
	MaxRetries  int            `yaml:"max_retries" json:"max_retries,omitempty"`
	Context     map[string]any `yaml:"context" json:"context,omitempty"`
}

// Definition is a complete workflow submission: a set of tasks forming a DAG.
// Task order in the slice is the submission order used for priority
// tie-breaking.
type Definition struct {
	ID    string     `yaml:"id" json:"id"`
	Name  string     `yaml:"name" json:"name"`
	Tasks []TaskSpec `yaml:"tasks" json:"tasks"`
}

// NewDefinition builds a definition with a generated id.
func NewDefinition(name string, tasks ...TaskSpec) Definition {
	return Definition{ID: core.NewID(), Name: name, Tasks: tasks}
}

// Validate checks structural well-formedness: non-empty unique task ids,
// required capabilities, known dependency ids and an acyclic graph. The
// orchestrator rejects a definition that fails validation before assigning
// any task.
func (d Definition) Validate() error {
	if len(d.Tasks) == 0 {
		return errors.New("workflow has no tasks")
	}

	byID := make(map[string]TaskSpec, len(d.Tasks))
	for _, t := range d.Tasks {
		if t.ID == "" {
			return errors.New("task with empty id")
		}
		if t.Capability == "" {
			return fmt.Errorf("task %s: empty capability", t.ID)
		}
		if _, dup := byID[t.ID]; dup {
			return fmt.Errorf("duplicate task id %s", t.ID)
		}
		byID[t.ID] = t
	}

	for _, t := range d.Tasks {
		for _, dep := range t.DependsOn {
			if dep == t.ID {
				return fmt.Errorf("task %s depends on itself", t.ID)
			}
			if _, ok := byID[dep]; !ok {
				return fmt.Errorf("task %s depends on unknown task %s", t.ID, dep)
			}
		}
	}

	return d.checkAcyclic(byID)
}

// checkAcyclic runs Kahn's algorithm; any tasks left unresolved sit on a cycle.
func (d Definition) checkAcyclic(byID map[string]TaskSpec) error {
	indegree := make(map[string]int, len(byID))
	dependents := make(map[string][]string, len(byID))
	for _, t := range d.Tasks {
		indegree[t.ID] = len(t.DependsOn)
		for _, dep := range t.DependsOn {
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}

	queue := make([]string, 0, len(byID))
	for _, t := range d.Tasks {
		if indegree[t.ID] == 0 {
			queue = append(queue, t.ID)
		}
	}

	resolved := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		resolved++
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if resolved != len(byID) {
		var stuck []string
		for id, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return fmt.Errorf("%w: involving tasks %s", ErrCycle, strings.Join(stuck, ", "))
	}

	return nil
}

// Task returns the spec with the given id.
func (d Definition) Task(id string) (TaskSpec, bool) {
	for _, t := range d.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return TaskSpec{}, false
}
