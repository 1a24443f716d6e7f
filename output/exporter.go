package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/taskmesh/blackboard"
	"github.com/hupe1980/taskmesh/logging"
)

// DefaultTag marks blackboard entries eligible for export.
const DefaultTag = "output"

// Manifest describes one exported artifact.
type Manifest struct {
	Key        string    `json:"key"`
	Owner      string    `json:"owner"`
	Version    int       `json:"version"`
	Tags       []string  `json:"tags,omitempty"`
	ExportedAt time.Time `json:"exported_at"`
	Size       int       `json:"size"`
}

// ExporterOptions configures an Exporter.
type ExporterOptions struct {
	// Tag selects the blackboard entries to export. Defaults to DefaultTag.
	Tag string
	// Logger receives export diagnostics.
	Logger logging.Logger
}

// Exporter serializes tagged blackboard entries into an ArtifactStore. Each
// entry becomes one JSON artifact named after its key; a manifest artifact
// summarizes the export.
type Exporter struct {
	board  *blackboard.Blackboard
	store  ArtifactStore
	tag    string
	logger *logging.MeshLogger
}

// NewExporter builds an exporter over the given blackboard and store.
func NewExporter(board *blackboard.Blackboard, store ArtifactStore, optFns ...func(o *ExporterOptions)) *Exporter {
	opts := ExporterOptions{
		Tag:    DefaultTag,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Exporter{
		board:  board,
		store:  store,
		tag:    opts.Tag,
		logger: logging.NewMeshLogger(opts.Logger).WithComponent("exporter"),
	}
}

// Export saves every blackboard entry carrying the export tag as an artifact
// under the workflow id and writes a "manifest.json" artifact listing them.
// Entries without an owner are rejected: every exported value must be
// attributable to the agent that produced it.
func (e *Exporter) Export(workflowID string) ([]Manifest, error) {
	entries := e.board.QueryByTag(e.tag)
	if len(entries) == 0 {
		return nil, nil
	}

	logger := e.logger.WithWorkflow(workflowID)
	now := time.Now()

	manifests := make([]Manifest, 0, len(entries))
	for _, entry := range entries {
		if entry.Owner == "" {
			return nil, fmt.Errorf("entry %s has no owner", entry.Key)
		}

		data, err := json.MarshalIndent(entry.Value, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to serialize entry %s: %w", entry.Key, err)
		}

		name := entry.Key + ".json"
		if err := e.store.Save(workflowID, name, data); err != nil {
			return nil, fmt.Errorf("failed to save artifact %s: %w", name, err)
		}

		manifests = append(manifests, Manifest{
			Key:        entry.Key,
			Owner:      entry.Owner,
			Version:    entry.Version,
			Tags:       entry.Tags,
			ExportedAt: now,
			Size:       len(data),
		})

		logger.Debug("exported entry", "key", entry.Key, "owner", entry.Owner, "bytes", len(data))
	}

	manifestData, err := json.MarshalIndent(manifests, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize manifest: %w", err)
	}
	if err := e.store.Save(workflowID, "manifest.json", manifestData); err != nil {
		return nil, fmt.Errorf("failed to save manifest: %w", err)
	}

	logger.Info("export complete", "artifacts", len(manifests))

	return manifests, nil
}
