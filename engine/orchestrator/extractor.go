package orchestrator

import (
	"context"

	"github.com/sheetbridge/sheetbridge/engine/core"
	"github.com/sheetbridge/sheetbridge/engine/source"
)

// Extractor is the snapshot-read surface the pipeline consumes. The
// production implementation streams from the OData client; tests feed
// fixtures.
type Extractor interface {
	Projects(ctx context.Context) ([]source.Project, error)
	Project(ctx context.Context, projectID string) (*source.Project, error)
	Tasks(ctx context.Context, projectID string) ([]source.Task, error)
	Resources(ctx context.Context, projectID string) ([]source.Resource, error)
	Assignments(ctx context.Context, projectID string) ([]source.Assignment, error)
	CustomFields(ctx context.Context) (map[core.EntityKind][]source.CustomField, error)
}

// SourceExtractor adapts the OData client to the Extractor surface by
// draining its page iterators.
type SourceExtractor struct {
	client *source.Client
}

func NewSourceExtractor(client *source.Client) *SourceExtractor {
	return &SourceExtractor{client: client}
}

func (e *SourceExtractor) Projects(ctx context.Context) ([]source.Project, error) {
	return source.Collect(ctx, e.client.ListProjects(source.Query{}))
}

func (e *SourceExtractor) Project(ctx context.Context, projectID string) (*source.Project, error) {
	return e.client.GetProject(ctx, projectID)
}

func (e *SourceExtractor) Tasks(ctx context.Context, projectID string) ([]source.Task, error) {
	return source.Collect(ctx, e.client.ListTasks(projectID, source.Query{}))
}

func (e *SourceExtractor) Resources(ctx context.Context, projectID string) ([]source.Resource, error) {
	return source.Collect(ctx, e.client.ListResources(projectID, source.Query{}))
}

func (e *SourceExtractor) Assignments(ctx context.Context, projectID string) ([]source.Assignment, error) {
	return source.Collect(ctx, e.client.ListAssignments(projectID))
}

func (e *SourceExtractor) CustomFields(ctx context.Context) (map[core.EntityKind][]source.CustomField, error) {
	return e.client.CustomFieldSchema(ctx)
}
