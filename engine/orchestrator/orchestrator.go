// Package orchestrator sequences the migration pipeline: extract from
// Project Online, prepare workspaces and sheets, load rows in dependency
// order, and configure picklist bindings, for one or more projects with
// bounded parallelism.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/sheetbridge/sheetbridge/engine/core"
	"github.com/sheetbridge/sheetbridge/engine/report"
	"github.com/sheetbridge/sheetbridge/engine/resiliency"
	"github.com/sheetbridge/sheetbridge/engine/source"
	"github.com/sheetbridge/sheetbridge/engine/standards"
	"github.com/sheetbridge/sheetbridge/engine/target"
	"github.com/sheetbridge/sheetbridge/engine/transform"
	"github.com/sheetbridge/sheetbridge/pkg/logger"
)

// Options tunes a run.
type Options struct {
	StandardsWorkspaceID int64
	TemplateWorkspaceID  int64
	BatchSize            int
	Concurrency          int
	ReportPath           string
	Fs                   afero.Fs
}

// Orchestrator drives the end-to-end migration.
type Orchestrator struct {
	src       Extractor
	api       target.API
	standards *standards.Manager
	report    *report.Collector
	progress  *progressPublisher
	opts      Options
}

func New(src Extractor, api target.API, sink ProgressSink, opts Options) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	if opts.ReportPath == "" {
		opts.ReportPath = "formula-fields-report.csv"
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	return &Orchestrator{
		src:       src,
		api:       api,
		standards: standards.NewManager(api),
		report:    report.NewCollector(),
		progress:  newProgressPublisher(sink),
		opts:      opts,
	}
}

// Run migrates the given projects, or every source project when projectIDs
// is empty. Individual project failures do not abort the run; the summary
// carries per-project outcomes and the aggregate exit code.
func (o *Orchestrator) Run(ctx context.Context, projectIDs []string) (*RunSummary, error) {
	runID := uuid.NewString()
	log := logger.FromContext(ctx).With("run", runID)
	ctx = logger.ContextWithLogger(ctx, log)

	if err := o.standards.Init(ctx, o.opts.StandardsWorkspaceID); err != nil {
		return nil, err
	}
	schema, err := o.src.CustomFields(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := o.resolveProjects(ctx, projectIDs)
	if err != nil {
		return nil, err
	}
	log.Info("starting migration", "projects", len(projects), "concurrency", o.opts.Concurrency)

	results := make([]ProjectResult, len(projects))
	var eg errgroup.Group
	eg.SetLimit(o.opts.Concurrency)
	for i := range projects {
		eg.Go(func() error {
			results[i] = o.migrateProject(ctx, &projects[i], schema)
			return nil
		})
	}
	_ = eg.Wait()

	summary := &RunSummary{RunID: runID, Results: results, ReportPath: o.opts.ReportPath}
	if o.report.Len() > 0 {
		if err := o.report.WriteCSV(o.opts.Fs, o.opts.ReportPath); err != nil {
			log.Warn("cannot write formula fields report", "error", err)
		} else {
			log.Info("wrote formula fields report", "path", o.opts.ReportPath, "fields", o.report.Len())
		}
	}
	return summary, nil
}

func (o *Orchestrator) resolveProjects(ctx context.Context, projectIDs []string) ([]source.Project, error) {
	if len(projectIDs) == 0 {
		return o.src.Projects(ctx)
	}
	projects := make([]source.Project, 0, len(projectIDs))
	for _, id := range projectIDs {
		p, err := o.src.Project(ctx, id)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, nil
}

// -----------------------------------------------------------------------------
// Per-project pipeline
// -----------------------------------------------------------------------------

// migration carries one project's pipeline state across stages.
type migration struct {
	project *source.Project
	result  ProjectResult

	prefix        string
	tasks         []source.Task
	resources     []source.Resource
	groups        *transform.AssignmentGroups
	taskFields    []source.CustomField
	resFields     []source.CustomField
	projFields    []source.CustomField
	workspace     target.Workspace
	summarySheet  *target.Sheet
	tasksSheet    *target.Sheet
	resourceSheet *target.Sheet
	taskRefs      map[string]rowRef
}

func (o *Orchestrator) migrateProject(ctx context.Context, project *source.Project, schema map[core.EntityKind][]source.CustomField) ProjectResult {
	log := logger.FromContext(ctx).With("project", project.Name)
	ctx = logger.ContextWithLogger(ctx, log)

	m := &migration{
		project: project,
		result: ProjectResult{
			ProjectID:   project.ID,
			ProjectName: project.Name,
			State:       StatePending,
		},
	}
	stages := []struct {
		state ProjectState
		run   func(ctx context.Context, m *migration, schema map[core.EntityKind][]source.CustomField) error
	}{
		{StateExtracting, o.extract},
		{StatePreparing, o.prepare},
		{StateLoadingResources, o.loadResources},
		{StateLoadingTasks, o.loadTasks},
		{StateLoadingSummary, o.loadSummary},
		{StateConfiguring, o.configure},
	}
	for _, stage := range stages {
		if ctx.Err() != nil {
			m.result.State = StateCancelled
			m.result.Err = ctx.Err()
			return m.result
		}
		o.setState(m, stage.state)
		if err := stage.run(ctx, m, schema); err != nil {
			if ctx.Err() != nil {
				m.result.State = StateCancelled
			} else {
				m.result.State = StateFailed
			}
			m.result.Err = err
			log.Error("project migration failed", "stage", stage.state, "error", err)
			return m.result
		}
	}
	o.setState(m, StateDone)
	log.Info("project migrated",
		"workspace", m.result.WorkspaceName,
		"tasks", m.result.TasksLoaded,
		"resources", m.result.ResourcesRows,
		"warnings", len(m.result.Warnings))
	return m.result
}

func (o *Orchestrator) setState(m *migration, state ProjectState) {
	m.result.State = state
	o.progress.publish(Update{
		ProjectID:   m.result.ProjectID,
		ProjectName: m.result.ProjectName,
		State:       state,
	})
}

func (o *Orchestrator) publishProgress(m *migration, completed, total int, message string) {
	o.progress.publish(Update{
		ProjectID:   m.result.ProjectID,
		ProjectName: m.result.ProjectName,
		State:       m.result.State,
		Completed:   completed,
		Total:       total,
		Message:     message,
	})
}

func (o *Orchestrator) extract(ctx context.Context, m *migration, _ map[core.EntityKind][]source.CustomField) error {
	var err error
	if m.tasks, err = o.src.Tasks(ctx, m.project.ID); err != nil {
		return err
	}
	if m.resources, err = o.src.Resources(ctx, m.project.ID); err != nil {
		return err
	}
	assignments, err := o.src.Assignments(ctx, m.project.ID)
	if err != nil {
		return err
	}
	m.groups = transform.GroupAssignments(assignments, m.resources)
	m.result.Warnings = append(m.result.Warnings, m.groups.Warnings...)
	return nil
}

func (o *Orchestrator) prepare(ctx context.Context, m *migration, schema map[core.EntityKind][]source.CustomField) error {
	name := transform.SanitizeName(m.project.Name)
	if name == "" {
		return core.NewValidationError(fmt.Sprintf("project %s has no usable name", m.project.ID))
	}
	m.prefix = transform.ProjectPrefix(m.project.Name)

	ws, _, err := resiliency.GetOrCreateWorkspace(ctx, o.api, name)
	if err != nil {
		return err
	}
	m.workspace = ws
	m.result.WorkspaceID = ws.ID
	m.result.WorkspaceName = ws.Name

	if m.summarySheet, err = o.ensureSheet(ctx, m, name+" - Summary", "Summary", transform.SummarySheetColumns()); err != nil {
		return err
	}
	if m.tasksSheet, err = o.ensureSheet(ctx, m, name+" - Tasks", "Tasks", transform.TaskSheetColumns(m.prefix)); err != nil {
		return err
	}
	if m.resourceSheet, err = o.ensureSheet(ctx, m, name+" - Resources", "Resources", transform.ResourceSheetColumns(m.prefix)); err != nil {
		return err
	}

	m.taskFields = transform.DiscoverCustomFields(schema[core.EntityTask],
		customValueMaps(m.tasks, func(t *source.Task) map[string]any { return t.CustomValues }))
	m.resFields = transform.DiscoverCustomFields(schema[core.EntityResource],
		customValueMaps(m.resources, func(r *source.Resource) map[string]any { return r.CustomValues }))
	m.projFields = transform.DiscoverCustomFields(schema[core.EntityProject],
		[]map[string]any{m.project.CustomValues})

	// Dynamic columns: assignment-derived plus custom fields.
	taskCols := m.groups.ColumnSpecs()
	for i := range m.taskFields {
		taskCols = append(taskCols, transform.CustomFieldColumn(&m.taskFields[i]))
	}
	if _, err := resiliency.AddColumnsIfNotExist(ctx, o.api, m.tasksSheet, taskCols); err != nil {
		return err
	}
	var resCols []target.Column
	for i := range m.resFields {
		resCols = append(resCols, transform.CustomFieldColumn(&m.resFields[i]))
	}
	if _, err := resiliency.AddColumnsIfNotExist(ctx, o.api, m.resourceSheet, resCols); err != nil {
		return err
	}

	if err := o.mergeStandards(ctx, m); err != nil {
		return err
	}
	o.collectFormulaFields(m)
	return nil
}

// ensureSheet adopts an existing sheet, copies one from the template
// workspace, or creates it from the skeleton, in that order. The skeleton
// columns are reconciled in every case so adopted and templated sheets are
// never missing required columns.
func (o *Orchestrator) ensureSheet(ctx context.Context, m *migration, fullName, kindFragment string, skeleton []target.Column) (*target.Sheet, error) {
	log := logger.FromContext(ctx)

	child, found, err := resiliency.FindSheet(ctx, o.api, m.workspace.ID, fullName)
	if err != nil {
		return nil, err
	}
	var sheet *target.Sheet
	switch {
	case found:
		if sheet, err = o.api.GetSheet(ctx, child.ID); err != nil {
			return nil, err
		}
	case o.opts.TemplateWorkspaceID != 0:
		sheet, err = o.copyFromTemplate(ctx, m, fullName, kindFragment)
		if err != nil {
			// The template path degrades to plain creation.
			log.Warn("template sheet unavailable, creating from scratch",
				"sheet", fullName, "error", err)
			m.result.Warnings = append(m.result.Warnings,
				fmt.Sprintf("template copy failed for %s: %v", fullName, err))
			sheet = nil
		}
	}
	if sheet == nil {
		if sheet, _, err = resiliency.GetOrCreateSheet(ctx, o.api, m.workspace.ID, target.SheetSpec{
			Name:    fullName,
			Columns: skeleton,
		}); err != nil {
			return nil, err
		}
	}
	if _, err := resiliency.AddColumnsIfNotExist(ctx, o.api, sheet, skeleton); err != nil {
		return nil, err
	}
	return sheet, nil
}

func (o *Orchestrator) copyFromTemplate(ctx context.Context, m *migration, fullName, kindFragment string) (*target.Sheet, error) {
	tpl, found, err := resiliency.FindSheetByPartialName(ctx, o.api, o.opts.TemplateWorkspaceID, kindFragment)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, core.NewDataError(fmt.Sprintf("no template sheet matches %q", kindFragment), nil)
	}
	copied, err := o.api.CopySheetToWorkspace(ctx, tpl.ID, m.workspace.ID, fullName)
	if err != nil {
		return nil, err
	}
	// Template rows are sample data; the copy starts empty.
	if _, err := resiliency.DeleteAllRows(ctx, o.api, copied.ID); err != nil {
		return nil, err
	}
	return o.api.GetSheet(ctx, copied.ID)
}

// mergeStandards pushes this project's discovered reference values into the
// shared workspace: departments plus every lookup field's display values.
func (o *Orchestrator) mergeStandards(ctx context.Context, m *migration) error {
	var departments []string
	for i := range m.resources {
		if d := m.resources[i].Department; d != "" {
			departments = append(departments, d)
		}
	}
	if _, err := o.standards.Ensure(ctx, standards.SheetResourceDepartment, departments); err != nil {
		return err
	}
	if m.project.Status != "" {
		if _, err := o.standards.Ensure(ctx, standards.SheetProjectStatus, []string{m.project.Status}); err != nil {
			return err
		}
	}
	for kind, fields := range map[core.EntityKind][]source.CustomField{
		core.EntityTask:     m.taskFields,
		core.EntityResource: m.resFields,
		core.EntityProject:  m.projFields,
	} {
		for i := range fields {
			f := &fields[i]
			if !f.HasLookup() {
				continue
			}
			name := transform.LookupSheetName(kind, f)
			if _, err := o.standards.Ensure(ctx, name, transform.LookupDisplayValues(f)); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectFormulaFields records formula-backed fields for the CSV report.
func (o *Orchestrator) collectFormulaFields(m *migration) {
	record := func(kind core.EntityKind, sheet *target.Sheet, fields []source.CustomField, samples func(internal string) []string) {
		for i := range fields {
			f := &fields[i]
			if !f.HasFormula() {
				continue
			}
			title := transform.CustomColumnTitle(f)
			col, _ := sheet.Column(title)
			o.report.Add(report.Entry{
				WorkspaceName: m.workspace.Name,
				WorkspaceID:   m.workspace.ID,
				SheetName:     sheet.Name,
				SheetID:       sheet.ID,
				ColumnName:    title,
				ColumnID:      col.ID,
				InternalName:  f.InternalName,
				DisplayName:   f.DisplayName,
				EntityType:    kind,
				SampleValues:  samples(f.InternalName),
			})
		}
	}
	record(core.EntityTask, m.tasksSheet, m.taskFields, func(internal string) []string {
		var out []string
		for i := range m.tasks {
			if v, ok := m.tasks[i].CustomValues[internal]; ok && v != nil {
				out = append(out, fmt.Sprint(v))
			}
		}
		return out
	})
	record(core.EntityResource, m.resourceSheet, m.resFields, func(internal string) []string {
		var out []string
		for i := range m.resources {
			if v, ok := m.resources[i].CustomValues[internal]; ok && v != nil {
				out = append(out, fmt.Sprint(v))
			}
		}
		return out
	})
	record(core.EntityProject, m.summarySheet, m.projFields, func(internal string) []string {
		if v, ok := m.project.CustomValues[internal]; ok && v != nil {
			return []string{fmt.Sprint(v)}
		}
		return nil
	})
}

// -----------------------------------------------------------------------------
// Row loading
// -----------------------------------------------------------------------------

// rowRef locates a loaded row: its target ID and its 1-based row number.
type rowRef struct {
	id  int64
	num int
}

// existingRows indexes a fetched sheet's rows by the string value of the
// key column. This is the rerun matching path: rows found here are updated
// in place, never duplicated.
func existingRows(sheet *target.Sheet, keyColumnID int64) map[string]rowRef {
	refs := make(map[string]rowRef)
	for _, row := range sheet.Rows {
		cell, ok := row.Cell(keyColumnID)
		if !ok {
			continue
		}
		if key, ok := cell.Value.(string); ok && key != "" {
			refs[key] = rowRef{id: row.ID, num: row.RowNum}
		}
	}
	return refs
}

func (o *Orchestrator) loadResources(ctx context.Context, m *migration, _ map[core.EntityKind][]source.CustomField) error {
	columns := transform.NewColumnMap(m.resourceSheet)
	existing := existingRows(m.resourceSheet, columns[transform.ColumnProjectOnlineID])

	keys := make([]string, 0, len(m.resources))
	rows := make([]target.Row, 0, len(m.resources))
	for i := range m.resources {
		row, warnings := transform.ResourceRow(&m.resources[i], m.resFields, columns)
		m.result.Warnings = append(m.result.Warnings, warnings...)
		keys = append(keys, m.resources[i].ID)
		rows = append(rows, row)
	}
	if _, err := o.upsertFlat(ctx, m, m.resourceSheet.ID, existing, keys, rows); err != nil {
		return err
	}
	m.result.ResourcesRows = len(rows)
	return nil
}

// upsertFlat writes order-independent rows: rows whose key already exists
// become updates, the rest are batch appends.
func (o *Orchestrator) upsertFlat(ctx context.Context, m *migration, sheetID int64, existing map[string]rowRef, keys []string, rows []target.Row) (map[string]rowRef, error) {
	refs := make(map[string]rowRef, len(rows))
	var adds, updates []target.Row
	var addKeys []string
	for i, row := range rows {
		if ref, ok := existing[keys[i]]; ok {
			row.ID = ref.id
			row.ToBottom = false
			refs[keys[i]] = ref
			updates = append(updates, row)
			continue
		}
		adds = append(adds, row)
		addKeys = append(addKeys, keys[i])
	}
	for start := 0; start < len(updates); start += o.opts.BatchSize {
		end := min(start+o.opts.BatchSize, len(updates))
		if _, err := o.api.UpdateRows(ctx, sheetID, updates[start:end]); err != nil {
			return nil, err
		}
		o.publishProgress(m, end, len(rows), "updating rows")
	}
	for start := 0; start < len(adds); start += o.opts.BatchSize {
		end := min(start+o.opts.BatchSize, len(adds))
		added, err := o.api.AddRows(ctx, sheetID, adds[start:end])
		if err != nil {
			return nil, err
		}
		for i, row := range added {
			refs[addKeys[start+i]] = rowRef{id: row.ID, num: row.RowNum}
		}
		o.publishProgress(m, len(updates)+end, len(rows), "adding rows")
	}
	return refs, nil
}

func (o *Orchestrator) loadTasks(ctx context.Context, m *migration, _ map[core.EntityKind][]source.CustomField) error {
	columns := transform.NewColumnMap(m.tasksSheet)
	existing := existingRows(m.tasksSheet, columns[transform.ColumnProjectOnlineID])
	nodes := transform.BuildHierarchy(m.tasks)

	refs := make(map[string]rowRef, len(nodes))
	var pendingAdds, pendingUpdates []target.Row
	var pendingAddKeys []string
	pendingSet := make(map[string]bool)
	loaded := 0

	flush := func() error {
		if len(pendingUpdates) > 0 {
			if _, err := o.api.UpdateRows(ctx, m.tasksSheet.ID, pendingUpdates); err != nil {
				return err
			}
		}
		if len(pendingAdds) > 0 {
			added, err := o.api.AddRows(ctx, m.tasksSheet.ID, pendingAdds)
			if err != nil {
				return err
			}
			for i, row := range added {
				refs[pendingAddKeys[i]] = rowRef{id: row.ID, num: row.RowNum}
			}
		}
		loaded += len(pendingUpdates) + len(pendingAdds)
		pendingAdds, pendingUpdates, pendingAddKeys = nil, nil, nil
		pendingSet = make(map[string]bool)
		o.publishProgress(m, loaded, len(nodes), "loading tasks")
		return nil
	}

	for i := range nodes {
		node := &nodes[i]
		task := &node.Task
		if task.Name == "" {
			return core.NewValidationError(fmt.Sprintf("task %s has no name", task.ID))
		}
		// A parent still sitting in the unflushed batch has no row ID
		// yet; flush so the child can reference it.
		if node.ParentID != "" && pendingSet[node.ParentID] {
			if err := flush(); err != nil {
				return err
			}
		}
		row, warnings := transform.TaskRow(node, m.groups.CellsByTask[task.ID], m.taskFields, columns)
		m.result.Warnings = append(m.result.Warnings, warnings...)
		if node.ParentID != "" {
			if ref, ok := refs[node.ParentID]; ok {
				row.ParentID = ref.id
			} else {
				m.result.Warnings = append(m.result.Warnings,
					fmt.Sprintf("task %s: parent %s not loaded, keeping as root", task.ID, node.ParentID))
			}
		}
		if ref, ok := existing[task.ID]; ok {
			row.ID = ref.id
			row.ToBottom = false
			refs[task.ID] = ref
			pendingUpdates = append(pendingUpdates, row)
		} else {
			pendingAdds = append(pendingAdds, row)
			pendingAddKeys = append(pendingAddKeys, task.ID)
			pendingSet[task.ID] = true
		}
		if len(pendingAdds)+len(pendingUpdates) >= o.opts.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	m.taskRefs = refs
	m.result.TasksLoaded = len(nodes)

	return o.writePredecessors(ctx, m, columns)
}

// writePredecessors is the second pass over task rows: relations render
// against final row numbers, which only exist once every row is loaded.
func (o *Orchestrator) writePredecessors(ctx context.Context, m *migration, columns transform.ColumnMap) error {
	rowNums := make(map[string]int, len(m.taskRefs))
	for guid, ref := range m.taskRefs {
		rowNums[guid] = ref.num
	}
	var updates []target.Row
	for i := range m.tasks {
		task := &m.tasks[i]
		cell, ok, warnings := transform.PredecessorCell(task, rowNums, columns)
		m.result.Warnings = append(m.result.Warnings, warnings...)
		if !ok {
			continue
		}
		ref, loaded := m.taskRefs[task.ID]
		if !loaded {
			continue
		}
		updates = append(updates, target.Row{ID: ref.id, Cells: []target.Cell{cell}})
	}
	for start := 0; start < len(updates); start += o.opts.BatchSize {
		end := min(start+o.opts.BatchSize, len(updates))
		if _, err := o.api.UpdateRows(ctx, m.tasksSheet.ID, updates[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) loadSummary(ctx context.Context, m *migration, _ map[core.EntityKind][]source.CustomField) error {
	columns := transform.NewColumnMap(m.summarySheet)
	existing := existingRows(m.summarySheet, columns[transform.ColumnSummaryField])

	rows, warnings := transform.SummaryRows(m.project, m.projFields, columns)
	m.result.Warnings = append(m.result.Warnings, warnings...)

	keys := make([]string, len(rows))
	fieldCol := columns[transform.ColumnSummaryField]
	for i, row := range rows {
		if cell, ok := row.Cell(fieldCol); ok {
			keys[i], _ = cell.Value.(string)
		}
	}
	if _, err := o.upsertFlat(ctx, m, m.summarySheet.ID, existing, keys, rows); err != nil {
		return err
	}
	m.result.SummaryRows = len(rows)
	return nil
}

// configure binds picklist columns to their PMO Standards reference sheets.
func (o *Orchestrator) configure(ctx context.Context, m *migration, _ map[core.EntityKind][]source.CustomField) error {
	bind := func(sheet *target.Sheet, title, standardsSheet string) error {
		ref, ok := o.standards.Ref(standardsSheet)
		if !ok {
			return nil
		}
		return resiliency.ConfigureColumnSource(ctx, o.api, sheet, title, ref)
	}
	bindings := []struct {
		sheet    *target.Sheet
		title    string
		standard string
	}{
		{m.tasksSheet, transform.ColumnStatus, standards.SheetTaskStatus},
		{m.tasksSheet, transform.ColumnPriority, standards.SheetTaskPriority},
		{m.tasksSheet, transform.ColumnConstraintType, standards.SheetTaskConstraintType},
		{m.resourceSheet, transform.ColumnResourceType, standards.SheetResourceType},
		{m.resourceSheet, transform.ColumnDepartment, standards.SheetResourceDepartment},
		{m.summarySheet, transform.ColumnStatus, standards.SheetProjectStatus},
		{m.summarySheet, transform.ColumnPriority, standards.SheetProjectPriority},
	}
	for _, b := range bindings {
		if err := bind(b.sheet, b.title, b.standard); err != nil {
			return err
		}
	}
	lookups := []struct {
		kind   core.EntityKind
		sheet  *target.Sheet
		fields []source.CustomField
	}{
		{core.EntityTask, m.tasksSheet, m.taskFields},
		{core.EntityResource, m.resourceSheet, m.resFields},
	}
	for _, l := range lookups {
		for i := range l.fields {
			f := &l.fields[i]
			if !f.HasLookup() {
				continue
			}
			if err := bind(l.sheet, transform.CustomColumnTitle(f), transform.LookupSheetName(l.kind, f)); err != nil {
				return err
			}
		}
	}
	return nil
}

func customValueMaps[T any](entities []T, valuesOf func(*T) map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(entities))
	for i := range entities {
		out = append(out, valuesOf(&entities[i]))
	}
	return out
}
