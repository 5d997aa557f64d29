package domain

import "time"

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// NormalizeTaskStatus maps legacy aliases onto the canonical statuses.
// It returns false for values that are not task statuses at all.
func NormalizeTaskStatus(s string) (TaskStatus, bool) {
	switch s {
	case "todo", "pending":
		return TaskTodo, true
	case "in_progress":
		return TaskInProgress, true
	case "done", "completed":
		return TaskDone, true
	}
	return "", false
}

// TaskPriority ranks a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// AssignmentMode selects how a new task is distributed.
type AssignmentMode string

const (
	AssignSingle    AssignmentMode = "single"
	AssignMultiple  AssignmentMode = "multiple"
	AssignFranchise AssignmentMode = "franchise"
)

// TaskStep is one checklist item of a task.
type TaskStep struct {
	ID         string `json:"id,omitempty"`
	TaskID     string `json:"task_id,omitempty"`
	Title      string `json:"title"`
	Completed  bool   `json:"completed"`
	OrderIndex int    `json:"order_index"`
}

// Task is a unit of work assigned to a person or to a whole franchise.
// Exactly one of AssignedTo / franchise-wide applies: a franchise task has a
// nil AssignedTo, an individual task always carries a FranchiseID.
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	DueDate     *string      `json:"due_date"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	CreatedBy   string       `json:"created_by"`
	AssignedTo  *string      `json:"assigned_to"`
	FranchiseID string       `json:"franchise_id"`
	Steps       []TaskStep   `json:"steps,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// IsFranchiseWide reports whether the task is open to a whole franchise unit.
func (t *Task) IsFranchiseWide() bool {
	return t.AssignedTo == nil
}

// CreateTaskRequest is the input of the task assignment engine.
type CreateTaskRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	DueDate     string         `json:"due_date,omitempty"`
	Priority    TaskPriority   `json:"priority,omitempty"`
	Mode        AssignmentMode `json:"mode"`
	UserIDs     []string       `json:"user_ids,omitempty"`
	FranchiseID string         `json:"franchise_id,omitempty"`
	TemplateID  string         `json:"template_id,omitempty"`
	Steps       []string       `json:"steps,omitempty"`
}

// TaskBatchResult is what one creation request produced.
type TaskBatchResult struct {
	Tasks         []Task         `json:"tasks"`
	Notifications []Notification `json:"notifications"`
}

// TaskFilter narrows a task listing.
type TaskFilter struct {
	AssignedTo  string
	FranchiseID string
	// Either matches tasks assigned to AssignedTo OR open to FranchiseID.
	Either bool
	Status TaskStatus
}

// TemplateTrigger is the declarative event a template is bound to.
type TemplateTrigger string

const (
	TriggerNone           TemplateTrigger = "none"
	TriggerAuctionCreated TemplateTrigger = "auction_created"
	TriggerLeadCreated    TemplateTrigger = "lead_created"
)

// Valid reports whether t is a known trigger.
func (t TemplateTrigger) Valid() bool {
	return t == TriggerNone || t == TriggerAuctionCreated || t == TriggerLeadCreated
}

// TemplateStep is one step of a task template.
type TemplateStep struct {
	ID         string `json:"id,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
	Title      string `json:"title"`
	OrderIndex int    `json:"order_index"`
}

// TaskTemplate pre-populates new tasks.
type TaskTemplate struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	TriggerEvent TemplateTrigger `json:"trigger_event"`
	Steps        []TemplateStep  `json:"steps,omitempty"`
}
