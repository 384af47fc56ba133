package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Boundary DTOs for the CRUD collaborators. The collaboration layer only
// consumes these at the interface; all business rules live server-side.

// Ticket is the full ticket resource.
type Ticket struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	SprintID    *string   `json:"sprint_id,omitempty"`
	EpicID      *string   `json:"epic_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority,omitempty"`
	AssigneeID  *string   `json:"assignee_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Project is the project resource.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Sprint is the sprint resource.
type Sprint struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Epic is the epic resource.
type Epic struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Summary   string    `json:"summary,omitempty"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// resource implements the CRUD surface shared by every collaborator
// collection endpoint.
type resource[T any] struct {
	c    *Client
	base string
}

func (r resource[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	path := r.base
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var items []T
	if err := r.c.getInto(ctx, path, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r resource[T]) Get(ctx context.Context, id string) (*T, error) {
	var item T
	if err := r.c.getInto(ctx, r.itemPath(id), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r resource[T]) Create(ctx context.Context, body any) (*T, error) {
	var item T
	if err := r.c.do(ctx, http.MethodPost, r.base, body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r resource[T]) Update(ctx context.Context, id string, body any) (*T, error) {
	var item T
	if err := r.c.do(ctx, http.MethodPut, r.itemPath(id), body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r resource[T]) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
}

func (r resource[T]) itemPath(id string) string {
	return fmt.Sprintf("%s/%s", r.base, url.PathEscape(id))
}

// TicketsClient is the ticket CRUD collaborator.
type TicketsClient struct{ resource[Ticket] }

// NewTicketsClient wraps the shared client with the ticket endpoints.
func NewTicketsClient(c *Client) *TicketsClient {
	return &TicketsClient{resource[Ticket]{c: c, base: "/tickets"}}
}

// ListByProject lists a project's tickets.
func (t *TicketsClient) ListByProject(ctx context.Context, projectID string) ([]Ticket, error) {
	return t.List(ctx, url.Values{"project_id": {projectID}})
}

// ProjectsClient is the project CRUD collaborator.
type ProjectsClient struct{ resource[Project] }

// NewProjectsClient wraps the shared client with the project endpoints.
func NewProjectsClient(c *Client) *ProjectsClient {
	return &ProjectsClient{resource[Project]{c: c, base: "/projects"}}
}

// SprintsClient is the sprint CRUD collaborator.
type SprintsClient struct{ resource[Sprint] }

// NewSprintsClient wraps the shared client with the sprint endpoints.
func NewSprintsClient(c *Client) *SprintsClient {
	return &SprintsClient{resource[Sprint]{c: c, base: "/sprints"}}
}

// ListByProject lists a project's sprints.
func (s *SprintsClient) ListByProject(ctx context.Context, projectID string) ([]Sprint, error) {
	return s.List(ctx, url.Values{"project_id": {projectID}})
}

// EpicsClient is the epic CRUD collaborator.
type EpicsClient struct{ resource[Epic] }

// NewEpicsClient wraps the shared client with the epic endpoints.
func NewEpicsClient(c *Client) *EpicsClient {
	return &EpicsClient{resource[Epic]{c: c, base: "/epics"}}
}

// ListByProject lists a project's epics.
func (e *EpicsClient) ListByProject(ctx context.Context, projectID string) ([]Epic, error) {
	return e.List(ctx, url.Values{"project_id": {projectID}})
}
