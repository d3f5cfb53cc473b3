package validation

import "time"

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,username"`
	Email     string `json:"email" validate:"required,email,max=255"`
	FirstName string `json:"first_name" validate:"required,notblank,max=100"`
	LastName  string `json:"last_name" validate:"required,notblank,max=100"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the JSON form of POST /auth/token.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateRoleRequest is the body of PATCH /users/{username}/role.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

// CreateTeamRequest is the body of POST /teams.
type CreateTeamRequest struct {
	Name        string   `json:"name" validate:"required,notblank,max=100"`
	Description string   `json:"description" validate:"max=1000"`
	LeaderID    string   `json:"leader_id" validate:"required,username"`
	MemberIDs   []string `json:"member_ids" validate:"omitempty,dive,required,username"`
}

// UpdateTeamRequest is the body of PATCH /teams/{id}.
type UpdateTeamRequest struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// AddMemberRequest is the body of POST /teams/{id}/members.
type AddMemberRequest struct {
	Username string `json:"username" validate:"required,username"`
}

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	TeamID      string     `json:"team_id" validate:"required,objectid"`
	Title       string     `json:"title" validate:"required,notblank,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	AssignedTo  string     `json:"assigned_to" validate:"required,username"`
	Status      string     `json:"status" validate:"omitempty,notblank,max=50"`
	Priority    string     `json:"priority" validate:"omitempty,priority"`
	DueDate     *time.Time `json:"due_date"`
}

// UpdateTaskRequest is the body of PATCH /tasks/{id}. Absent fields are left
// unchanged.
type UpdateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	AssignedTo  *string    `json:"assigned_to" validate:"omitempty,username"`
	Priority    *string    `json:"priority" validate:"omitempty,priority"`
	DueDate     *time.Time `json:"due_date"`
}

// StatusRequest is the body of PATCH /tasks/{id}/status.
type StatusRequest struct {
	Status string `json:"status" validate:"required,notblank,max=50"`
}

// CommentRequest is the body of POST /tasks/{id}/comments.
type CommentRequest struct {
	Text string `json:"text" validate:"required,notblank,max=5000"`
}

// InternalNotificationRequest is the body of POST /tasks/notifications/internal.
type InternalNotificationRequest struct {
	UserID  string `json:"user_id" validate:"required,username"`
	Title   string `json:"title" validate:"required,notblank,max=200"`
	Message string `json:"message" validate:"required,notblank,max=2000"`
	Link    string `json:"link" validate:"max=500"`
	Type    string `json:"type" validate:"required,notiftype"`
}
