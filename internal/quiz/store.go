package quiz

import (
	"context"
	"time"
)

// Store owns quiz definitions, access grants, templates, and feedback.
type Store interface {
	Create(ctx context.Context, q Quiz) (Quiz, error)
	Get(ctx context.Context, id int64) (Quiz, error)
	// List performs the lazy expiry sweep: any non-overridden quiz whose
	// window lapsed before now is deactivated and the change persisted.
	List(ctx context.Context, now time.Time) ([]Quiz, error)
	// Toggle flips is_active and sets the sticky manual override.
	Toggle(ctx context.Context, id int64) (Quiz, error)

	Grant(ctx context.Context, userIDs []int64, quizID int64) error
	HasAccess(ctx context.Context, userID, quizID int64) (bool, error)
	GrantedUserIDs(ctx context.Context, quizID int64) ([]int64, error)
	Assigned(ctx context.Context, userID int64, now time.Time) ([]Quiz, error)

	Templates(ctx context.Context) ([]Template, error)
	Template(ctx context.Context, id int64) (Template, error)
	CreateTemplate(ctx context.Context, t Template) (Template, error)

	AddFeedback(ctx context.Context, f Feedback) (Feedback, error)
	// ListFeedback joins user and quiz names; quizID of 0 means no filter.
	ListFeedback(ctx context.Context, quizID int64) ([]Feedback, error)
}
