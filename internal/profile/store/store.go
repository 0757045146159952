package store

import (
	"context"
	"time"

	"accord/internal/profile/models"
	id "accord/pkg/domain"
)

// Repository stages profile mutations inside a unit of work. Nothing is
// visible to other readers until Commit.
type Repository interface {
	// Add stages an insert. Duplicate user id surfaces as
	// sentinel.ErrConflict, here or at Commit depending on the backend.
	Add(ctx context.Context, profile *models.Profile) error
	// GetByUserID returns the committed profile for the external user id, or
	// sentinel.ErrNotFound.
	GetByUserID(ctx context.Context, userID id.UserID) (*models.Profile, error)
	// ConfirmEmail stages the Unconfirmed -> Active transition for the
	// profile with this email. sentinel.ErrNotFound when no profile matches;
	// an already-active profile stages a no-op.
	ConfirmEmail(ctx context.Context, email string, confirmedAt time.Time) error
}

// UnitOfWork is the transactional boundary for one consumed message: at most
// one Commit per message, zero on failure. Rollback after Commit is a no-op
// so callers can defer it.
type UnitOfWork interface {
	Profiles() Repository
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Factory opens units of work. The application service begins exactly one
// per operation.
type Factory interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}
