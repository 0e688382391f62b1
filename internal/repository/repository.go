package repository

import (
	"context"
	"database/sql"
	"time"

	"irrigation_controller/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// SnapshotRepo keeps the last known controller status across supervisor restarts.
type SnapshotRepo interface {
	Save(ctx context.Context, s models.ControllerSnapshot) error
	Load(ctx context.Context) (models.ControllerSnapshot, error)
}

// EventRepo is the append-only journal.
type EventRepo interface {
	Append(ctx context.Context, e models.ControllerEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.ControllerEvent, error)
}

type Repository struct {
	SnapshotRepo SnapshotRepo
	EventRepo    EventRepo
	Auth         Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		SnapshotRepo: NewSnapshotSQLite(db),
		EventRepo:    NewEventSQLite(db),
		Auth:         NewUserRepository(db),
	}
}
