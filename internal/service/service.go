package service

import (
	"context"
	"errors"
	"time"

	"irrigation_controller/internal/broker"
	"irrigation_controller/internal/link"
	"irrigation_controller/internal/logger"
	"irrigation_controller/internal/models"
	"irrigation_controller/internal/protocol"
	"irrigation_controller/internal/repository"
	"irrigation_controller/internal/telemetry"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Pump sends operator commands to the controller.
type Pump interface {
	Command(ctx context.Context, action string) (CommandResult, error)
}

// Monitoring exposes the controller's current status and live stream.
type Monitoring interface {
	GetStatus(ctx context.Context) (Status, error)
	Subscribe(buffer int) (<-chan telemetry.Line, func())
}

// EventLog exposes the append-only journal with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ControllerEvent, error)
}

// Recorder journals the controller stream until ctx is canceled.
type Recorder interface {
	Run(ctx context.Context)
}

// ControllerLink is the supervisor's connection to the controller.
type ControllerLink interface {
	Send(ctx context.Context, command string) (string, error)
	Latest() (link.Sample, bool)
	Connected() bool
	Status() (protocol.Status, bool)
	Subscribe(buffer int) (<-chan telemetry.Line, func())
}

var _ ControllerLink = (*link.Link)(nil)

// ErrMissingSigningKey is returned when auth is configured without a key.
var ErrMissingSigningKey = errors.New("auth signing key is empty")

// Deps carries the supervisor settings services need beyond the repositories.
type Deps struct {
	DeviceID   string
	SigningKey string
	TokenTTL   time.Duration
	CheckEvery time.Duration // connection status poll for the journal
	Sinks      broker.Sink   // may be nil
	Log        *logger.Logger
}

// Service aggregates all sub-services.
type Service struct {
	Pump
	Monitoring
	EventLog
	Recorder
	Authorization
}

func NewService(repos *repository.Repository, ln ControllerLink, d Deps) (*Service, error) {
	if d.SigningKey == "" {
		return nil, ErrMissingSigningKey
	}
	return &Service{
		Pump:          NewPumpService(ln, repos.EventRepo, d.Log),
		Monitoring:    NewMonitoringService(ln, repos.SnapshotRepo),
		EventLog:      NewEventLogService(repos.EventRepo),
		Recorder:      NewRecorderService(ln, repos.EventRepo, repos.SnapshotRepo, d),
		Authorization: NewAuthService(repos.Auth, d.SigningKey, d.TokenTTL),
	}, nil
}
