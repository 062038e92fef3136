package backend

import (
	"context"
	"fmt"
	"log/slog"

	"plata/internal/events"
	"plata/internal/store"
	"plata/internal/store/firestore"
	"plata/internal/store/memory"
	"plata/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		st  store.Store
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		st, err = sqlite.New(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
	case FirestoreBackend:
		st, err = firestore.New(ctx, config.FirestoreProjectID, config.FirestoreCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Firestore store: %w", err)
		}
		f.logger.Info("Initialized Firestore store", "project_id", config.FirestoreProjectID)
	case MemoryBackend:
		st = memory.New()
		f.logger.Info("Initialized memory store")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	// AMQP is optional: without it, summary increments are applied
	// in-process instead of through the worker.
	var eventsClient *events.Client
	if config.AMQPURL != "" {
		eventsClient, err = events.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without event stream", "error", err)
			eventsClient = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	cleanup := func() error {
		if eventsClient != nil {
			if err := eventsClient.Close(); err != nil {
				f.logger.Warn("Failed to close AMQP client", "error", err)
			}
		}
		return st.Close()
	}

	return &Result{
		Store:   st,
		Events:  eventsClient,
		Cleanup: cleanup,
	}, nil
}
