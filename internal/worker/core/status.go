package core

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	// HeartbeatInterval is how often workers report their status.
	HeartbeatInterval = 10 * time.Second

	// HeartbeatTTL is how long a worker's status remains stored.
	HeartbeatTTL = 10 * time.Minute

	// StaleThreshold is how long before a worker is considered offline.
	StaleThreshold = 1 * time.Minute

	keyPrefix = "worker:"
)

// Status represents a worker's current state.
type Status struct {
	WorkerID    string    `json:"workerId"`
	WorkerType  string    `json:"workerType"`
	LastSeen    time.Time `json:"lastSeen"`
	CurrentTask string    `json:"currentTask,omitempty"`
	LastSweep   time.Time `json:"lastSweep"`
	Processed   int       `json:"processed"`
	Failed      int       `json:"failed"`
	IsHealthy   bool      `json:"isHealthy"`
}

// IsStale reports whether the worker missed enough heartbeats to count as offline.
func (s Status) IsStale(now time.Time) bool {
	return now.Sub(s.LastSeen) > StaleThreshold
}

// Key returns the Redis key the status is stored under.
func (s Status) Key() string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, s.WorkerType, s.WorkerID)
}

// Monitor handles worker status reporting and querying.
type Monitor struct {
	client rueidis.Client
	logger *zap.Logger
}

// NewMonitor creates a new worker status monitor.
func NewMonitor(client rueidis.Client, logger *zap.Logger) *Monitor {
	return &Monitor{
		client: client,
		logger: logger,
	}
}

// ReportStatus stores a worker's status with a TTL.
func (m *Monitor) ReportStatus(ctx context.Context, status Status) error {
	status.LastSeen = time.Now()

	data, err := sonic.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	err = m.client.Do(ctx, m.client.B().Set().Key(status.Key()).Value(string(data)).Ex(HeartbeatTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to store status: %w", err)
	}

	return nil
}

// GetAllStatuses retrieves all stored worker statuses.
func (m *Monitor) GetAllStatuses(ctx context.Context) ([]Status, error) {
	var (
		keys   []string
		cursor uint64
	)

	for {
		entry, err := m.client.Do(ctx,
			m.client.B().Scan().Cursor(cursor).Match(keyPrefix+"*").Count(100).Build(),
		).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to scan worker keys: %w", err)
		}

		keys = append(keys, entry.Elements...)

		cursor = entry.Cursor
		if cursor == 0 {
			break
		}
	}

	statuses := make([]Status, 0, len(keys))

	for _, key := range keys {
		data, err := m.client.Do(ctx, m.client.B().Get().Key(key).Build()).AsBytes()
		if err != nil {
			// Expired between scan and get
			if rueidis.IsRedisNil(err) {
				continue
			}

			m.logger.Error("Failed to get worker status", zap.String("key", key), zap.Error(err))

			continue
		}

		var status Status
		if err := sonic.Unmarshal(data, &status); err != nil {
			m.logger.Error("Failed to unmarshal worker status", zap.String("key", key), zap.Error(err))
			continue
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}
