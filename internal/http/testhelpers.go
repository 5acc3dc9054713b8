package httpx

import (
	"time"

	"github.com/treadscan/treadscan/internal/core"
	"github.com/treadscan/treadscan/internal/data"
	"github.com/treadscan/treadscan/internal/events"
)

// recordingQueue captures submitted job IDs for assertions.
type recordingQueue struct {
	submitted []string
}

func (q *recordingQueue) Submit(jobID string) {
	q.submitted = append(q.submitted, jobID)
}

// testEnv wires a router against in-memory backends.
type testEnv struct {
	registry *core.JobRegistry
	queue    *recordingQueue
	broker   *events.Broker
	handler  RouterServices
}

func newTestEnv() *testEnv {
	// A strictly increasing clock keeps list ordering deterministic.
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	registry := core.NewJobRegistry(core.JobRegistryOptions{
		Now: func() time.Time {
			now = now.Add(time.Millisecond)
			return now
		},
	})
	queue := &recordingQueue{}
	broker := events.NewBroker(events.BrokerOptions{})
	snapshots := core.NewSnapshotService(core.SnapshotServiceOptions{
		Artifacts: data.NewMemoryArtifactRepo(data.MemoryArtifactRepoOptions{}),
		Registry:  registry,
		TTL:       time.Hour,
	})

	return &testEnv{
		registry: registry,
		queue:    queue,
		broker:   broker,
		handler: RouterServices{
			Registry:         registry,
			Queue:            queue,
			Snapshots:        snapshots,
			Broker:           broker,
			MaxSnapshotBytes: 1 << 20,
		},
	}
}
