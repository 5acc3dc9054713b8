package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treadscan/treadscan/internal/domain/model"
)

func TestBroker_PublishReachesAllSubscribers(t *testing.T) {
	broker := NewBroker(BrokerOptions{})

	unsubA, chA := broker.Subscribe("")
	defer unsubA()
	unsubB, chB := broker.Subscribe("")
	defer unsubB()

	broker.Publish(model.Event{Kind: model.EventKindProgress, JobID: "job-1", Progress: 10})

	for _, ch := range []<-chan model.Event{chA, chB} {
		select {
		case ev := <-ch:
			assert.Equal(t, "job-1", ev.JobID)
			assert.Equal(t, 10, ev.Progress)
		default:
			t.Fatal("expected buffered event")
		}
	}
}

func TestBroker_JobIDFilter(t *testing.T) {
	broker := NewBroker(BrokerOptions{})

	unsub, ch := broker.Subscribe("job-2")
	defer unsub()

	broker.Publish(model.Event{Kind: model.EventKindProgress, JobID: "job-1"})
	broker.Publish(model.Event{Kind: model.EventKindCompleted, JobID: "job-2"})

	select {
	case ev := <-ch:
		assert.Equal(t, "job-2", ev.JobID)
		assert.Equal(t, model.EventKindCompleted, ev.Kind)
	default:
		t.Fatal("expected buffered event")
	}

	select {
	case ev := <-ch:
		t.Fatalf("unexpected extra event: %+v", ev)
	default:
	}
}

func TestBroker_PublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	broker := NewBroker(BrokerOptions{Buffer: 1})

	unsub, ch := broker.Subscribe("")
	defer unsub()

	// Second publish overflows the buffer and is dropped for this
	// subscriber; the call itself must return.
	broker.Publish(model.Event{Kind: model.EventKindProgress, JobID: "job-1", Progress: 10})
	broker.Publish(model.Event{Kind: model.EventKindProgress, JobID: "job-1", Progress: 30})

	ev := <-ch
	assert.Equal(t, 10, ev.Progress)

	select {
	case ev := <-ch:
		t.Fatalf("expected overflow event to be dropped, got %+v", ev)
	default:
	}
}

func TestBroker_LateSubscriberMissesEarlierEvents(t *testing.T) {
	broker := NewBroker(BrokerOptions{})

	broker.Publish(model.Event{Kind: model.EventKindProgress, JobID: "job-1"})

	unsub, ch := broker.Subscribe("")
	defer unsub()

	select {
	case ev := <-ch:
		t.Fatalf("late subscriber should not see earlier event: %+v", ev)
	default:
	}
}

func TestBroker_UnsubscribeClosesChannelAndIsIdempotent(t *testing.T) {
	broker := NewBroker(BrokerOptions{})

	unsub, ch := broker.Subscribe("")
	unsub()
	unsub()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	broker.Publish(model.Event{Kind: model.EventKindProgress, JobID: "job-1"})
}

func TestBroker_CloseStopsEverything(t *testing.T) {
	broker := NewBroker(BrokerOptions{})

	_, ch := broker.Subscribe("")
	broker.Close()

	_, open := <-ch
	require.False(t, open)

	_, late := broker.Subscribe("")
	_, open = <-late
	assert.False(t, open)
}
