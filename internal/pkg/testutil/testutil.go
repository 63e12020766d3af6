// Package testutil wires a throwaway injector for service tests.
package testutil

import (
	"testing"

	"github.com/samber/do/v2"
	"github.com/vreid/shiki-arena/internal/pkg/common"
	"github.com/vreid/shiki-arena/internal/pkg/events"
	"go.uber.org/zap"
)

const (
	Admin               = "admin"
	OperationsRecipient = "operations"
	DailyBurn           = int64(5000)
)

// NewInjector provides every named value and shared service the domain services need.
// The event channel is returned so tests can inspect emitted notifications.
func NewInjector(t *testing.T) (*do.RootScope, chan events.Event) {
	t.Helper()

	i := do.New()

	do.ProvideNamedValue(i, "port", 0)
	do.ProvideNamedValue(i, "data-dir", t.TempDir())
	do.ProvideNamedValue(i, "admin", Admin)
	do.ProvideNamedValue(i, "operations-recipient", OperationsRecipient)
	do.ProvideNamedValue(i, "daily-burn", DailyBurn)
	do.ProvideNamedValue(i, "health-schedule", "@every 1h")

	eventChan := make(chan events.Event, 100000)
	var eventSource <-chan events.Event = eventChan
	var eventSink chan<- events.Event = eventChan

	do.ProvideNamedValue(i, "event-source", eventSource)
	do.ProvideNamedValue(i, "event-sink", eventSink)

	do.ProvideValue(i, zap.NewNop().Sugar())
	do.Provide(i, common.NewCallGuard)
	do.Provide(i, common.NewDatabaseService)
	do.Provide(i, common.NewEchoService)

	t.Cleanup(func() {
		_ = i.Shutdown()
	})

	return i, eventChan
}

// Drain empties the channel and returns what it held.
func Drain(c chan events.Event) []events.Event {
	var result []events.Event

	for {
		select {
		case e := <-c:
			result = append(result, e)
		default:
			return result
		}
	}
}
