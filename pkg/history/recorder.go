// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package history emits history snapshots and other fire-and-forget events.
//
// Events are queued on a bounded channel and published by a single
// dispatcher goroutine. When the queue is full new events are dropped and
// counted; the write that produced them is never blocked or rolled back.
package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/constants"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/metrics"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/sentry"
)

const publishTimeout = 5 * time.Second

// ErrPublishFailure wraps every error returned by a Publisher.
var ErrPublishFailure = errors.New("failed to publish event")

// Publisher delivers an encoded event to a message broker.
type Publisher interface {
	Publish(ctx context.Context, exchange, eventName string, payload []byte) error
	Close() error
}

// Event is the envelope put on the wire.
type Event struct {
	ID     string      `json:"id"`
	Source string      `json:"source"`
	Type   string      `json:"type"`
	Time   time.Time   `json:"time"`
	Data   interface{} `json:"data"`
}

// Snapshot is the data of a history event.
type Snapshot struct {
	ID         string             `json:"id"`
	Collection string             `json:"collection"`
	Timestamp  time.Time          `json:"timestamp"`
	Object     *document.Document `json:"object"`
}

type outbound struct {
	exchange string
	event    Event
}

// Recorder publishes history snapshots and events in the background.
type Recorder struct {
	publisher Publisher
	exchange  string
	logger    *zap.SugaredLogger

	mu     sync.RWMutex
	closed bool
	queue  chan outbound
	done   chan struct{}
}

// NewRecorder starts the dispatcher. exchange is where history snapshots go.
func NewRecorder(publisher Publisher, exchange string, queueSize int, logger *zap.SugaredLogger) *Recorder {
	if publisher == nil {
		panic("NewRecorder: publisher must not be nil")
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if exchange == "" {
		exchange = constants.DefaultExchange
	}

	if queueSize <= 0 {
		queueSize = constants.DefaultHistoryQueueSize
	}

	r := &Recorder{
		publisher: publisher,
		exchange:  exchange,
		logger:    logger,
		queue:     make(chan outbound, queueSize),
		done:      make(chan struct{}),
	}

	go r.dispatch()

	return r
}

// Record enqueues a deep copy of doc as a history snapshot. It reports false
// when the snapshot was dropped.
func (r *Recorder) Record(doc *document.Document, historyCollection string) bool {
	now := time.Now().UTC()

	return r.Emit(r.exchange, constants.EventHistoryCreate, Snapshot{
		ID:         doc.ID,
		Collection: historyCollection,
		Timestamp:  now,
		Object:     doc.Clone(),
	})
}

// Emit enqueues an arbitrary event without blocking.
func (r *Recorder) Emit(exchange, eventName string, data interface{}) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.logger.Warnf("Dropping %s event: recorder is closed", eventName)
		metrics.RecordHistoryEvent("dropped")

		return false
	}

	msg := outbound{
		exchange: exchange,
		event: Event{
			ID:     uuid.NewString(),
			Source: constants.DefaultActor,
			Type:   eventName,
			Time:   time.Now().UTC(),
			Data:   data,
		},
	}

	select {
	case r.queue <- msg:
		metrics.SetHistoryQueueLength(len(r.queue))

		return true
	default:
		r.logger.Warnf("Dropping %s event: queue is full (%d)", eventName, cap(r.queue))
		metrics.RecordHistoryEvent("dropped")

		return false
	}
}

func (r *Recorder) dispatch() {
	defer close(r.done)

	for msg := range r.queue {
		metrics.SetHistoryQueueLength(len(r.queue))
		r.publish(msg)
	}
}

func (r *Recorder) publish(msg outbound) {
	defer func() {
		if rec := recover(); rec != nil {
			sentry.ReportIssuef(sentry.IssueTypeError, r.logger, "history publisher panicked: %v", rec)
			metrics.RecordHistoryEvent("failed")
		}
	}()

	payload, err := json.Marshal(msg.event)
	if err != nil {
		r.logger.Warnf("Failed to encode %s event: %v", msg.event.Type, err)
		metrics.RecordHistoryEvent("failed")

		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := r.publisher.Publish(ctx, msg.exchange, msg.event.Type, payload); err != nil {
		r.logger.Warnf("%v: %s to %s: %v", ErrPublishFailure, msg.event.Type, msg.exchange, err)
		metrics.RecordHistoryEvent("failed")

		return
	}

	metrics.RecordHistoryEvent("published")
}

// Close stops accepting events, drains the queue and closes the publisher.
// It returns ctx.Err() when draining does not finish in time.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()

		return nil
	}

	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return r.publisher.Close()
}
