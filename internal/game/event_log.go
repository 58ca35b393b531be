package game

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize      = 256                    // Retained events for debug reads
	MaxEventsPerSec      = 10000                  // Global rate limit
	MaxEventsPerPlayer   = 100                    // Per-player rate limit per second
	FileChanSize         = 512                    // Async writer queue depth
	BatchFlushSize       = 64                     // Events per batch write
	BatchFlushInterval   = 100 * time.Millisecond // How often to flush
	PlayerLimiterCleanup = 5 * time.Minute        // Cleanup interval for player limiters
)

// EventLog is the bounded battle event log. The newest EventBufferSize
// events stay readable in memory for DebugState; an optional async writer
// appends everything to a newline-delimited JSON file.
type EventLog struct {
	mu   sync.Mutex
	ring [EventBufferSize]Event
	seq  uint64 // total events appended; ring index derives from it

	// Rate limiting keeps a misbehaving caller from flooding the log.
	globalLimiter  *rate.Limiter
	playerLimiters sync.Map // map[string]*playerLimiterEntry

	// Async writer
	fileChan chan Event
	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	filePath string
	file     *os.File
	fileMu   sync.Mutex

	// Stats for monitoring
	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

// playerLimiterEntry tracks per-player rate limiting
type playerLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewEventLog creates a new bounded event log. Events are retained in
// memory immediately; call Start to also persist them to disk.
func NewEventLog() *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		fileChan:      make(chan Event, FileChanSize),
		stopChan:      make(chan struct{}),
	}
}

// Start begins the async writer goroutines.
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	el.filePath = filePath

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		el.file = file
	}

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()

	return nil
}

// Stop gracefully shuts down the async writer. In-memory events remain
// readable after Stop.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		if el.file != nil {
			el.file.Close()
		}
		el.fileMu.Unlock()
	})
}

// Emit appends an event, subject to rate limiting. Returns false if the
// event was dropped.
func (el *EventLog) Emit(event Event) bool {
	if !el.globalLimiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	if event.PlayerID != "" {
		limiter := el.getPlayerLimiter(event.PlayerID)
		if !limiter.Allow() {
			atomic.AddUint64(&el.droppedCount, 1)
			return false
		}
	}

	el.mu.Lock()
	event.Sequence = el.seq
	el.ring[el.seq%EventBufferSize] = event
	el.seq++
	el.mu.Unlock()

	atomic.AddUint64(&el.totalCount, 1)

	// Hand off to the file writer without ever blocking the tick.
	if el.running.Load() {
		select {
		case el.fileChan <- event:
		default:
			atomic.AddUint64(&el.droppedCount, 1)
		}
	}
	return true
}

// EmitSimple is a convenience method to build and emit an event.
func (el *EventLog) EmitSimple(eventType EventType, tickNum uint64, playerID string, payload interface{}) bool {
	return el.Emit(NewEvent(eventType, tickNum, playerID, payload))
}

// Recent returns up to n of the most recent events, oldest first.
func (el *EventLog) Recent(n int) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	if n <= 0 {
		return nil
	}
	available := el.seq
	if available > EventBufferSize {
		available = EventBufferSize
	}
	if uint64(n) > available {
		n = int(available)
	}

	out := make([]Event, 0, n)
	for i := el.seq - uint64(n); i < el.seq; i++ {
		out = append(out, el.ring[i%EventBufferSize])
	}
	return out
}

// getPlayerLimiter returns/creates a per-player rate limiter
func (el *EventLog) getPlayerLimiter(playerID string) *rate.Limiter {
	if entry, ok := el.playerLimiters.Load(playerID); ok {
		e := entry.(*playerLimiterEntry)
		e.lastUsed = time.Now()
		return e.limiter
	}

	entry := &playerLimiterEntry{
		limiter:  rate.NewLimiter(MaxEventsPerPlayer, MaxEventsPerPlayer/10),
		lastUsed: time.Now(),
	}
	actual, _ := el.playerLimiters.LoadOrStore(playerID, entry)
	return actual.(*playerLimiterEntry).limiter
}

// writerLoop batches and writes events to disk asynchronously
func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)

	flush := func() {
		if len(batch) > 0 {
			el.flushBatch(batch)
			batch = batch[:0]
		}
	}

	for {
		select {
		case <-el.stopChan:
			// Drain whatever is still queued, then final flush.
			for {
				select {
				case ev := <-el.fileChan:
					batch = append(batch, ev)
					if len(batch) >= BatchFlushSize {
						flush()
					}
				default:
					flush()
					return
				}
			}

		case ev := <-el.fileChan:
			batch = append(batch, ev)
			if len(batch) >= BatchFlushSize {
				flush()
			}

		case <-ticker.C:
			flush()
		}
	}
}

// cleanupLoop removes stale player limiters to prevent memory leak
func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(PlayerLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupPlayerLimiters()
		}
	}
}

// cleanupPlayerLimiters removes inactive player limiters
func (el *EventLog) cleanupPlayerLimiters() {
	cutoff := time.Now().Add(-PlayerLimiterCleanup)
	el.playerLimiters.Range(func(key, value interface{}) bool {
		entry := value.(*playerLimiterEntry)
		if entry.lastUsed.Before(cutoff) {
			el.playerLimiters.Delete(key)
		}
		return true
	})
}

// flushBatch writes events to disk (append-only, newline-delimited JSON)
func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.file == nil {
		return
	}

	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		el.file.Write(data)
		el.file.Write([]byte("\n"))
	}
}

// GetStats returns metrics for monitoring
func (el *EventLog) GetStats() map[string]interface{} {
	el.mu.Lock()
	seq := el.seq
	el.mu.Unlock()

	retained := seq
	if retained > EventBufferSize {
		retained = EventBufferSize
	}

	return map[string]interface{}{
		"total":    atomic.LoadUint64(&el.totalCount),
		"dropped":  atomic.LoadUint64(&el.droppedCount),
		"retained": retained,
		"running":  el.running.Load(),
	}
}

// GetDroppedCount returns the number of dropped events
func (el *EventLog) GetDroppedCount() uint64 {
	return atomic.LoadUint64(&el.droppedCount)
}

// GetTotalCount returns the total number of events processed
func (el *EventLog) GetTotalCount() uint64 {
	return atomic.LoadUint64(&el.totalCount)
}
