package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sandeepkv93/streakd/internal/calendar"
)

var (
	ErrInvalidTriggerTime = errors.New("scheduler: invalid trigger time")
	ErrMissingKey         = errors.New("scheduler: event needs a habit id or id")
	ErrStopped            = errors.New("scheduler: engine stopped")
)

const TypeNagging = "Nagging"

// ReminderEvent announces a habit occurrence. At most one event per habit
// is pending at a time.
type ReminderEvent struct {
	ID         string
	HabitID    string
	TaskID     string
	Title      string
	Type       string
	Occurrence calendar.Date
	TriggerAt  time.Time
}

func (ev ReminderEvent) key() string {
	if ev.HabitID != "" {
		return ev.HabitID
	}
	return ev.ID
}

type queueItem struct {
	event ReminderEvent
	index int
}

type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].event.TriggerAt.Before(pq[j].event.TriggerAt)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[0 : n-1]
	return item
}

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithNagInterval re-queues Nagging events this long after they fire until
// they are cancelled or replaced.
func WithNagInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.nag = d
	}
}

type Engine struct {
	mu      sync.Mutex
	queue   priorityQueue
	byKey   map[string]*queueItem
	out     chan ReminderEvent
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
	nag     time.Duration
	logger  *zap.Logger
}

func NewEngine(bufferSize int, opts ...Option) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	e := &Engine{
		queue:  make(priorityQueue, 0),
		byKey:  make(map[string]*queueItem),
		out:    make(chan ReminderEvent, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) C() <-chan ReminderEvent {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

// Schedule queues ev, replacing any pending event for the same habit.
func (e *Engine) Schedule(ev ReminderEvent) error {
	if ev.TriggerAt.IsZero() {
		return ErrInvalidTriggerTime
	}
	key := ev.key()
	if key == "" {
		return ErrMissingKey
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}

	if item, ok := e.byKey[key]; ok {
		item.event = ev
		heap.Fix(&e.queue, item.index)
	} else {
		item := &queueItem{event: ev}
		heap.Push(&e.queue, item)
		e.byKey[key] = item
	}
	e.signalWakeup()
	return nil
}

// Cancel drops the pending event for a habit, if any.
func (e *Engine) Cancel(habitID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	item, ok := e.byKey[habitID]
	if !ok {
		return false
	}
	heap.Remove(&e.queue, item.index)
	delete(e.byKey, habitID)
	e.signalWakeup()
	return true
}

// Pending returns queued events ordered by trigger time.
func (e *Engine) Pending() []ReminderEvent {
	e.mu.Lock()
	snapshot := make(priorityQueue, len(e.queue))
	for i, item := range e.queue {
		snapshot[i] = &queueItem{event: item.event, index: i}
	}
	e.mu.Unlock()

	out := make([]ReminderEvent, 0, len(snapshot))
	for snapshot.Len() > 0 {
		out = append(out, heap.Pop(&snapshot).(*queueItem).event)
	}
	return out
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := time.Until(next.TriggerAt)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			due := e.popDue(time.Now().UTC())
			for _, ev := range due {
				select {
				case e.out <- ev:
				default:
					atomic.AddUint64(&e.dropped, 1)
					e.logger.Warn("reminder dropped", zap.String("habit_id", ev.HabitID), zap.String("event_id", ev.ID))
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			if timer != nil {
				stopTimer(timer)
			}
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (ReminderEvent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return ReminderEvent{}, false
	}
	return e.queue[0].event, true
}

func (e *Engine) popDue(now time.Time) []ReminderEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]ReminderEvent, 0)
	var again []ReminderEvent
	for len(e.queue) > 0 {
		next := e.queue[0].event
		if next.TriggerAt.After(now) {
			break
		}
		item := heap.Pop(&e.queue).(*queueItem)
		delete(e.byKey, item.event.key())
		out = append(out, item.event)
		if item.event.Type == TypeNagging && e.nag > 0 {
			ev := item.event
			ev.TriggerAt = now.Add(e.nag)
			again = append(again, ev)
		}
	}
	for _, ev := range again {
		item := &queueItem{event: ev}
		heap.Push(&e.queue, item)
		e.byKey[ev.key()] = item
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
