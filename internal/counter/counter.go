package counter

import "sync"

// Counter is a goroutine-owned tally. Adds are synchronous, so Count reflects every Add
// that returned before it was called.
type Counter struct {
	addChan   chan int
	countChan chan int
	done      chan struct{}
	stopOnce  sync.Once
}

// NewCounter creates and starts a Counter; Stop releases its goroutine.
func NewCounter() *Counter {
	c := &Counter{
		addChan:   make(chan int),
		countChan: make(chan int),
		done:      make(chan struct{}),
	}

	go c.receiveCounts()
	return c
}

func (c *Counter) receiveCounts() {
	var total int
	for {
		select {
		case add := <-c.addChan:
			total += add
		case c.countChan <- total:
		case <-c.done:
			close(c.countChan)
			return
		}
	}
}

func (c *Counter) Add(value int) {
	select {
	case c.addChan <- value:
	case <-c.done:
	}
}

func (c *Counter) Inc() {
	c.Add(1)
}

// Count returns the current total, or 0 once the counter is stopped.
func (c *Counter) Count() int {
	select {
	case <-c.done:
		return 0
	default:
	}
	return <-c.countChan
}

func (c *Counter) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}
