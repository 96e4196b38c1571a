package crawler

import (
	"sync"
	"time"

	"go.uber.org/ratelimit"
)

const (
	eventQueueMaxSize = 100
	errorQueueMaxSize = 10

	defaultInterval       = 5 * time.Second
	defaultRequestsPerSec = 10
)

type blockchainCrawler struct {
	interval     time.Duration
	source       ChainSource
	errChan      chan error
	eventChan    chan Event
	observables  map[string]*observableHandler
	errorHandler func(err error)
	rateLimiter  ratelimit.Limiter
	mutex        *sync.RWMutex
	stopped      bool
}

// Opts defines the parameters needed for creating a crawler service with
// NewService method
type Opts struct {
	Source         ChainSource
	Interval       time.Duration
	RequestsPerSec int
	ErrorHandler   func(err error)
}

// NewService returns a crawler that is ready to watch for blockchain
// activities. Use Start and Stop methods to manage it.
func NewService(opts Opts) Service {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	rps := opts.RequestsPerSec
	if rps <= 0 {
		rps = defaultRequestsPerSec
	}
	errorHandler := opts.ErrorHandler
	if errorHandler == nil {
		errorHandler = func(error) {}
	}

	return &blockchainCrawler{
		interval:     interval,
		source:       opts.Source,
		errChan:      make(chan error, errorQueueMaxSize),
		eventChan:    make(chan Event, eventQueueMaxSize),
		observables:  map[string]*observableHandler{},
		errorHandler: errorHandler,
		rateLimiter:  ratelimit.New(rps),
		mutex:        &sync.RWMutex{},
	}
}

// Start forwards the observation errors to the error handler until the
// crawler is stopped. It blocks and is meant to be run in its own goroutine.
func (bc *blockchainCrawler) Start() {
	for err := range bc.errChan {
		bc.errorHandler(err)
	}
}

// Stop stops observing everything, then emits a CloseEvent.
func (bc *blockchainCrawler) Stop() {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	if bc.stopped {
		return
	}
	bc.stopped = true

	wg := &sync.WaitGroup{}
	for key, obsHandler := range bc.observables {
		wg.Add(1)
		go func(oh *observableHandler) {
			defer wg.Done()
			oh.stop()
		}(obsHandler)
		delete(bc.observables, key)
	}
	wg.Wait()

	bc.eventChan <- CloseEvent{}
	close(bc.errChan)
}

// GetEventChannel returns Event channel which can be used to "listen" to
// blockchain events
func (bc *blockchainCrawler) GetEventChannel() chan Event {
	return bc.eventChan
}

// AddObservable adds new Observable to the list of Observables to be "watched
// over" only if the same Observable is not already in the list
func (bc *blockchainCrawler) AddObservable(observable Observable) {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	if bc.stopped {
		return
	}
	if _, ok := bc.observables[observable.key()]; ok {
		return
	}

	obsHandler := newObservableHandler(
		observable,
		bc.source,
		bc.interval,
		bc.eventChan,
		bc.errChan,
		bc.rateLimiter,
	)
	bc.observables[observable.key()] = obsHandler
	go obsHandler.start()
}

// RemoveObservable stops "watching" given Observable
func (bc *blockchainCrawler) RemoveObservable(observable Observable) {
	bc.mutex.Lock()
	obsHandler, ok := bc.observables[observable.key()]
	if ok {
		delete(bc.observables, observable.key())
	}
	bc.mutex.Unlock()

	if ok {
		obsHandler.stop()
	}
}

// IsObserving returns whether the given Observable is being watched.
func (bc *blockchainCrawler) IsObserving(observable Observable) bool {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()

	_, ok := bc.observables[observable.key()]
	return ok
}
