package avifworker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"imgconv/internal/blob"
	"imgconv/internal/logging"
	"imgconv/internal/services"
)

// ErrChannelClosed is returned by Encode once Close has been called.
var ErrChannelClosed = errors.New("avif encode channel closed")

// ErrWorkerFaulted is returned by Encode after the worker died outside a
// request. A Channel never starts a second worker.
var ErrWorkerFaulted = errors.New("avif worker faulted")

// ErrInvalidFrame marks pixel buffers that do not match the stated size.
var ErrInvalidFrame = errors.New("invalid rgba frame")

// Worker consumes requests until ctx is cancelled and posts one Response per
// request it handles. A panic escaping the worker is treated as an
// uncorrelated fault and retires the channel.
type Worker func(ctx context.Context, in <-chan Request, post func(Response))

// FaultHook observes worker faults that are not tied to a request.
type FaultHook func(err error)

// Option customises a Channel.
type Option func(*Channel)

// WithLogger sets the channel logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithWorker replaces the codec worker.
func WithWorker(worker Worker) Option {
	return func(c *Channel) {
		if worker != nil {
			c.worker = worker
		}
	}
}

// WithLoader sets how the default worker obtains its codec.
func WithLoader(loader Loader) Option {
	return func(c *Channel) {
		if loader != nil {
			c.loader = loader
		}
	}
}

// WithFaultHook registers a callback for uncorrelated worker faults.
func WithFaultHook(hook FaultHook) Option {
	return func(c *Channel) {
		c.faultHook = hook
	}
}

// WithCopyPixels makes Encode copy the caller's pixel buffer before posting
// it, so the caller may reuse the buffer immediately.
func WithCopyPixels() Option {
	return func(c *Channel) {
		c.copyPixels = true
	}
}

// Channel is the request/response link to the AVIF worker.
type Channel struct {
	logger     *slog.Logger
	worker     Worker
	loader     Loader
	faultHook  FaultHook
	copyPixels bool

	requests chan Request
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan Response
	running bool
	starts  int
	closed  bool
	fault   error
}

// New constructs an idle channel. No goroutine runs until the first Encode.
func New(opts ...Option) *Channel {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		logger:   logging.NewNop(),
		requests: make(chan Request, 16),
		ctx:      ctx,
		cancel:   cancel,
		pending:  make(map[uint64]chan Response),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "avifworker")
	if c.worker == nil {
		c.worker = NewCodecWorker(c.loader, c.logger)
	}
	return c
}

// Encode sends one frame to the worker and waits for its result. The pixel
// buffer is handed to the worker for the duration of the call and must not be
// modified until Encode returns, unless the channel copies pixels.
func (c *Channel) Encode(ctx context.Context, width, height int, rgba []byte, quality int) (blob.Blob, error) {
	if width <= 0 || height <= 0 || len(rgba) != width*height*4 {
		return blob.Blob{}, fmt.Errorf("%w: %dx%d with %d bytes", ErrInvalidFrame, width, height, len(rgba))
	}
	if ctx == nil {
		ctx = context.Background()
	}
	pixels := rgba
	if c.copyPixels {
		pixels = append([]byte(nil), rgba...)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return blob.Blob{}, ErrChannelClosed
	}
	if c.fault != nil {
		err := c.fault
		c.mu.Unlock()
		return blob.Blob{}, services.Wrap(services.ErrEncoderUnavailable, "avif", "encode", err.Error(), ErrWorkerFaulted)
	}
	c.nextID++
	id := c.nextID
	done := make(chan Response, 1)
	c.pending[id] = done
	c.ensureWorkerLocked()
	c.mu.Unlock()

	req := Request{Kind: KindEncode, ID: id, Width: width, Height: height, Pixels: pixels, Quality: quality}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		c.forget(id)
		return blob.Blob{}, ctx.Err()
	case <-c.ctx.Done():
		c.forget(id)
		return blob.Blob{}, ErrChannelClosed
	}

	select {
	case resp := <-done:
		return decodeResponse(resp)
	case <-ctx.Done():
		c.forget(id)
		return blob.Blob{}, ctx.Err()
	case <-c.ctx.Done():
		c.forget(id)
		return blob.Blob{}, ErrChannelClosed
	}
}

// Pending reports how many requests await a response.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// WorkerStarts reports how many times a worker goroutine has been started.
func (c *Channel) WorkerStarts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

// Close stops the worker and fails every later Encode with ErrChannelClosed.
// Requests still waiting return ErrChannelClosed as well.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
	return nil
}

func (c *Channel) ensureWorkerLocked() {
	if c.running || c.starts > 0 {
		return
	}
	c.running = true
	c.starts++
	c.wg.Add(1)
	go c.run()
}

func (c *Channel) run() {
	defer c.wg.Done()
	defer func() {
		r := recover()
		var err error
		switch {
		case r != nil:
			err = fmt.Errorf("avif worker panic: %v", r)
		case c.ctx.Err() == nil:
			err = errors.New("avif worker returned before Close")
		}
		c.mu.Lock()
		c.running = false
		c.fault = err
		c.mu.Unlock()
		if err != nil {
			c.reportFault(err, debug.Stack())
		}
	}()
	c.logger.Debug("avif worker started")
	c.worker(c.ctx, c.requests, c.deliver)
}

// deliver resolves the pending request matching resp. The entry is removed
// before the waiter is signalled, so a duplicate response finds nothing.
func (c *Channel) deliver(resp Response) {
	if resp.Kind != KindResult {
		c.logger.Debug("ignoring worker message", logging.String("kind", resp.Kind))
		return
	}
	c.mu.Lock()
	done, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("ignoring response for unknown request", logging.Uint64("request_id", resp.ID))
		return
	}
	done <- resp
}

func (c *Channel) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Channel) reportFault(err error, stack []byte) {
	logging.ErrorWithContext(c.logger, "avif worker fault", "avif_worker_fault",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "pending encodes stay pending until their context ends; later encodes fail"),
		logging.Int("pending", c.Pending()),
		logging.String("stack", string(stack)),
	)
	if c.faultHook != nil {
		c.faultHook(err)
	}
}

func decodeResponse(resp Response) (blob.Blob, error) {
	if !resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = "unknown codec failure"
		}
		return blob.Blob{}, services.Wrap(services.ErrCodec, "avif", "encode", fmt.Sprintf("request %d", resp.ID), errors.New(msg))
	}
	mime := resp.MIME
	if mime == "" {
		mime = blob.TypeAVIF
	}
	return blob.New(resp.Bytes, mime), nil
}
