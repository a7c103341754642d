package mailer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Dispatcher drains a Queue with a fixed pool of workers. Enqueue never
// waits for delivery; failed sends are logged and dropped.
type Dispatcher struct {
	queue       Queue
	sender      Sender
	logger      logrus.FieldLogger
	workers     int
	sendTimeout time.Duration

	wg      sync.WaitGroup
	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// DispatcherConfig holds dispatcher settings.
type DispatcherConfig struct {
	Workers     int
	SendTimeout time.Duration
}

// NewDispatcher creates a dispatcher. Call Start to begin delivery.
func NewDispatcher(queue Queue, sender Sender, logger logrus.FieldLogger, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dispatcher{
		queue:       queue,
		sender:      sender,
		logger:      logger,
		workers:     cfg.Workers,
		sendTimeout: cfg.SendTimeout,
	}
}

// Enqueue hands a message to the queue.
func (d *Dispatcher) Enqueue(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	return d.queue.Push(ctx, msg)
}

// Start launches the workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true

	workerCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.logger.WithField("workers", d.workers).Info("starting mail dispatcher")
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(workerCtx, i)
	}
}

// Stop cancels the workers and waits for in-flight sends to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	cancel := d.cancel
	d.mu.Unlock()

	cancel()
	d.wg.Wait()
	d.logger.Info("mail dispatcher stopped")
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	log := d.logger.WithField("worker_id", id)

	for {
		msg, err := d.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrQueueClosed) {
				return
			}
			log.WithError(err).Warn("failed to read mail queue")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		d.deliver(log, msg)
	}
}

func (d *Dispatcher) deliver(log logrus.FieldLogger, msg Message) {
	// 独立的超时，Stop 时不打断正在发送的邮件
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"to":      msg.To,
			"subject": msg.Subject,
		}).Error("failed to deliver mail")
		return
	}
	log.WithField("to", msg.To).Debug("mail delivered")
}
