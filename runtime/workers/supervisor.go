package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"collabrick/contract"
	"collabrick/errors"
)

// Supervisor owns a context and a cancel function.
// Runs each worker in a goroutine, recovers panics, restarts crashed
// workers after a delay, shuts down when the parent context is canceled,
// and waits for every goroutine through a WaitGroup.
type Supervisor struct {
	Cancel          context.CancelFunc
	wg              *sync.WaitGroup
	log             *slog.Logger
	restartInterval time.Duration
	workers         []contract.Worker
}

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	return &Supervisor{wg: &sync.WaitGroup{}, log: log, restartInterval: restartInterval}
}

// Run creates a local cancellation trigger tied to the parent ctx: if the
// parent cancels, the children cancel; if Stop is called, only the children
// cancel. Blocks until every supervised worker has finished.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer s.Cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs a worker under supervision in a dedicated goroutine. If its
// Run method panics, the supervisor recovers and restarts the worker after
// the restart interval; a failure in one worker never stops the supervisor
// itself.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	workerName := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()

		for {
			if ctx.Err() != nil {
				s.log.Info(fmt.Sprintf("Stopping : %s", workerName))
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = errors.ErrWorkerPanic
					}
				}()
				return worker.Run(ctx)
			}()

			if err == nil {
				// Terminated properly, never restart.
				s.log.Info(fmt.Sprintf("Worker finished : %s", workerName))
				return
			}

			if ctx.Err() != nil {
				s.log.Info("Worker stopped (context canceled)", "name", workerName)
				return
			}

			s.log.Warn("Worker crashed, restarting", "name", workerName, "error", err)
			select {
			case <-ctx.Done():
				// Priority stop: exit without waiting out the restart delay.
				return
			case <-time.After(s.restartInterval):
			}
		}
	}()
}

// Stop cancels every supervised goroutine; Run keeps waiting for them to
// drain before returning.
func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}
