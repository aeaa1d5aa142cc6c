package proc

import (
	"io"
	"log"
	"os"
	"os/signal"
	"sync"

	"github.com/josephlewis42/osh/core/logger"
	"golang.org/x/sys/unix"
)

// Reaper reclaims background children as they terminate so they don't
// linger as zombies while the shell waits for input.
//
// Only tracked processes are waited on. Foreground children belong to the
// exec.Cmd that started them and waiting on every child would steal their
// exit status.
type Reaper struct {
	logger *log.Logger
	events EventRecorder

	mu      sync.Mutex
	pending map[int]*os.Process

	sigs chan os.Signal
	done chan struct{}
	wg   sync.WaitGroup
}

// NewReaper creates a reaper, logger and events may be nil.
func NewReaper(l *log.Logger, events EventRecorder) *Reaper {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}

	return &Reaper{
		logger:  l,
		events:  events,
		pending: make(map[int]*os.Process),
	}
}

// Start reaps terminated children whenever SIGCHLD is delivered, until Stop
// is called.
func (r *Reaper) Start() {
	r.sigs = make(chan os.Signal, 1)
	r.done = make(chan struct{})
	signal.Notify(r.sigs, unix.SIGCHLD)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-r.sigs:
				r.Reap()
			case <-r.done:
				return
			}
		}
	}()
}

// Stop ends signal driven reaping. Tracked children are left alone.
func (r *Reaper) Stop() {
	if r.done == nil {
		return
	}

	signal.Stop(r.sigs)
	close(r.done)
	r.wg.Wait()
	r.done = nil
}

// Track hands a started background process to the reaper.
func (r *Reaper) Track(p *os.Process) {
	r.mu.Lock()
	r.pending[p.Pid] = p
	r.mu.Unlock()

	// The child may have exited before it was tracked, in which case its
	// SIGCHLD has already been handled.
	r.Reap()
}

// Reap collects every tracked child that has terminated without blocking and
// returns how many were collected.
func (r *Reaper) Reap() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	reaped := 0
	for pid, p := range r.pending {
		var status unix.WaitStatus
		wpid, err := unix.Wait4(pid, &status, unix.WNOHANG, nil)
		switch {
		case err == unix.EINTR:
			continue
		case err != nil:
			// Someone else collected it.
			r.logger.Printf("couldn't wait for pid %d: %v", pid, err)
			delete(r.pending, pid)
			p.Release()
		case wpid == pid:
			delete(r.pending, pid)
			p.Release()
			reaped++
			r.reaped(pid, status)
		}
	}
	return reaped
}

// Pending returns the number of tracked children still running.
func (r *Reaper) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pending)
}

func (r *Reaper) reaped(pid int, status unix.WaitStatus) {
	event := &logger.ChildReaped{Pid: pid, ExitStatus: status.ExitStatus()}
	if status.Signaled() {
		event.Signal = status.Signal().String()
	}

	r.logger.Printf("reaped background pid %d (status %d)", pid, event.ExitStatus)
	if r.events != nil {
		if err := r.events.Record(event); err != nil {
			r.logger.Printf("couldn't record event: %v", err)
		}
	}
}
