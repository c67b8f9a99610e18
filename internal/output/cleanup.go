package output

import (
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Registry tracks files to delete if the process is interrupted. A nil
// Registry ignores every call.
type Registry struct {
	// Exit terminates the process after an interrupt. Defaults to os.Exit.
	Exit func(code int)

	mu    sync.Mutex
	paths []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{Exit: os.Exit}
}

// Add registers path for removal.
func (r *Registry) Add(path string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

// Remove deregisters path. The file itself is kept.
func (r *Registry) Remove(path string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.paths {
		if p == path {
			r.paths = append(r.paths[:i], r.paths[i+1:]...)
			return
		}
	}
}

// Paths returns the registered paths.
func (r *Registry) Paths() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// RemoveAll deletes every registered file and clears the registry.
func (r *Registry) RemoveAll() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	paths := r.paths
	r.paths = nil
	r.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Watch installs the interrupt handler: on SIGINT or SIGTERM every
// registered file is removed and the process exits with status 1. The
// returned function uninstalls the handler.
func (r *Registry) Watch() (stop func()) {
	if r == nil {
		return func() {}
	}
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigs:
			r.RemoveAll()
			exit := r.Exit
			if exit == nil {
				exit = os.Exit
			}
			exit(1)
		case <-done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(done)
		})
	}
}
