package rabbit

import "sync"

// signal is a one-shot notification carrying the first error it was fired with.
type signal struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newSignal() *signal {
	return &signal{done: make(chan struct{})}
}

// Fire settles the signal; later calls are ignored.
func (s *signal) Fire(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

// Done is closed once the signal fires.
func (s *signal) Done() <-chan struct{} {
	return s.done
}

// Err returns the error the signal fired with. Only valid after Done is closed.
func (s *signal) Err() error {
	<-s.done
	return s.err
}
