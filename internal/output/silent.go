package output

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/linuxmatters/airwave/internal/logging"
	"go.uber.org/zap"
)

// Silent drains a reader at real-time rate and discards the audio. It
// stands in for a Device when no output can be opened, so the transport
// still advances and the end of the track is still reached.
type Silent struct {
	log  *logging.Logger
	stop chan struct{}
	done chan struct{}

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

// OpenSilent starts draining src in DefaultLatency chunks
func OpenSilent(sampleRate, channels int, src io.Reader, log *logging.Logger) *Silent {
	return startSilent(src, BufferSize(sampleRate, channels, DefaultLatency), DefaultLatency, log)
}

func startSilent(src io.Reader, chunk int, interval time.Duration, log *logging.Logger) *Silent {
	s := &Silent{
		log:  logging.OrNop(log).Named("output"),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	s.log.Info("silent output started", zap.Int("chunk_bytes", chunk), zap.Duration("interval", interval))
	go s.loop(src, make([]byte, chunk), interval)
	return s
}

func (s *Silent) loop(src io.Reader, buf []byte, interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if _, err := src.Read(buf); err != nil {
				if !errors.Is(err, io.EOF) {
					s.log.Warn("silent output stopped", zap.Error(err))
				}
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
				return
			}
		}
	}
}

// Err reports the error that stopped the drain loop, if any
func (s *Silent) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the drain loop and waits for it to exit
func (s *Silent) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}
