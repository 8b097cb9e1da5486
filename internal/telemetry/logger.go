package telemetry

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

var (
	enableDebug atomic.Bool
	enableTrace atomic.Bool

	logCh    chan logEntry
	once     sync.Once
	stopOnce sync.Once

	// Bounded ring buffer backing Tail - the guard serves recent log
	// lines over its admin surface without keeping unbounded history.
	rbMu      sync.Mutex
	rbData    []logEntry
	rbNext    int
	rbSize    = 2000
	rbWrapped bool
)

type logEntry struct {
	timestamp time.Time
	level     string
	message   string
}

func Start() {
	once.Do(func() {
		logCh = make(chan logEntry, 8192)
		rbData = make([]logEntry, rbSize)

		go func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Printf("telemetry panic: %v\n", r)
				}
			}()

			for entry := range logCh {
				rbMu.Lock()
				rbData[rbNext] = entry
				rbNext = (rbNext + 1) % rbSize
				if rbNext == 0 {
					rbWrapped = true
				}
				rbMu.Unlock()

				fmt.Printf("%s [%s] %s\n",
					entry.timestamp.Format("2006/01/02 15:04:05.000"),
					entry.level,
					entry.message)
			}
		}()
	})
}

func Stop() {
	stopOnce.Do(func() {
		if logCh != nil {
			close(logCh)
		}
	})
}

func EnableDebug(on bool) { enableDebug.Store(on) }
func DebugOn() bool       { return enableDebug.Load() }

func EnableTrace(on bool) { enableTrace.Store(on) }
func TraceOn() bool       { return enableTrace.Load() }

// Non-blocking enqueue; drop if saturated.
func enqueue(level, message string) {
	entry := logEntry{
		timestamp: time.Now(),
		level:     level,
		message:   message,
	}
	select {
	case logCh <- entry:
	default:
		fmt.Fprintf(os.Stderr, "telemetry: buffer full, dropping log: %s\n", message)
	}
}

// INFO is always on.
func Infof(format string, args ...any) {
	enqueue("INFO", fmt.Sprintf(format, args...))
}

func Warnf(format string, args ...any) {
	enqueue("WARN", fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...any) {
	enqueue("ERROR", fmt.Sprintf(format, args...))
}

// DEBUG only formats if enabled (zero cost when off).
func Debugf(format string, args ...any) {
	if !enableDebug.Load() {
		return
	}
	enqueue("DEBUG", fmt.Sprintf(format, args...))
}

// TRACE is for very noisy spots; off by default.
func Tracef(format string, args ...any) {
	if !enableTrace.Load() {
		return
	}
	enqueue("TRACE", fmt.Sprintf(format, args...))
}

// Tail returns up to n most recent log lines, oldest first.
func Tail(n int) []string {
	if n <= 0 {
		return nil
	}
	if n > rbSize {
		n = rbSize
	}
	rbMu.Lock()
	defer rbMu.Unlock()

	available := rbSize
	if !rbWrapped {
		available = rbNext
	}
	if available == 0 {
		return nil
	}
	if n > available {
		n = available
	}

	out := make([]string, 0, n)
	start := rbNext - n
	if start < 0 {
		start += rbSize
	}
	for i := 0; i < n; i++ {
		entry := rbData[(start+i)%rbSize]
		if entry.timestamp.IsZero() {
			continue
		}
		out = append(out, fmt.Sprintf("%s [%s] %s",
			entry.timestamp.Format("15:04:05.000"),
			entry.level,
			entry.message))
	}
	return out
}
