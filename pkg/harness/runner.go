package harness

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ErrConsoleClosed reports that the DUT console ended before the test
// reached its end-of-test token, e.g. a device hang or unplug.
var ErrConsoleClosed = errors.New("harness: console closed before end of test")

// Callback handles one dispatched token from the DUT.
type Callback func(key, value string)

// HostTest is the host side of one test suite. Setup registers the
// test's callbacks on the runner; Teardown releases whatever the test
// holds (recorders, bridges) and must be safe on failure paths.
type HostTest interface {
	Name() string
	Setup(r *Runner) error
	Teardown()
}

// Result is the outcome of one host test run.
type Result struct {
	// Verdict is the DUT's end-of-test value, "success" or "failure".
	Verdict string
	Passed  bool
	// ExitCode is the DUT's reported exit value, when sent.
	ExitCode int
	// Timeout is the DUT-declared test timeout, informational here.
	Timeout time.Duration
}

// Runner drives one host test over a DUT console.
type Runner struct {
	console   io.ReadWriter
	log       *Logger
	callbacks map[string]Callback
}

// NewRunner wraps a console. log may be nil to discard harness output.
func NewRunner(console io.ReadWriter, log *Logger) *Runner {
	return &Runner{
		console:   console,
		log:       log,
		callbacks: make(map[string]Callback),
	}
}

// RegisterCallback routes tokens with the given key to fn. Registering
// a key twice replaces the earlier callback.
func (r *Runner) RegisterCallback(key string, fn Callback) {
	r.callbacks[key] = fn
}

// SendKV writes one token to the DUT on its own line.
func (r *Runner) SendKV(key, value string) {
	fmt.Fprintf(r.console, "%s\n", EncodeKV(key, value))
}

// Log returns the runner's logger for host tests to share.
func (r *Runner) Log() *Logger { return r.log }

// Run performs the whole exchange: test setup, the sync handshake, token
// dispatch, and end-of-test detection. It returns when the DUT signals
// exit or the console closes. A failed verdict is a normal result, not
// an error.
func (r *Runner) Run(test HostTest) (Result, error) {
	if err := test.Setup(r); err != nil {
		return Result{}, fmt.Errorf("harness: setting up %s: %w", test.Name(), err)
	}
	defer test.Teardown()

	var res Result

	scanner := bufio.NewScanner(r.console)
	for scanner.Scan() {
		for _, kv := range ParseKVs(scanner.Text()) {
			if exited := r.dispatch(kv, test, &res); exited {
				return res, nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("harness: reading console: %w", err)
	}
	// A console that closes after the verdict but without __exit still
	// counts as a finished run.
	if res.Verdict != "" {
		return res, nil
	}
	return res, ErrConsoleClosed
}

// dispatch handles one token. The return value reports end of test.
func (r *Runner) dispatch(kv KV, test HostTest, res *Result) bool {
	switch kv.Key {
	case KeySync:
		// Echo the DUT's sync UUID back to complete the handshake.
		r.SendKV(KeySync, kv.Value)
		r.SendKV(KeyVersion, "1.0.0")
	case KeyVersion, KeyTestcaseName, KeyTestcaseCount, KeyTestcaseStart, KeyTestcaseFinish:
		// Informational; the results importer consumes these offline.
	case KeyTimeout:
		if secs, err := strconv.Atoi(kv.Value); err == nil {
			res.Timeout = time.Duration(secs) * time.Second
		}
	case KeyHostTestName:
		if kv.Value != test.Name() {
			r.log.Err("DUT requested host test %q, running %q", kv.Value, test.Name())
		}
	case KeyEnd:
		res.Verdict = kv.Value
		res.Passed = kv.Value == "success"
	case KeyExit:
		if code, err := strconv.Atoi(kv.Value); err == nil {
			res.ExitCode = code
		}
		return true
	default:
		if fn, ok := r.callbacks[kv.Key]; ok {
			fn(kv.Key, kv.Value)
		} else {
			r.log.Err("no callback registered for key %q", kv.Key)
		}
	}
	return false
}
