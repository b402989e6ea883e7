package modelica

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/bondlegend4/modelica-gdext/internal/ffi"
)

// Wire operations between ProcessRuntime and a solver process.
const (
	opLoad    = "load"
	opReset   = "reset"
	opSetReal = "set_real"
	opSetBool = "set_bool"
	opGetReal = "get_real"
	opStep    = "step"
	opOutputs = "outputs"
	opClose   = "close"
)

type request struct {
	Op        string  `msgpack:"op"`
	Component string  `msgpack:"component,omitempty"`
	Name      string  `msgpack:"name,omitempty"`
	Real      float64 `msgpack:"real,omitempty"`
	Bool      bool    `msgpack:"bool,omitempty"`
	DT        float64 `msgpack:"dt,omitempty"`
}

type response struct {
	OK      bool               `msgpack:"ok"`
	Error   string             `msgpack:"error,omitempty"`
	Real    float64            `msgpack:"real,omitempty"`
	Outputs map[string]float64 `msgpack:"outputs,omitempty"`
}

// RemoteError is an error reported by the solver process.
type RemoteError struct {
	Op      string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("solver %s: %s", e.Op, e.Message)
}

// ProcessRuntime is a Runtime living on the far side of an ffi.Buffer,
// usually a solver subprocess speaking framed msgpack on stdin/stdout.
//
// Requests are strictly request/response. A context is checked before each
// round trip; a round trip already on the wire runs to completion.
//
// Thread-safety: safe for concurrent use; round trips are serialized.
type ProcessRuntime struct {
	mu     sync.Mutex
	conn   ffi.Buffer
	closer func() error
	closed bool
}

// Dial asks the solver behind conn to load component and returns a Runtime
// for it. closer, if non-nil, runs after the close request in Close.
func Dial(ctx context.Context, conn ffi.Buffer, component string, closer func() error) (*ProcessRuntime, error) {
	p := &ProcessRuntime{conn: conn, closer: closer}
	if _, err := p.call(ctx, request{Op: opLoad, Component: component}); err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, err
	}
	return p, nil
}

// StartProcess launches command and dials component over its stdin/stdout.
func StartProcess(ctx context.Context, command []string, component string) (*ProcessRuntime, error) {
	if len(command) == 0 {
		return nil, errors.New("solver command is empty")
	}

	cmd := exec.Command(command[0], command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("solver stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("solver stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start solver %q: %w", command[0], err)
	}

	closer := func() error {
		_ = stdin.Close()
		return cmd.Wait()
	}
	return Dial(ctx, ffi.NewFrameConn(stdout, stdin), component, closer)
}

// ProcessLoader returns a RuntimeLoader that starts one solver process per
// loaded component.
func ProcessLoader(command []string) RuntimeLoader {
	return func(ctx context.Context, component string) (Runtime, error) {
		return StartProcess(ctx, command, component)
	}
}

func (p *ProcessRuntime) call(ctx context.Context, req request) (response, error) {
	if err := ctx.Err(); err != nil {
		return response{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return response{}, errors.New("solver connection closed")
	}

	b, err := msgpack.Marshal(&req)
	if err != nil {
		return response{}, fmt.Errorf("encode %s request: %w", req.Op, err)
	}
	if err := p.conn.WriteForeignBytes(b); err != nil {
		return response{}, fmt.Errorf("send %s request: %w", req.Op, err)
	}

	b, err = p.conn.ReadForeignBytes()
	if err != nil {
		return response{}, fmt.Errorf("receive %s response: %w", req.Op, err)
	}
	var resp response
	if err := msgpack.Unmarshal(b, &resp); err != nil {
		return response{}, fmt.Errorf("decode %s response: %w", req.Op, err)
	}
	if !resp.OK {
		return resp, &RemoteError{Op: req.Op, Message: resp.Error}
	}
	return resp, nil
}

func (p *ProcessRuntime) Reset(ctx context.Context) error {
	_, err := p.call(ctx, request{Op: opReset})
	return err
}

func (p *ProcessRuntime) SetReal(ctx context.Context, name string, value float64) error {
	_, err := p.call(ctx, request{Op: opSetReal, Name: name, Real: value})
	return err
}

func (p *ProcessRuntime) SetBool(ctx context.Context, name string, value bool) error {
	_, err := p.call(ctx, request{Op: opSetBool, Name: name, Bool: value})
	return err
}

func (p *ProcessRuntime) GetReal(ctx context.Context, name string) (float64, error) {
	resp, err := p.call(ctx, request{Op: opGetReal, Name: name})
	if err != nil {
		return 0, err
	}
	return resp.Real, nil
}

func (p *ProcessRuntime) Step(ctx context.Context, dt float64) error {
	_, err := p.call(ctx, request{Op: opStep, DT: dt})
	return err
}

func (p *ProcessRuntime) Outputs(ctx context.Context) (map[string]float64, error) {
	resp, err := p.call(ctx, request{Op: opOutputs})
	if err != nil {
		return nil, err
	}
	if resp.Outputs == nil {
		return map[string]float64{}, nil
	}
	return resp.Outputs, nil
}

// Close sends a close request and then runs the closer. Safe to call twice.
func (p *ProcessRuntime) Close() error {
	_, callErr := p.call(context.Background(), request{Op: opClose})

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	closer := p.closer
	p.mu.Unlock()

	var closeErr error
	if closer != nil {
		closeErr = closer()
	}
	return errors.Join(callErr, closeErr)
}

// ServeRuntime answers ProcessRuntime requests on conn, loading runtimes
// with loader. It returns nil when the peer closes the stream cleanly or
// sends a close request, and ctx.Err() if ctx ends first.
func ServeRuntime(ctx context.Context, conn ffi.Buffer, loader RuntimeLoader, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	var rt Runtime
	defer func() {
		if rt != nil {
			_ = rt.Close()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b, err := conn.ReadForeignBytes()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}

		var req request
		if err := msgpack.Unmarshal(b, &req); err != nil {
			return fmt.Errorf("serve: decode request: %w", err)
		}

		resp, done := dispatch(ctx, &rt, loader, req)
		if !resp.OK {
			logger.Debug("solver request failed", "op", req.Op, "error", resp.Error)
		}

		out, err := msgpack.Marshal(&resp)
		if err != nil {
			return fmt.Errorf("serve: encode response: %w", err)
		}
		if err := conn.WriteForeignBytes(out); err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		if done {
			return nil
		}
	}
}

func dispatch(ctx context.Context, rt *Runtime, loader RuntimeLoader, req request) (response, bool) {
	fail := func(err error) response {
		return response{Error: err.Error()}
	}

	if req.Op == opLoad {
		next, err := loader(ctx, req.Component)
		if err != nil {
			return fail(err), false
		}
		if *rt != nil {
			_ = (*rt).Close()
		}
		*rt = next
		return response{OK: true}, false
	}
	if req.Op == opClose {
		return response{OK: true}, true
	}
	if *rt == nil {
		return fail(errors.New("no component loaded")), false
	}

	r := *rt
	switch req.Op {
	case opReset:
		if err := r.Reset(ctx); err != nil {
			return fail(err), false
		}
	case opSetReal:
		if err := r.SetReal(ctx, req.Name, req.Real); err != nil {
			return fail(err), false
		}
	case opSetBool:
		if err := r.SetBool(ctx, req.Name, req.Bool); err != nil {
			return fail(err), false
		}
	case opGetReal:
		v, err := r.GetReal(ctx, req.Name)
		if err != nil {
			return fail(err), false
		}
		return response{OK: true, Real: v}, false
	case opStep:
		if err := r.Step(ctx, req.DT); err != nil {
			return fail(err), false
		}
	case opOutputs:
		out, err := r.Outputs(ctx)
		if err != nil {
			return fail(err), false
		}
		return response{OK: true, Outputs: out}, false
	default:
		return fail(fmt.Errorf("unknown op %q", req.Op)), false
	}
	return response{OK: true}, false
}

var _ Runtime = (*ProcessRuntime)(nil)
