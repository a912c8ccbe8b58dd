package rpc

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/protobuf"
)

// Handler answers one call with the raw request body.
type Handler func(body []byte) ([]byte, error)

// Validator is implemented by requests that can check themselves before
// they reach a handler.
type Validator interface {
	Validate() error
}

// Typed wraps fn into a Handler that decodes the request, validates it and
// encodes the response with protobuf.
func Typed[Req, Resp any](fn func(*Req) (*Resp, error)) Handler {
	return func(body []byte) ([]byte, error) {
		req := new(Req)
		if err := protobuf.Decode(body, req); err != nil {
			return nil, &Error{Code: ErrorParse, Message: err.Error()}
		}
		if v, ok := interface{}(req).(Validator); ok {
			if err := v.Validate(); err != nil {
				var rerr *Error
				if errors.As(err, &rerr) {
					return nil, rerr
				}
				return nil, &Error{Code: ErrorInvalidInput, Message: err.Error()}
			}
		}
		resp, err := fn(req)
		if err != nil {
			return nil, err
		}
		return protobuf.Encode(resp)
	}
}

// Dispatcher maps method names to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	sealed   bool
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register adds h under name, replacing an earlier handler of that name.
// Registration is only possible before Seal.
func (d *Dispatcher) Register(name string, h Handler) error {
	if name == "" || h == nil {
		return errors.New("need a method name and a handler")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sealed {
		return fmt.Errorf("%w: cannot register %s", ErrSealed, name)
	}
	d.handlers[name] = h
	return nil
}

// Seal stops further registrations. It is called once calls are accepted.
func (d *Dispatcher) Seal() {
	d.mu.Lock()
	d.sealed = true
	d.mu.Unlock()
}

// Methods returns the registered names in order.
func (d *Dispatcher) Methods() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the handler registered under method. The returned error is
// always an *Error. A panicking handler is turned into ErrorInternal and
// does not affect any other call.
func (d *Dispatcher) Dispatch(method string, body []byte) (resp []byte, err error) {
	d.mu.RLock()
	h, ok := d.handlers[method]
	d.mu.RUnlock()
	if !ok {
		return nil, &Error{Code: ErrorMethodNotFound, Message: "method not found: " + method}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("handler %s panicked: %v\n%s", method, r, debug.Stack())
			resp = nil
			err = &Error{Code: ErrorInternal, Message: "internal error in " + method}
		}
	}()

	resp, err = h(body)
	if err != nil {
		var rerr *Error
		if !errors.As(err, &rerr) {
			rerr = &Error{Code: ErrorFailed, Message: err.Error()}
		}
		log.Lvl3("Call to", method, "failed:", rerr)
		return nil, rerr
	}
	return resp, nil
}
