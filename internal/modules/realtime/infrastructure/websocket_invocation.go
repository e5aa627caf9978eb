package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

var (
	ErrUnknownMethod    = errors.New("unknown hub method")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrRateLimited      = errors.New("too many invocations")
)

// Invocation is a hub method call sent by a client:
//
//	{"id":"7","method":"JoinMachineLogGroup","args":[5]}
type Invocation struct {
	ID     string `json:"id,omitempty"`
	Method string `json:"method"`
	Args   Args   `json:"args,omitempty"`
}

func (i Invocation) methodKey() string {
	return normalizeMethod(i.Method)
}

// Caller is the connection that issued an invocation.
type Caller interface {
	ID() string
	UserID() string
	Allow() bool
	SendMessage(msg *domain.Message) error
}

// MethodHandler serves one hub method. Returned errors are reported to the
// caller as InvocationError.
type MethodHandler func(ctx context.Context, caller Caller, args Args) error

// InvocationError is the payload of the InvocationError event.
type InvocationError struct {
	ID     string `json:"id,omitempty"`
	Method string `json:"method"`
	Error  string `json:"error"`
}

type InvocationProcessor struct {
	hub      string
	handlers map[string]MethodHandler
	names    map[string]string
	timeout  time.Duration
	now      func() time.Time
}

func NewInvocationProcessor(hub string) *InvocationProcessor {
	processor := &InvocationProcessor{
		hub:      hub,
		handlers: make(map[string]MethodHandler),
		names:    make(map[string]string),
		timeout:  10 * time.Second,
		now:      time.Now,
	}
	processor.Register("Ping", processor.handlePing)
	return processor
}

// Register binds method (matched case-insensitively) to handler.
func (p *InvocationProcessor) Register(method string, handler MethodHandler) {
	if handler == nil {
		return
	}
	key := normalizeMethod(method)
	if key == "" {
		return
	}
	p.handlers[key] = handler
	p.names[key] = strings.TrimSpace(method)
}

// Methods lists the registered method names.
func (p *InvocationProcessor) Methods() []string {
	methods := make([]string, 0, len(p.names))
	for _, name := range p.names {
		methods = append(methods, name)
	}
	sort.Strings(methods)
	return methods
}

// Process runs the invocation on the reading goroutine, so calls from one
// client complete in the order they were sent.
func (p *InvocationProcessor) Process(ctx context.Context, caller Caller, inv Invocation) {
	if caller == nil {
		return
	}
	if !caller.Allow() {
		p.fail(caller, inv, ErrRateLimited)
		return
	}

	handler, ok := p.handlers[inv.methodKey()]
	if !ok {
		p.fail(caller, inv, fmt.Errorf("%w: %q", ErrUnknownMethod, inv.Method))
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := handler(callCtx, caller, inv.Args); err != nil {
		p.fail(caller, inv, err)
		return
	}
	if inv.ID != "" {
		_ = caller.SendMessage(domain.NewMessage(p.hub, "", domain.EventInvocationCompleted, p.now(), inv.ID))
	}
}

func (p *InvocationProcessor) fail(caller Caller, inv Invocation, err error) {
	slog.Debug("hub invocation failed", slog.String("hub", p.hub), slog.String("connectionId", caller.ID()), slog.String("method", inv.Method), slog.Any("error", err))
	payload := InvocationError{ID: inv.ID, Method: inv.Method, Error: err.Error()}
	_ = caller.SendMessage(domain.NewMessage(p.hub, "", domain.EventInvocationError, p.now(), payload))
}

func (p *InvocationProcessor) handlePing(_ context.Context, caller Caller, _ Args) error {
	return caller.SendMessage(domain.NewMessage(p.hub, "", domain.EventPong, p.now(), p.now().UTC()))
}

func normalizeMethod(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}

// Args are the positional, still encoded arguments of an invocation.
type Args []json.RawMessage

// String decodes argument i as a non-blank string.
func (a Args) String(i int) (string, error) {
	value, ok, err := a.OptionalString(i)
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: argument %d must be a non-empty string", ErrInvalidArguments, i)
	}
	return value, nil
}

// OptionalString decodes argument i when present and not null. Numbers are
// accepted and returned in their textual form.
func (a Args) OptionalString(i int) (string, bool, error) {
	if i >= len(a) {
		return "", false, nil
	}
	raw := strings.TrimSpace(string(a[i]))
	if raw == "" || raw == "null" {
		return "", false, nil
	}
	var value string
	if err := json.Unmarshal(a[i], &value); err == nil {
		return value, true, nil
	}
	var number json.Number
	if err := json.Unmarshal(a[i], &number); err == nil {
		return number.String(), true, nil
	}
	return "", false, fmt.Errorf("%w: argument %d must be a string", ErrInvalidArguments, i)
}

// MachineID decodes argument i as a machine id given either as a number or a numeric string.
func (a Args) MachineID(i int) (domain.MachineID, error) {
	raw, err := a.String(i)
	if err != nil {
		return 0, err
	}
	id, err := domain.ParseMachineID(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: argument %d is not a machine id", ErrInvalidArguments, i)
	}
	return id, nil
}
