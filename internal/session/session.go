// Package session drives one chat turn at a time per conversation.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/qmuntal/stateless"

	"github.com/comigor/halilintar-go/internal/chatapi"
	"github.com/comigor/halilintar-go/internal/conversation"
	"github.com/comigor/halilintar-go/internal/logger"
)

// FSM States
type State string

const (
	StateIdle    State = "Idle"
	StateSending State = "Sending"
	StateSettled State = "Settled"
	StateFailed  State = "Failed"
)

// FSM Triggers
type Trigger string

const (
	TriggerSubmit  Trigger = "Submit"
	TriggerResolve Trigger = "Resolve"
	TriggerFail    Trigger = "Fail"
	TriggerReset   Trigger = "Reset"
)

// FailureMessage is the assistant content shown when the endpoint could not
// be reached or answered with something unreadable.
const FailureMessage = "Failed to get response. Please try again."

var (
	ErrBusy                = errors.New("a request is already in flight for this conversation")
	ErrEmptyInput          = errors.New("nothing to send")
	ErrUnknownConversation = errors.New("unknown conversation")
)

// Completer is the completion endpoint as seen by the controller.
type Completer interface {
	Complete(ctx context.Context, req chatapi.Request) (string, error)
}

// Turn is one user submission.
type Turn struct {
	ConversationID string
	Text           string
	Provider       string
	Personalities  []string
	Attachment     *chatapi.Attachment
}

func (t Turn) empty() bool {
	return strings.TrimSpace(t.Text) == "" && t.Attachment == nil
}

// userContent is what the user message shows: the typed text, or a file
// marker for a file-only turn.
func (t Turn) userContent() string {
	if strings.TrimSpace(t.Text) == "" && t.Attachment != nil {
		return fmt.Sprintf("[File: %s]", t.Attachment.Name)
	}
	return t.Text
}

// Controller sends turns for the conversations held by a store.
type Controller struct {
	store     *conversation.Store
	completer Completer

	mu       sync.Mutex
	machines map[string]*stateless.StateMachine
}

func NewController(store *conversation.Store, completer Completer) *Controller {
	return &Controller{
		store:     store,
		completer: completer,
		machines:  make(map[string]*stateless.StateMachine),
	}
}

// machine returns the FSM of a conversation, creating it on first use.
// Callers hold c.mu.
func (c *Controller) machine(id string) *stateless.StateMachine {
	if fsm, ok := c.machines[id]; ok {
		return fsm
	}

	fsm := stateless.NewStateMachine(StateIdle)

	fsm.Configure(StateIdle).
		Permit(TriggerSubmit, StateSending)

	fsm.Configure(StateSending).
		Permit(TriggerResolve, StateSettled).
		Permit(TriggerFail, StateFailed)

	// Settled and Failed both write exactly one assistant message, then
	// wait for Reset.
	fsm.Configure(StateSettled).
		Permit(TriggerReset, StateIdle).
		OnEntry(func(ctx context.Context, args ...any) error {
			return c.appendReply(id, args)
		})

	fsm.Configure(StateFailed).
		Permit(TriggerReset, StateIdle).
		OnEntry(func(ctx context.Context, args ...any) error {
			return c.appendReply(id, args)
		})

	c.machines[id] = fsm
	return fsm
}

func (c *Controller) appendReply(id string, args []any) error {
	if len(args) == 0 {
		return errors.New("missing reply message")
	}
	reply, ok := args[0].(conversation.Message)
	if !ok {
		return fmt.Errorf("unexpected reply argument %T", args[0])
	}
	conv, ok := c.store.Get(id)
	if !ok {
		logger.L.Warn("conversation removed during turn, reply dropped", "conversation", id)
		return nil
	}
	c.store.AppendTurn(id, append(conv.Messages, reply))
	return nil
}

// State reports where the conversation's current turn is.
func (c *Controller) State(id string) State {
	c.mu.Lock()
	fsm, ok := c.machines[id]
	c.mu.Unlock()
	if !ok {
		return StateIdle
	}
	return fsm.MustState().(State)
}

// Busy reports whether a request is in flight, i.e. whether the send
// affordance must be disabled.
func (c *Controller) Busy(id string) bool {
	return c.State(id) != StateIdle
}

// Forget drops the FSM of a deleted conversation.
func (c *Controller) Forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fsm, ok := c.machines[id]; ok && fsm.MustState() == StateIdle {
		delete(c.machines, id)
	}
}

// Send runs one turn to completion: the user message is appended, the
// endpoint is called with the full history, and exactly one assistant
// message (the reply or a failure notice) is appended before the
// conversation returns to Idle. Upstream failures are not returned; they
// become the assistant message.
func (c *Controller) Send(ctx context.Context, turn Turn) (conversation.Conversation, error) {
	if turn.empty() {
		return conversation.Conversation{}, ErrEmptyInput
	}
	if _, ok := c.store.Get(turn.ConversationID); !ok {
		return conversation.Conversation{}, fmt.Errorf("%w: %s", ErrUnknownConversation, turn.ConversationID)
	}

	c.mu.Lock()
	fsm := c.machine(turn.ConversationID)
	if fsm.MustState() != StateIdle {
		c.mu.Unlock()
		conv, _ := c.store.Get(turn.ConversationID)
		return conv, ErrBusy
	}
	if err := fsm.FireCtx(ctx, TriggerSubmit); err != nil {
		c.mu.Unlock()
		return conversation.Conversation{}, fmt.Errorf("submit: %w", err)
	}
	c.mu.Unlock()

	// Once in Sending nobody else writes this conversation, so the history
	// read here is the latest one.
	conv, ok := c.store.Get(turn.ConversationID)
	if !ok {
		if err := fsm.FireCtx(context.WithoutCancel(ctx), TriggerFail, conversation.Message{}); err != nil {
			logger.L.Error("FSM fire error", "trigger", TriggerFail, "error", err)
		}
		if err := fsm.FireCtx(context.WithoutCancel(ctx), TriggerReset); err != nil {
			logger.L.Error("FSM fire error", "trigger", TriggerReset, "error", err)
		}
		return conversation.Conversation{}, fmt.Errorf("%w: %s", ErrUnknownConversation, turn.ConversationID)
	}

	history := append(conv.Messages, conversation.NewMessage(conversation.RoleUser, turn.userContent(), turn.Provider))
	c.store.AppendTurn(turn.ConversationID, history)

	// Once Sending begins the request runs to completion: the caller's
	// cancellation and deadline do not reach it.
	runCtx := context.WithoutCancel(ctx)

	logger.L.Info("sending turn", "conversation", turn.ConversationID, "provider", turn.Provider, "messages", len(history))
	content, err := c.completer.Complete(runCtx, chatapi.Request{
		Messages:      history,
		Model:         turn.Provider,
		Personalities: turn.Personalities,
		File:          turn.Attachment,
	})

	trigger := TriggerResolve
	if err != nil {
		logger.L.Error("turn failed", "conversation", turn.ConversationID, "error", err)
		trigger = TriggerFail
		content = failureContent(err)
	}
	reply := conversation.NewMessage(conversation.RoleAssistant, content, turn.Provider)

	if err := fsm.FireCtx(runCtx, trigger, reply); err != nil {
		logger.L.Error("FSM fire error", "trigger", trigger, "error", err)
	}
	if err := fsm.FireCtx(runCtx, TriggerReset); err != nil {
		logger.L.Error("FSM fire error", "trigger", TriggerReset, "error", err)
	}

	updated, _ := c.store.Get(turn.ConversationID)
	return updated, nil
}

func failureContent(err error) string {
	var remote *chatapi.RemoteError
	if errors.As(err, &remote) {
		return "Error: " + remote.Message
	}
	return FailureMessage
}
