package composables

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dealdesk/dealdesk/pkg/constants"
)

var (
	// ErrNoActor means no admin identity was resolved for the request.
	// Attributed operations must be rejected before any store call.
	ErrNoActor = errors.New("no actor found in context")
)

type Params struct {
	IP        string
	UserAgent string
	RequestID string
	Request   *http.Request
	Writer    http.ResponseWriter
}

// UseParams returns the request parameters from the context.
// If the parameters are not found, the second return value will be false.
func UseParams(ctx context.Context) (*Params, bool) {
	params, ok := ctx.Value(constants.ParamsKey).(*Params)
	return params, ok
}

// WithParams returns a new context with the request parameters.
func WithParams(ctx context.Context, params *Params) context.Context {
	return context.WithValue(ctx, constants.ParamsKey, params)
}

// UseLogger returns the logger entry from the context, panicking when the
// logging middleware did not run.
func UseLogger(ctx context.Context) *logrus.Entry {
	logger := ctx.Value(constants.LoggerKey)
	if logger == nil {
		panic("logger not found")
	}
	return logger.(*logrus.Entry)
}

func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, entry)
}

// WithActorID stores the resolved admin identity for attribution fields.
func WithActorID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.ActorKey, id)
}

// UseActorID returns the acting admin's id. Operations that write
// attribution pairs must fail with ErrNoActor when it is absent.
func UseActorID(ctx context.Context) (uuid.UUID, error) {
	v := ctx.Value(constants.ActorKey)
	if v == nil {
		return uuid.Nil, ErrNoActor
	}
	id, ok := v.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, ErrNoActor
	}
	return id, nil
}
