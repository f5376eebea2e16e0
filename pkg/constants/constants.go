package constants

import (
	"github.com/go-playground/validator/v10"
)

type ContextKey string

const (
	AppKey    ContextKey = "app"
	PoolKey   ContextKey = "pool"
	TxKey     ContextKey = "tx"
	ParamsKey ContextKey = "params"
	LoggerKey ContextKey = "logger"
	ActorKey  ContextKey = "actor"
)

// Validate is the process-wide validator instance shared by all DTOs.
var Validate = validator.New(validator.WithRequiredStructEnabled())
