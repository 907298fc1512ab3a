package ports

import "github.com/bft-labs/puppetlink/pkg/log"

// Logger is the structured logger used across the runtime.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors, re-exported so internal packages need one import.
var (
	String   = log.String
	Strings  = log.Strings
	Int      = log.Int
	Uint32   = log.Uint32
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any
)
