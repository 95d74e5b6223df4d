package model

import "errors"

// Error taxonomy per the core's error handling design: handlers classify
// every failure into exactly one of these so dispatch can decide the
// user-facing response without inspecting error strings.
var (
	// ErrNotAuthenticated: privileged opcode before successful LOGIN.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidArgument: malformed or out-of-schema-range argument that
	// slipped past the codec (defense in depth, not the primary check).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPreconditionFailed: gameplay rule not satisfied (dead, cooldown,
	// insufficient gold, inventory full, out of range, ...).
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrConflict: concurrent mutation raced us to the same resource.
	ErrConflict = errors.New("conflict")
	// ErrNotFound: referenced entity, item, or slot no longer exists.
	ErrNotFound = errors.New("not found")
	// ErrInternal: unexpected failure; logged with context, connection closed.
	ErrInternal = errors.New("internal error")
)

// ErrTileBlocked reports a movement rejected by the static bitmap or the
// current occupancy snapshot. Distinguished from ErrPreconditionFailed so
// movement handlers can reply with BLOCK_POSITION rather than CONSOLE_MSG.
var ErrTileBlocked = errors.New("tile blocked or occupied")
