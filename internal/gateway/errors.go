package gateway

import (
	"errors"

	"glow/internal/engine"
	"glow/internal/plugin"
	"glow/internal/protocol"
	"glow/internal/scene"
	"glow/internal/transport"
)

// wireError flattens internal sentinel errors into protocol error codes.
// This is the one place domain errors learn their wire shape.
func wireError(err error) *protocol.Error {
	var paramErr *plugin.ParameterError
	switch {
	case errors.As(err, &paramErr):
		return &protocol.Error{
			Code:      protocol.CodeInvalidParameter,
			Message:   paramErr.Reason,
			Parameter: paramErr.Parameter,
		}
	case errors.Is(err, plugin.ErrInvalidParameter):
		return &protocol.Error{Code: protocol.CodeInvalidParameter, Message: err.Error()}
	case errors.Is(err, plugin.ErrNotFound), errors.Is(err, scene.ErrNotFound):
		return &protocol.Error{Code: protocol.CodeNotFound, Message: err.Error()}
	case errors.Is(err, plugin.ErrDuplicateName), errors.Is(err, scene.ErrDuplicateName):
		return &protocol.Error{Code: protocol.CodeDuplicateName, Message: err.Error()}
	case errors.Is(err, transport.ErrFrameTooLarge):
		return &protocol.Error{Code: protocol.CodeFrameTooLarge, Message: err.Error()}
	case errors.Is(err, transport.ErrUnavailable):
		return &protocol.Error{Code: protocol.CodeTransportUnavailable, Message: err.Error()}
	case errors.Is(err, engine.ErrFrameSizeMismatch):
		return &protocol.Error{Code: protocol.CodeFrameSizeMismatch, Message: err.Error()}
	case errors.Is(err, engine.ErrCommandRejected):
		return &protocol.Error{Code: protocol.CodeCommandRejected, Message: err.Error()}
	default:
		return &protocol.Error{Code: protocol.CodeInternal, Message: err.Error()}
	}
}
