package errors

import sterrors "errors"

var (
	ErrServiceRequired     = sterrors.New("relay: service is required")
	ErrHandlerRequired     = sterrors.New("relay: handler function is required")
	ErrMessageTypeRequired = sterrors.New("relay: message type is required")
	ErrConfigRequired      = sterrors.New("relay: config is required")
	ErrLoggerRequired      = sterrors.New("relay: logger is required")
	ErrProviderRequired    = sterrors.New("relay: at least one provider is required")

	// ErrBufferClosed is returned by the buffer once draining has begun. A send
	// that hits it is redirected to the live bus by the proxy; application code
	// observing this error directly means the proxy was bypassed.
	ErrBufferClosed = sterrors.New("relay: buffer no longer accepting messages")

	// ErrNoProvider is the terminal selection failure: every registered provider
	// exhausted its connection attempts.
	ErrNoProvider = sterrors.New("relay: no provider could supply a healthy bus")

	ErrAlreadyStarted = sterrors.New("relay: lifecycle already started")
)
