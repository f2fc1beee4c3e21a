// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

package relay

// Hooks receives socket lifecycle notifications. All fields are optional.
// Tests subscribe a fake observer here; the service leaves it empty and
// relies on the relay's own logging.
type Hooks struct {
	OnConnect          func()
	OnDisconnect       func(err error)
	OnReconnectAttempt func(attempt int)
	OnError            func(err error)
}

func (h Hooks) connected() {
	if h.OnConnect != nil {
		h.OnConnect()
	}
}

func (h Hooks) disconnected(err error) {
	if h.OnDisconnect != nil {
		h.OnDisconnect(err)
	}
}

func (h Hooks) reconnectAttempt(attempt int) {
	if h.OnReconnectAttempt != nil {
		h.OnReconnectAttempt(attempt)
	}
}

func (h Hooks) errored(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}
