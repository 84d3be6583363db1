// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package yali

import (
	"errors"
	"fmt"
)

var (
	ErrPayloadTooLarge  = errors.New("yali: payload exceeds 65535 bytes")
	ErrTruncatedRecord  = errors.New("yali: truncated record")
	ErrServerError      = errors.New("yali: server error")
	ErrUnexpectedPacket = errors.New("yali: unexpected packet")
)

// ServerError is an error report received from the gateway
type ServerError struct {
	Code    byte
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %q", e.Code, e.Message)
}

// Unwrap lets errors.Is match ErrServerError
func (e *ServerError) Unwrap() error {
	return ErrServerError
}
