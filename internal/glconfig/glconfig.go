// Package glconfig negotiates the graphics surface configuration for the viewer.
package glconfig

import (
	"errors"
	"fmt"
	"log"
)

// EGL error codes reported by platforms.
const (
	EGLSuccess        = 0x3000
	EGLNotInitialized = 0x3001
	EGLBadAlloc       = 0x3003
	EGLBadAttribute   = 0x3004
	EGLBadConfig      = 0x3005
	EGLBadMatch       = 0x3009
)

// ClientVersion2 is the minimum rendering API version requested.
const ClientVersion2 = 2

// ErrContextUnavailable means no requested configuration is supported.
var ErrContextUnavailable = errors.New("graphics context unavailable")

// Request describes a surface configuration in bits per channel.
type Request struct {
	Red           int `yaml:"red"`
	Green         int `yaml:"green"`
	Blue          int `yaml:"blue"`
	Alpha         int `yaml:"alpha"`
	Depth         int `yaml:"depth"`
	Stencil       int `yaml:"stencil"`
	ClientVersion int `yaml:"client_version"`
}

// String formats the request like an attribute list.
func (r Request) String() string {
	return fmt.Sprintf("rgba=%d/%d/%d/%d depth=%d stencil=%d es=%d",
		r.Red, r.Green, r.Blue, r.Alpha, r.Depth, r.Stencil, r.ClientVersion)
}

// Config is a configuration chosen by the platform.
type Config struct {
	ID int
	Request
}

// Platform chooses configurations matching a request.
type Platform interface {
	ChooseConfig(req Request) (Config, error)
}

// PlatformError carries the platform error code of a failed call.
type PlatformError struct {
	Op   string
	Code int
}

// Error implements error.
func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s failed: 0x%x", e.Op, e.Code)
}

// DefaultRequests returns the preferred RGB888/D24/S8 request followed by the
// D16 fallback.
func DefaultRequests() []Request {
	preferred := Request{
		Red:           8,
		Green:         8,
		Blue:          8,
		Alpha:         0,
		Depth:         24,
		Stencil:       8,
		ClientVersion: ClientVersion2,
	}
	fallback := preferred
	fallback.Depth = 16
	return []Request{preferred, fallback}
}

// Negotiate returns the first configuration the platform accepts, trying
// requests in order. Each failed attempt is logged with its error code.
func Negotiate(p Platform, requests []Request, logger *log.Logger) (Config, error) {
	if logger == nil {
		logger = log.Default()
	}
	if p == nil {
		logger.Printf("glconfig: no platform available")
		return Config{}, ErrContextUnavailable
	}
	if len(requests) == 0 {
		requests = DefaultRequests()
	}

	var lastErr error
	for i, req := range requests {
		cfg, err := p.ChooseConfig(req)
		if err == nil {
			if i > 0 {
				logger.Printf("glconfig: using fallback config %d (%s)", cfg.ID, req)
			}
			return cfg, nil
		}
		lastErr = err
		logger.Printf("glconfig: choose config (%s): %s", req, describe(err))
	}
	logger.Printf("glconfig: no usable config after %d attempts", len(requests))
	return Config{}, fmt.Errorf("%w: %v", ErrContextUnavailable, lastErr)
}

// describe formats err with its platform code when available.
func describe(err error) string {
	var pe *PlatformError
	if errors.As(err, &pe) {
		return fmt.Sprintf("error 0x%x", pe.Code)
	}
	return err.Error()
}
