package glconfig

import "sync"

// SoftwarePlatform is the in-process surface used by the preview engine. It
// accepts requests within its limits and hands out increasing config ids.
type SoftwarePlatform struct {
	MaxDepth         int
	MaxStencil       int
	MaxClientVersion int

	mu     sync.Mutex
	nextID int
}

// NewSoftwarePlatform returns a platform supporting up to maxDepth depth bits.
func NewSoftwarePlatform(maxDepth int) *SoftwarePlatform {
	return &SoftwarePlatform{
		MaxDepth:         maxDepth,
		MaxStencil:       8,
		MaxClientVersion: 3,
	}
}

// ChooseConfig implements Platform.
func (p *SoftwarePlatform) ChooseConfig(req Request) (Config, error) {
	if p == nil || p.MaxClientVersion <= 0 {
		return Config{}, &PlatformError{Op: "eglChooseConfig", Code: EGLNotInitialized}
	}
	if req.Red > 8 || req.Green > 8 || req.Blue > 8 || req.Alpha > 8 {
		return Config{}, &PlatformError{Op: "eglChooseConfig", Code: EGLBadAttribute}
	}
	if req.Depth > p.MaxDepth || req.Stencil > p.MaxStencil || req.ClientVersion > p.MaxClientVersion {
		return Config{}, &PlatformError{Op: "eglChooseConfig", Code: EGLBadMatch}
	}

	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.mu.Unlock()
	return Config{ID: id, Request: req}, nil
}
