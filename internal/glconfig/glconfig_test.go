package glconfig

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPlatform rejects requests whose depth is in reject.
type scriptedPlatform struct {
	reject map[int]int
	calls  []Request
}

func (p *scriptedPlatform) ChooseConfig(req Request) (Config, error) {
	p.calls = append(p.calls, req)
	if code, ok := p.reject[req.Depth]; ok {
		return Config{}, &PlatformError{Op: "eglChooseConfig", Code: code}
	}
	return Config{ID: 11, Request: req}, nil
}

func TestDefaultRequests(t *testing.T) {
	reqs := DefaultRequests()
	require.Len(t, reqs, 2)
	assert.Equal(t, Request{Red: 8, Green: 8, Blue: 8, Alpha: 0, Depth: 24, Stencil: 8, ClientVersion: 2}, reqs[0])
	assert.Equal(t, 16, reqs[1].Depth)
	assert.Equal(t, reqs[0].Stencil, reqs[1].Stencil)
}

func TestNegotiate_PreferredSucceeds(t *testing.T) {
	var buf bytes.Buffer
	p := &scriptedPlatform{}

	cfg, err := Negotiate(p, DefaultRequests(), log.New(&buf, "", 0))
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.Depth)
	assert.Len(t, p.calls, 1)
	assert.Empty(t, buf.String())
}

func TestNegotiate_FallsBackToDepth16(t *testing.T) {
	var buf bytes.Buffer
	p := &scriptedPlatform{reject: map[int]int{24: EGLBadMatch}}

	cfg, err := Negotiate(p, DefaultRequests(), log.New(&buf, "", 0))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Depth)
	require.Len(t, p.calls, 2)

	failures := 0
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "choose config") {
			failures++
			assert.Contains(t, line, "0x3009")
			assert.Contains(t, line, "depth=24")
		}
	}
	assert.Equal(t, 1, failures, "one failure logged for the first attempt")
}

func TestNegotiate_AllFail(t *testing.T) {
	var buf bytes.Buffer
	p := &scriptedPlatform{reject: map[int]int{24: EGLBadMatch, 16: EGLBadAlloc}}

	_, err := Negotiate(p, DefaultRequests(), log.New(&buf, "", 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContextUnavailable))
	assert.Contains(t, buf.String(), "0x3009")
	assert.Contains(t, buf.String(), "0x3003")
}

func TestNegotiate_NilPlatform(t *testing.T) {
	var buf bytes.Buffer
	_, err := Negotiate(nil, nil, log.New(&buf, "", 0))
	assert.ErrorIs(t, err, ErrContextUnavailable)
}

func TestSoftwarePlatform_Limits(t *testing.T) {
	p := NewSoftwarePlatform(16)
	reqs := DefaultRequests()

	_, err := p.ChooseConfig(reqs[0])
	var pe *PlatformError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, EGLBadMatch, pe.Code)

	cfg, err := p.ChooseConfig(reqs[1])
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.ID)

	var zero SoftwarePlatform
	_, err = zero.ChooseConfig(reqs[1])
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, EGLNotInitialized, pe.Code)
}
