package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"causalbench/domain/core"
)

func TestWrap_KeepsCode(t *testing.T) {
	base := ConfigInvalid("bad n")
	err := Wrap(base, "loading config")

	assert.Equal(t, CodeConfigInvalid, GetCode(err))
	assert.Equal(t, "loading config: bad n", err.Error())
	assert.True(t, stderrors.Is(err, base))
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Nil(t, Wrapf(nil, "ignored %d", 1))
}

func TestGetCode_DomainSentinels(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{core.NewInvalidArgumentError("n", "must be non-negative"), CodeInvalidInput},
		{core.NewUnknownMotifError("bogus"), CodeInvalidInput},
		{core.NewValidationError("edge", "self loop"), CodeInvalidInput},
		{fmt.Errorf("build: %w", core.ErrBuild), CodeBuildFailed},
		{stderrors.New("boom"), CodeInternalError},
		{IOError("write output", stderrors.New("disk full")), CodeIOError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetCode(tt.err), "%v", tt.err)
	}
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeIOError, stderrors.New("closed pipe"))
	assert.Equal(t, CodeIOError, GetCode(err))
	assert.True(t, IsAppError(err))
	assert.False(t, IsAppError(stderrors.New("plain")))
	assert.Nil(t, WithCode(CodeIOError, nil))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(ConfigInvalid("x")))
	assert.Equal(t, 2, ExitCode(core.NewInvalidArgumentError("n", "bad")))
	assert.Equal(t, 3, ExitCode(fmt.Errorf("%w", core.ErrBuild)))
	assert.Equal(t, 1, ExitCode(stderrors.New("other")))
}
