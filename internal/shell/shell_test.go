package shell

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunnerCapturesOutput(t *testing.T) {
	r := NewExecRunner(5 * time.Second)
	res, err := r.Run(context.Background(), "sh", "-c", "echo out; echo err 1>&2")
	require.NoError(t, err)
	assert.Equal(t, "out\n", string(res.Stdout))
	assert.Equal(t, "err\n", string(res.Stderr))
}

func TestExecRunnerExitError(t *testing.T) {
	r := NewExecRunner(5 * time.Second)
	_, err := r.Run(context.Background(), "sh", "-c", "echo 'No such container: abc' 1>&2; exit 3")
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "No such container: abc", Message(err))
}

func TestExecRunnerNotFound(t *testing.T) {
	r := NewExecRunner(time.Second)
	_, err := r.Run(context.Background(), "definitely-not-a-real-binary-spark")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessageFallsBackToErrorText(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "boom", Message(errors.New("boom")))
}
