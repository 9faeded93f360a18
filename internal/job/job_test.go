package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetStateIsANoOpWhenValueDoesNotChange(t *testing.T) {
	j := &Job{state: StateWaiting}
	var transitions []State
	j.OnStateChange = func(s State) { transitions = append(transitions, s) }

	j.setState(StateWaiting)
	assert.Empty(t, transitions)

	j.setState(StateRunning)
	j.setState(StateRunning)
	assert.Equal(t, []State{StateRunning}, transitions)
}

func TestFinishDelegatesToTheInjectedQueueHook(t *testing.T) {
	j := &Job{state: StateRunning}
	var got Result
	j.finish = func(r Result) { got = r }

	j.Finish(ResultFailed)
	assert.Equal(t, ResultFailed, got)
}

func TestResultIsMeaninglessUntilFinished(t *testing.T) {
	j := &Job{state: StateWaiting}
	assert.Equal(t, Result(""), j.Result())
	j.result = ResultDone
	j.setState(StateFinished)
	assert.Equal(t, StateFinished, j.State())
	assert.Equal(t, ResultDone, j.Result())
}
