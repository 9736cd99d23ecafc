package taskpool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskWrapper_DecodesPayload(t *testing.T) {
	t.Parallel()

	task := &greetTask{}
	wrapper := newTaskWrapper[greetPayload](task)

	err := wrapper.Execute(context.Background(), JSONSerializer{}, `{"name":"lin"}`)
	require.NoError(t, err)
	assert.Equal(t, greetPayload{Name: "lin"}, task.lastArg.Load())
}

func TestTaskWrapper_EmptyPayloadYieldsZeroValue(t *testing.T) {
	t.Parallel()

	task := &greetTask{}
	wrapper := newTaskWrapper[greetPayload](task)

	err := wrapper.Execute(context.Background(), JSONSerializer{}, "")
	require.NoError(t, err)
	assert.Equal(t, greetPayload{}, task.lastArg.Load())
}

func TestTaskWrapper_MalformedPayload(t *testing.T) {
	t.Parallel()

	task := &greetTask{}
	wrapper := newTaskWrapper[greetPayload](task)

	err := wrapper.Execute(context.Background(), JSONSerializer{}, "{not json")
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Zero(t, task.calls.Load(), "handler must not run on a payload it cannot decode")
}

func TestTaskRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	reg := newTaskRegistry()
	reg.register("greet", newTaskWrapper[greetPayload](&greetTask{}))

	_, ok := reg.get("greet")
	assert.True(t, ok)

	_, ok = reg.get("other")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"greet"}, reg.names())
}

func TestScheduledTaskExecutor_IgnoresPayload(t *testing.T) {
	t.Parallel()

	var called bool
	exec := &scheduledTaskExecutor{handler: func(context.Context) error {
		called = true
		return nil
	}}

	require.NoError(t, exec.Execute(context.Background(), JSONSerializer{}, "ignored"))
	assert.True(t, called)
}

func TestJSONSerializer_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := JSONSerializer{}

	encoded, err := codec.Encode(greetPayload{Name: "ada"})
	require.NoError(t, err)

	var decoded greetPayload
	require.NoError(t, codec.Decode(encoded, &decoded))
	assert.Equal(t, greetPayload{Name: "ada"}, decoded)
}

func TestJSONSerializer_DecodeEmptyIsNoop(t *testing.T) {
	t.Parallel()

	var decoded greetPayload
	require.NoError(t, JSONSerializer{}.Decode("", &decoded))
	assert.Equal(t, greetPayload{}, decoded)
}
