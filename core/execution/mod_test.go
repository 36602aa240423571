package execution

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStep_Emit(t *testing.T) {
	step := Step{}

	// No emitter is a no-op.
	step.Emit(NewEvent("raffle", "Entered"))

	buffer := NewEventBuffer()
	step.Emitter = buffer

	step.Emit(NewEvent("raffle", "Entered", "participant", "abc"))
	require.Len(t, buffer.GetEvents(), 1)
	require.Equal(t, "abc", buffer.GetEvents()[0].Attributes["participant"])
}

func TestEvent_String(t *testing.T) {
	evt := NewEvent("vrf", "RandomWordsFulfilled", "success", "true", "requestId", "1", "odd")
	require.Equal(t, "RandomWordsFulfilled{requestId=1, success=true}", evt.String())

	require.Equal(t, "WinnerPicked{}", NewEvent("raffle", "WinnerPicked").String())
}

func TestEventBuffer_FlushTo(t *testing.T) {
	buffer := NewEventBuffer()
	buffer.Emit(NewEvent("a", "A"))
	buffer.Emit(NewEvent("b", "B"))

	other := NewEventBuffer()
	buffer.FlushTo(other)
	require.Empty(t, buffer.GetEvents())

	events := other.GetEvents()
	require.Len(t, events, 2)
	require.Equal(t, "A", events[0].Name)
	require.Equal(t, "B", events[1].Name)

	buffer.Emit(NewEvent("c", "C"))
	buffer.FlushTo(nil)
	require.Empty(t, buffer.GetEvents())

	buffer.Emit(NewEvent("c", "C"))
	buffer.Reset()
	require.Empty(t, buffer.GetEvents())
}
