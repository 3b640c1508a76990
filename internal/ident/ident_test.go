package ident

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRejectsBlank(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		_, err := Create[Task](in)
		require.ErrorIs(t, err, ErrEmpty)
		assert.Contains(t, err.Error(), "task id")
	}
}

func TestCreateTrimsAndCompares(t *testing.T) {
	a, err := Create[Task]("  t-1 ")
	require.NoError(t, err)
	b := MustCreate[Task]("t-1")
	assert.True(t, a.Equals(b))
	assert.Equal(t, a, b)
	assert.Equal(t, "t-1", a.String())
	assert.False(t, a.Equals(MustCreate[Task]("t-2")))
}

func TestGenerateIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		id := Generate[Event](nil)
		require.False(t, seen[id.String()], "duplicate id %s", id)
		seen[id.String()] = true
	}
}

func TestSequence(t *testing.T) {
	seq := &Sequence{Prefix: "evt"}
	assert.Equal(t, "evt-1", Generate[Event](seq).String())
	assert.Equal(t, "evt-2", Generate[Event](seq).String())
}

func TestConvertKeepsValue(t *testing.T) {
	evt := MustCreate[Event]("e-9")
	corr := Convert[Correlation](evt)
	assert.Equal(t, "e-9", corr.String())
}

func TestJSONRoundTrip(t *testing.T) {
	type doc struct {
		Task   TaskID  `json:"task"`
		Parent *TaskID `json:"parent,omitempty"`
	}
	in := doc{Task: MustCreate[Task]("t-1")}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"task":"t-1"}`, string(data))

	var out doc
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	err = json.Unmarshal([]byte(`{"task":" "}`), &out)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestPtr(t *testing.T) {
	assert.Nil(t, Ptr(TaskID{}))
	p := Ptr(MustCreate[Task]("t-1"))
	require.NotNil(t, p)
	assert.Equal(t, "t-1", p.String())
}
