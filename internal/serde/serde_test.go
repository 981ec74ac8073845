package serde

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contact struct {
	Name   string   `json:"name"`
	Phones []string `json:"phones,omitempty"`
}

func TestUnmarshalRejectsUnknownFields(t *testing.T) {
	var c contact
	err := UnmarshalJson([]byte(`{"name":"Alice","email":"a@example.com"}`), &c)
	assert.Error(t, err)
}

func TestMarshalResultIsNotShared(t *testing.T) {
	first, err := MarshalJson(contact{Name: "Alice"})
	require.NoError(t, err)

	_, err = MarshalJson(contact{Name: "Bob", Phones: []string{"555"}})
	require.NoError(t, err)

	assert.Equal(t, `{"name":"Alice"}`, string(first))
}

func TestDecodeAndEncodeLine(t *testing.T) {
	var c contact
	require.NoError(t, DecodeJson(strings.NewReader(`{"name":"Alice","phones":["911"]}`), &c))
	assert.Equal(t, contact{Name: "Alice", Phones: []string{"911"}}, c)

	var buf bytes.Buffer
	require.NoError(t, EncodeJsonLine(&buf, c))
	assert.Equal(t, "{\"name\":\"Alice\",\"phones\":[\"911\"]}\n", buf.String())
}

func TestSlowDecodeDoesNotBlockMarshal(t *testing.T) {
	pr, pw := io.Pipe()

	decoded := make(chan error, 1)
	var c contact
	go func() { decoded <- DecodeJson(pr, &c) }()

	marshaled := make(chan error, 1)
	go func() {
		_, err := MarshalJson(contact{Name: "Bob"})
		marshaled <- err
	}()

	select {
	case err := <-marshaled:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("marshal waited for a pending decode")
	}

	_, err := pw.Write([]byte(`{"name":"Alice"}`))
	require.NoError(t, err)
	require.NoError(t, pw.Close())

	require.NoError(t, <-decoded)
	assert.Equal(t, "Alice", c.Name)
}
