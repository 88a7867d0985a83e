package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelopeUsesDefaultPaging(t *testing.T) {
	env := NewEnvelope[[]Category](nil, "", 0)

	assert.Nil(t, env.Data)
	assert.Equal(t, Paging{Page: 1, Size: 10}, env.Paging)
	assert.True(t, env.OK())
}

func TestDecodeData(t *testing.T) {
	var raw RawEnvelope
	body := `{"data":[{"id":3,"name":"Tools","description":"Hand tools"}],"status":200,"message":"ok","paging":{"page":0,"size":20,"totals":1,"totalPage":1}}`
	require.NoError(t, json.Unmarshal([]byte(body), &raw))

	env, err := DecodeData[[]Category](raw)
	require.NoError(t, err)
	require.Len(t, env.Data, 1)
	assert.Equal(t, "Tools", env.Data[0].Name)
	assert.Equal(t, 1, env.Paging.Totals)
	assert.True(t, env.OK())
}

func TestDecodeDataNull(t *testing.T) {
	env, err := DecodeData[*Category](RawEnvelope{Data: json.RawMessage("null"), Status: 404, Message: "not found"})
	require.NoError(t, err)
	assert.Nil(t, env.Data)
	assert.False(t, env.OK())
}

func TestSessionValid(t *testing.T) {
	now := time.Now()

	assert.False(t, Session{}.Valid(now))
	assert.True(t, Session{RefreshToken: "opaque"}.Valid(now))
	assert.True(t, Session{RefreshToken: "r", RefreshTokenExpiry: now.Add(time.Minute)}.Valid(now))
	assert.False(t, Session{RefreshToken: "r", RefreshTokenExpiry: now.Add(-time.Minute)}.Valid(now))
}
