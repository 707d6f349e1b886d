package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	data, err := Marshal(MsgConnectivity, ConnectivityPayload{Online: true})
	require.NoError(t, err)

	msgType, payload, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, MsgConnectivity, msgType)

	p, err := UnmarshalPayload[ConnectivityPayload](payload)
	require.NoError(t, err)
	assert.True(t, p.Online)
}

func TestUnmarshalRejectsMissingType(t *testing.T) {
	_, _, err := Unmarshal([]byte(`{"payload":{}}`))
	assert.Error(t, err)

	_, _, err = Unmarshal([]byte(`not json`))
	assert.Error(t, err)
}

func TestMarshalWithoutPayload(t *testing.T) {
	data, err := Marshal(MsgShutdown, nil)
	require.NoError(t, err)

	msgType, payload, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, MsgShutdown, msgType)
	assert.Empty(t, payload)
}
