package auth_test

import (
	"bufio"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/Alia5/padbridge/apitypes"
	"github.com/Alia5/padbridge/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	k1, err := auth.DeriveKey("hunter2")
	require.NoError(t, err)
	assert.Len(t, k1, 32)

	k2, err := auth.DeriveKey("hunter2")
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	_, err = auth.DeriveKey("")
	assert.Error(t, err)

	s1 := auth.DeriveSessionKey(k1, []byte("a"), []byte("b"))
	s2 := auth.DeriveSessionKey(k1, []byte("b"), []byte("a"))
	assert.Len(t, s1, 32)
	assert.NotEqual(t, s1, s2)
}

type handshakeResult struct {
	clientNonce, serverNonce []byte
	err                      error
}

func runHandshake(t *testing.T, clientPw, serverPw string) (client, server handshakeResult, cc, sc net.Conn) {
	cc, sc = net.Pipe()
	ck, err := auth.DeriveKey(clientPw)
	require.NoError(t, err)
	sk, err := auth.DeriveKey(serverPw)
	require.NoError(t, err)

	done := make(chan handshakeResult, 1)
	go func() {
		cn, sn, err := auth.ServerHandshake(bufio.NewReader(sc), sc, sk)
		if err != nil {
			var apiErr apitypes.ApiError
			if errors.As(err, &apiErr) {
				b, _ := apiErr.MarshalLine()
				_, _ = sc.Write(b)
			}
			_ = sc.Close()
		}
		done <- handshakeResult{cn, sn, err}
	}()
	cn, sn, err := auth.ClientHandshake(bufio.NewReader(cc), cc, ck)
	client = handshakeResult{cn, sn, err}
	server = <-done
	return client, server, cc, sc
}

func TestHandshake(t *testing.T) {
	t.Run("matching password", func(t *testing.T) {
		client, server, cc, sc := runHandshake(t, "pw", "pw")
		defer cc.Close()
		defer sc.Close()
		require.NoError(t, client.err)
		require.NoError(t, server.err)
		assert.Equal(t, client.clientNonce, server.clientNonce)
		assert.Equal(t, client.serverNonce, server.serverNonce)
		assert.Len(t, client.serverNonce, auth.NonceSize)
	})

	t.Run("wrong password", func(t *testing.T) {
		client, server, cc, _ := runHandshake(t, "nope", "pw")
		defer cc.Close()
		assert.ErrorContains(t, server.err, "invalid password")
		var apiErr *apitypes.ApiError
		require.ErrorAs(t, client.err, &apiErr)
		assert.Equal(t, 401, apiErr.Status)
	})
}

func TestEncryptedConnRoundTrip(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	key := auth.DeriveSessionKey([]byte("k"), []byte("s"), []byte("c"))
	ca, err := auth.WrapConn(a, key)
	require.NoError(t, err)
	cb, err := auth.WrapConn(b, key)
	require.NoError(t, err)

	go func() {
		_, _ = ca.Write([]byte("bus/list\x00"))
		_, _ = ca.Write([]byte{0x00, 0x01, 0x1A})
	}()

	buf := make([]byte, 9)
	_, err = io.ReadFull(cb, buf)
	require.NoError(t, err)
	assert.Equal(t, "bus/list\x00", string(buf))

	small := make([]byte, 2)
	_, err = io.ReadFull(cb, small)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01}, small)
	_, err = io.ReadFull(cb, small[:1])
	require.NoError(t, err)
	assert.Equal(t, byte(0x1A), small[0])
}

func TestEncryptedConnRejectsWrongKey(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	ca, err := auth.WrapConn(a, auth.DeriveSessionKey([]byte("k1"), nil, nil))
	require.NoError(t, err)
	cb, err := auth.WrapConn(b, auth.DeriveSessionKey([]byte("k2"), nil, nil))
	require.NoError(t, err)

	go func() { _, _ = ca.Write([]byte("secret")) }()
	_, err = cb.Read(make([]byte, 16))
	assert.Error(t, err)
}
