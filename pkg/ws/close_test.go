package ws

import (
	"errors"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func TestUnexpectedClose(t *testing.T) {
	routine := []int{
		websocket.CloseGoingAway,
		websocket.CloseNormalClosure,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure,
	}
	for _, code := range routine {
		assert.False(t, unexpectedClose(&websocket.CloseError{Code: code}), "code %d", code)
	}

	assert.True(t, unexpectedClose(&websocket.CloseError{Code: websocket.CloseProtocolError}))
	assert.True(t, unexpectedClose(&websocket.CloseError{Code: websocket.CloseMessageTooBig}))
	assert.False(t, unexpectedClose(errors.New("read tcp: i/o timeout")))
}
