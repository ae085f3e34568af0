package realtime

import (
	"fmt"

	"github.com/gorilla/websocket"
)

// IsGracefulClose reports whether a close code ends a session without error.
func IsGracefulClose(code int) bool {
	return code == websocket.CloseNormalClosure || code == websocket.CloseGoingAway
}

func CloseReason(closeErr *websocket.CloseError) string {
	if closeErr.Text != "" {
		return closeErr.Text
	}
	return fmt.Sprintf("closed by server (%d)", closeErr.Code)
}
