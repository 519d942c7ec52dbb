package push

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		status       Status
		connecting   bool
		connected    bool
		stalled      bool
		disconnected bool
	}{
		{StatusConnecting, true, false, false, false},
		{"CONNECTED:WS-STREAMING", false, true, false, false},
		{"CONNECTED:HTTP-POLLING", false, true, false, false},
		{StatusStalled, false, false, true, false},
		{"DISCONNECTED:WILL-RETRY", false, false, false, true},
		{"DISCONNECTED:TRYING-RECOVERY", false, false, false, true},
		{StatusDisconnected, false, false, false, true},
		{"", false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.connecting, tt.status.IsConnecting())
			assert.Equal(t, tt.connected, tt.status.IsConnected())
			assert.Equal(t, tt.stalled, tt.status.IsStalled())
			assert.Equal(t, tt.disconnected, tt.status.IsDisconnected())
		})
	}
}
