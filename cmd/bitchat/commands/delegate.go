package commands

import (
	"fmt"
	"time"
)

// terminalDelegate prints every mesh callback to stdout. /who and /nick read
// live state straight off the engine, so the delegate itself stays stateless.
type terminalDelegate struct{}

func (terminalDelegate) PublicMessage(fromPeerID, nickname, content string, timestamp time.Time) {
	fmt.Printf("[%s] %s: %s\n", timestamp.Format("15:04:05"), nickname, content)
}

func (terminalDelegate) PeerConnected(peerID string) {
	fmt.Printf("* %s entrou na mesh\n", peerID)
}

func (terminalDelegate) PeerDisconnected(peerID string) {
	fmt.Printf("* %s saiu da mesh\n", peerID)
}

func (terminalDelegate) PeerListChanged(peerIDs []string) {}
