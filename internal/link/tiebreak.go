package link

import (
	"crypto/sha256"
	"encoding/hex"
)

// peerIDHexLen is the length of the derived 16-hex-character peer-id space.
const peerIDHexLen = 16

// candidateID hashes an OS-level device uuid into the same 16-hex peer-id
// space real peer-ids live in, deterministically and without needing the
// remote to have announced yet. Two nodes that discover each other
// simultaneously compute each other's candidate id the same way, so the
// mutual-exclusion tie-break only needs a local string comparison.
func candidateID(deviceUUID string) string {
	sum := sha256.Sum256([]byte(deviceUUID))
	return hex.EncodeToString(sum[:])[:peerIDHexLen]
}

// shouldInitiate reports whether localPeerID should be the one to connect to
// the remote identified by deviceUUID, per the lexicographic tie-break: only
// the side whose own peer-id is greater than the remote's derived candidate
// id proceeds.
func shouldInitiate(localPeerID, deviceUUID string) bool {
	return localPeerID > candidateID(deviceUUID)
}
