package protocol

// TLV tags used by the announce payload.
const (
	tlvNickname uint8 = 0x01
	tlvPeerID   uint8 = 0x02
)

// EncodeAnnounce builds the two-TLV announce payload: (0x01, len, nickname),
// (0x02, len, peer-id hex). Each value must fit in a single length byte.
func EncodeAnnounce(nickname, peerID string) ([]byte, error) {
	if len(nickname) > 255 || len(peerID) > 255 {
		return nil, ErrInvalidField
	}

	out := make([]byte, 0, 2+len(nickname)+2+len(peerID))
	out = append(out, tlvNickname, byte(len(nickname)))
	out = append(out, nickname...)
	out = append(out, tlvPeerID, byte(len(peerID)))
	out = append(out, peerID...)
	return out, nil
}

// DecodeAnnounce linearly scans an announce payload. Unknown TLV types are
// skipped. Decoding fails if either required TLV is missing or any length
// runs past the end of the buffer.
func DecodeAnnounce(data []byte) (nickname, peerID string, err error) {
	var gotNickname, gotPeerID bool

	i := 0
	for i < len(data) {
		if i+2 > len(data) {
			return "", "", ErrMalformed
		}
		tag := data[i]
		length := int(data[i+1])
		i += 2

		if i+length > len(data) {
			return "", "", ErrMalformed
		}
		value := data[i : i+length]
		i += length

		switch tag {
		case tlvNickname:
			nickname = string(value)
			gotNickname = true
		case tlvPeerID:
			peerID = string(value)
			gotPeerID = true
		default:
			// unknown TLV type, skip
		}
	}

	if !gotNickname || !gotPeerID {
		return "", "", ErrMalformed
	}

	return nickname, peerID, nil
}
