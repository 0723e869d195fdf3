package tunnel

const (
	// linkBlockSize is the link-layer payload unit the best-fit payload is aligned to.
	linkBlockSize = 27
	// linkHeaderSize is subtracted from the aligned size for per-packet headers.
	linkHeaderSize = 7
	// attHeaderSize is the notification/write header carried inside the MTU.
	attHeaderSize = 3
)

// BestFitPayload returns the largest single data payload for a connection with the given
// MTU: the largest multiple of 27 not exceeding mtu, minus 7 header bytes. MTUs smaller
// than one link block fall back to mtu minus the 3-byte attribute header. The result is
// never less than 1.
func BestFitPayload(mtu int) int {
	if mtu >= linkBlockSize {
		return (mtu/linkBlockSize)*linkBlockSize - linkHeaderSize
	}

	return max(mtu-attHeaderSize, 1)
}
