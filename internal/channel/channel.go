package channel

import "time"

// Channel is the static metadata of one payment channel.
// Rows come from the channel_lists table and are read-only for a run.
type Channel struct {
	// ID is the opaque channel identifier used as the key in channel lists
	ID string `json:"channel_id"`

	// Name is the display name (usually the peer alias)
	Name string `json:"channel_name"`

	// ChannelPoint is the funding outpoint "txid:index" used to address the node API
	ChannelPoint string `json:"channel_point"`

	// Capacity is the total channel capacity in sats
	Capacity int64 `json:"capacity"`
}

// Snapshot is one observed state of a channel.
// A channel owns an append-only sequence of snapshots ordered by Date.
type Snapshot struct {
	ChannelID string    `json:"channel_id"`
	Date      time.Time `json:"date"`

	// LocalBalance is the balance on our side in sats
	LocalBalance int64 `json:"local_balance"`

	// LocalFee is the configured outbound fee rate (ppm)
	LocalFee int64 `json:"local_fee"`

	// LocalInboundFee is the configured inbound fee rate (ppm, usually <= 0)
	LocalInboundFee int64 `json:"local_infee"`

	RemoteBalance    int64 `json:"remote_balance"`
	RemoteFee        int64 `json:"remote_fee"`
	RemoteInboundFee int64 `json:"remote_infee"`
	NumUpdates       int64 `json:"num_updates"`

	// ReferenceFee is the externally sourced benchmark fee (amboss fee); nil when unknown
	ReferenceFee *int64 `json:"amboss_fee,omitempty"`

	Active bool `json:"active"`
}

// Latest returns the newest snapshot of an oldest-first window.
func Latest(window []Snapshot) (Snapshot, bool) {
	if len(window) == 0 {
		return Snapshot{}, false
	}
	return window[len(window)-1], true
}
