package fee

// Mode selects the rule set applied to managed channels.
type Mode string

const (
	// ModeInitial applies a fresh fee computed from the latest snapshot.
	ModeInitial Mode = "initial"
	// ModeRegular applies the stability, decrease and re-rate rules over a window.
	ModeRegular Mode = "regular"
)

// Reason explains a decision.
type Reason string

const (
	ReasonNoData              Reason = "no_data"
	ReasonInactive            Reason = "inactive"
	ReasonInvalidCapacity     Reason = "invalid_capacity"
	ReasonUnmanaged           Reason = "unmanaged"
	ReasonFixedAlreadySet     Reason = "fixed_already_set"
	ReasonFixedFee            Reason = "fixed_fee"
	ReasonMissingReferenceFee Reason = "missing_reference_fee"
	ReasonInitialAlreadySet   Reason = "initial_already_set"
	ReasonInitialFee          Reason = "initial_fee"
	ReasonInsufficientData    Reason = "insufficient_data"
	ReasonDecrease            Reason = "decrease"
	ReasonRerate              Reason = "rerate"
	ReasonStable              Reason = "stable"
)

// FeeUpdate is the payload of a push decision.
type FeeUpdate struct {
	LocalFee   int64 `json:"local_fee"`
	InboundFee int64 `json:"inbound_fee"`

	// LocalBalance sizes max_htlc at the gateway
	LocalBalance int64 `json:"local_balance"`
}

// Decision is the engine output for one channel.
// Update is nil for a no-op.
type Decision struct {
	ChannelID string `json:"channel_id"`
	Class     Class  `json:"class"`
	Mode      Mode   `json:"mode"`
	Reason    Reason `json:"reason"`

	// Ratio is the latest local balance ratio, 0 when it cannot be computed
	Ratio float64 `json:"ratio"`

	CurrentLocalFee   int64 `json:"current_local_fee"`
	CurrentInboundFee int64 `json:"current_inbound_fee"`

	Update *FeeUpdate `json:"update,omitempty"`
}

// IsPush reports whether the decision carries a fee update.
func (d Decision) IsPush() bool {
	return d.Update != nil
}
