// Package gateway is the messaging gateway over the Telegram Bot API: it
// delivers catalog content, classifies delivery failures, and degrades media
// sends through a fallback chain instead of surfacing raw transport errors.
package gateway

// Result classifies the outcome of one delivery attempt.
type Result int

const (
	// ResultDelivered means the message reached Telegram.
	ResultDelivered Result = iota
	// ResultPermanentlyUnreachable means the user blocked the bot; no retry.
	ResultPermanentlyUnreachable
	// ResultTransientFailure covers network errors and rate limits; the next
	// scheduled item proceeds, the failed one is not retried.
	ResultTransientFailure
	// ResultInvalidReference means the configured media pointer is
	// structurally wrong; never retried with the same reference.
	ResultInvalidReference
	// ResultPayloadTooLarge means the primary format was rejected by size.
	ResultPayloadTooLarge
)

func (r Result) String() string {
	switch r {
	case ResultDelivered:
		return "delivered"
	case ResultPermanentlyUnreachable:
		return "permanently_unreachable"
	case ResultTransientFailure:
		return "transient_failure"
	case ResultInvalidReference:
		return "invalid_reference"
	case ResultPayloadTooLarge:
		return "payload_too_large"
	default:
		return "unknown"
	}
}

// Delivery is the terminal state of one send attempt.
type Delivery struct {
	Result    Result
	MessageID int
}

// OK reports whether the attempt ended in delivery.
func (d Delivery) OK() bool {
	return d.Result == ResultDelivered
}

// Unreachable reports whether further sends to this user are pointless.
func (d Delivery) Unreachable() bool {
	return d.Result == ResultPermanentlyUnreachable
}

// Membership is the user's status in a channel.
type Membership int

const (
	MembershipNone Membership = iota
	MembershipMember
	MembershipAdmin
	MembershipOwner
)

// Joined reports whether the membership satisfies a subscription gate.
func (m Membership) Joined() bool {
	return m != MembershipNone
}
