package bootstrap

// Phase is a step of the bootstrap state machine
type Phase int32

// Phases of the leader, in order, followed by the phase of a follower
// waiting for the leader and the terminal phases
const (
	Electing Phase = iota
	RegisteringWebhook
	InitiatingReplicaSet
	AwaitingQuorumWindow
	MergingMembership
	Reconfiguring
	SignalingFinished
	AwaitingLeader
	Ready
	Failed
)

var phaseNames = [...]string{
	Electing:             "Electing",
	RegisteringWebhook:   "RegisteringWebhook",
	InitiatingReplicaSet: "InitiatingReplicaSet",
	AwaitingQuorumWindow: "AwaitingQuorumWindow",
	MergingMembership:    "MergingMembership",
	Reconfiguring:        "Reconfiguring",
	SignalingFinished:    "SignalingFinished",
	AwaitingLeader:       "AwaitingLeader",
	Ready:                "Ready",
	Failed:               "Failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "Unknown"
	}
	return phaseNames[p]
}
