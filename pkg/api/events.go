package api

// Action is what a scaling event asks for
type Action string

const (
	// ActionAdd adds the node to the replica set
	ActionAdd Action = "add"
	// ActionRemove removes the node from the replica set
	ActionRemove Action = "remove"
)

// ScalingEvent is a scheduler task lifecycle change for this application
type ScalingEvent struct {
	Timestamp string `json:"timestamp"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Action    Action `json:"action"`
}

// Node returns the database node the event refers to
func (e ScalingEvent) Node() Node {
	return Node{Host: e.Host, Port: e.Port}
}

// Key returns the "host:port" connection key of the event
func (e ScalingEvent) Key() string {
	return e.Node().Key()
}
