package api

// Marathon event types and task states consumed by the configurator
const (
	StatusUpdateEventType = "status_update_event"
	UnsubscribeEventType  = "unsubscribe_event"

	TaskRunning  = "TASK_RUNNING"
	TaskFinished = "TASK_FINISHED"
	TaskFailed   = "TASK_FAILED"
	TaskKilled   = "TASK_KILLED"
	TaskLost     = "TASK_LOST"
)

// Task is a running task instance as reported by the scheduler
type Task struct {
	ID        string `json:"id"`
	AppID     string `json:"appId"`
	Host      string `json:"host"`
	Ports     []int  `json:"ports"`
	StartedAt string `json:"startedAt,omitempty"`
}

// TasksResp is the response of the scheduler's app tasks endpoint
type TasksResp struct {
	Tasks []Task `json:"tasks"`
}

// StatusUpdateEvent is the webhook payload posted by the scheduler
type StatusUpdateEvent struct {
	EventType  string `json:"eventType"`
	Timestamp  string `json:"timestamp"`
	SlaveID    string `json:"slaveId,omitempty"`
	TaskID     string `json:"taskId,omitempty"`
	TaskStatus string `json:"taskStatus"`
	AppID      string `json:"appId"`
	Host       string `json:"host"`
	Ports      []int  `json:"ports"`
	Version    string `json:"version,omitempty"`
}

// SubscriptionResp is the response of an event subscription request
type SubscriptionResp struct {
	CallbackURL string `json:"callbackUrl"`
	ClientIP    string `json:"clientIp,omitempty"`
	EventType   string `json:"eventType"`
}
