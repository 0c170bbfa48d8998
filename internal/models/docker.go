package models

// OtherGroup is the compose group assigned to containers without compose labels.
const OtherGroup = "Other"

// ContainerRecord is one container from the engine listing joined with its stats.
type ContainerRecord struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Image         string  `json:"image"`
	Ports         string  `json:"ports"`
	InternalPorts string  `json:"internal_ports"`
	Status        string  `json:"status"`
	Running       bool    `json:"running"`
	CPU           float64 `json:"cpu"`
	MemoryBytes   uint64  `json:"memory_bytes"`
	GroupName     string  `json:"group_name"`
	GroupPath     string  `json:"group_path,omitempty"`
	// Activity is seconds since the last state transition; lower is more recent.
	Activity uint64 `json:"activity"`
}

// GroupKey returns the compose grouping key: the path when known, else the name.
func (c ContainerRecord) GroupKey() string {
	return ComposeGroup{Name: c.GroupName, Path: c.GroupPath}.Key()
}

// ComposeGroup identifies a compose project.
type ComposeGroup struct {
	Name string
	Path string
}

// Key returns Path when set, else Name.
func (g ComposeGroup) Key() string {
	if g.Path != "" {
		return g.Path
	}
	return g.Name
}

// DockerRow is one entry of the grouped container view. Group rows carry
// Name/Path/Count/RunningCount, Item rows carry Index into the flat list and a
// tree Prefix, Separator rows carry nothing.
type DockerRow struct {
	Kind         RowKind
	Name         string
	Path         string
	Count        int
	RunningCount int
	Index        int
	Prefix       string
}

// ContainerAction is a lifecycle verb understood by the engine CLI.
type ContainerAction string

const (
	ActionStart   ContainerAction = "start"
	ActionStop    ContainerAction = "stop"
	ActionRestart ContainerAction = "restart"
	ActionKill    ContainerAction = "kill"
)

// ExpectedRunning reports the running state a container should reach once
// the action completes.
func (a ContainerAction) ExpectedRunning() bool {
	return a != ActionStop && a != ActionKill
}

// ContainerOpResult is sent exactly once per container per dispatched action.
type ContainerOpResult struct {
	ContainerID string
	Action      ContainerAction
	Success     bool
	Message     string
}
