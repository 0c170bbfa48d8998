package models

// RowKind tags the variant of a grouped row.
type RowKind int

const (
	RowGroup RowKind = iota
	RowItem
	RowSeparator
	// RowUtilities heads the section of tooling processes in the node view.
	RowUtilities
)

// GroupedRow is the shared row shape for label-grouped views. Group rows use
// Name and Count; Item rows use Index into the source slice.
type GroupedRow struct {
	Kind  RowKind
	Name  string
	Count int
	Index int
}

// PortRow is a row of the grouped ports view.
type PortRow = GroupedRow

// NodeRow is a row of the grouped node view.
type NodeRow = GroupedRow

// PortRecord is one listening socket, or one container-published port when PID is 0.
type PortRecord struct {
	Proto       string `json:"proto"`
	Port        uint16 `json:"port"`
	PID         int32  `json:"pid"`
	ProcessName string `json:"process_name"`
	Exe         string `json:"exe"`
	ContainerID string `json:"container_id,omitempty"`
	GroupName   string `json:"group_name,omitempty"`
	ProjectName string `json:"project_name,omitempty"`
}

// NodeProcessRecord is one detected JavaScript runtime process, a merged set
// of cluster workers, or a PM2 entry without a live process.
type NodeProcessRecord struct {
	PID         int32    `json:"pid"`
	Name        string   `json:"name"`
	Script      string   `json:"script"`
	ProjectName string   `json:"project_name,omitempty"`
	UsesNVM     bool     `json:"uses_nvm"`
	NodeVersion string   `json:"node_version,omitempty"`
	CPU         float64  `json:"cpu"`
	MemoryBytes uint64   `json:"memory_bytes"`
	UptimeSecs  *uint64  `json:"uptime_secs,omitempty"`
	PM2         *PM2Info `json:"pm2,omitempty"`
	WorkerCount int      `json:"worker_count"`
}

// PM2Info is the subset of a PM2 jlist entry the node view consumes.
// Zero PID and UptimeMS mean PM2 reported none; a nil CPU means no monit data.
type PM2Info struct {
	PMID        uint32   `json:"pm_id"`
	Name        string   `json:"name"`
	PID         uint32   `json:"pid,omitempty"`
	Mode        string   `json:"mode"`
	Status      string   `json:"status"`
	Restarts    uint32   `json:"restarts"`
	UptimeMS    uint64   `json:"uptime_ms,omitempty"`
	MemoryBytes uint64   `json:"memory_bytes"`
	CPU         *float64 `json:"cpu,omitempty"`
	Script      string   `json:"script,omitempty"`
}
