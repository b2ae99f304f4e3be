// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package feature

// Feature type names of the built-in collectors.
const (
	TypeOS            = "os"
	TypeProcess       = "process"
	TypePackage       = "package"
	TypeFile          = "file"
	TypeConfig        = "config"
	TypeCPU           = "cpu"
	TypeMemory        = "memory"
	TypeInterface     = "interface"
	TypeLoad          = "load"
	TypeDockerInspect = "dockerinspect"
	TypeDisk          = "disk"
	TypeConnection    = "connection"
	TypeMetric        = "metric"
	TypeDockerPS      = "dockerps"
	TypeDockerHistory = "dockerhistory"
)

// Unsupported marks attributes that cannot be determined in the current crawl
// mode, such as the boot time of an offline disk image.
const Unsupported = "unsupported"

// OS describes the identity of an operating system.
type OS struct {
	BootTime string   `json:"boottime"`
	Uptime   string   `json:"uptime"`
	IPAddrs  []string `json:"ipaddr"`
	Distro   string   `json:"os"`
	OSName   string   `json:"os_version"`
	Machine  string   `json:"architecture"`
	Release  string   `json:"os_kernel"`
	System   string   `json:"os_type"`
	Version  string   `json:"version"`
}

// Process describes a single process.
type Process struct {
	PID     int      `json:"pid"`
	PPID    int      `json:"ppid"`
	Name    string   `json:"pname"`
	Cmdline []string `json:"cmd"`
	State   string   `json:"state"`
	Threads int      `json:"num_threads"`
	UID     int      `json:"user"`
	Cwd     string   `json:"cwd"`
}

// Package describes an installed software package.
type Package struct {
	Name      string `json:"pkgname"`
	Version   string `json:"pkgversion"`
	Size      int64  `json:"pkgsize"`
	Installed string `json:"installed"`
	Manager   string `json:"pkgmanager"`
}

// File describes the metadata of a single file system object.
type File struct {
	Atime   float64 `json:"atime"`
	Ctime   float64 `json:"ctime"`
	Mtime   float64 `json:"mtime"`
	GID     uint32  `json:"gid"`
	UID     uint32  `json:"uid"`
	LinksTo string  `json:"linksto"`
	Mode    uint32  `json:"mode"`
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	Size    int64   `json:"size"`
	Type    string  `json:"type"`
}

// Config carries the contents of a configuration file.
type Config struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Path    string `json:"path"`
}

// CPU describes the utilization of a single CPU in percent.
type CPU struct {
	Idle      float64 `json:"cpu_idle"`
	Nice      float64 `json:"cpu_nice"`
	User      float64 `json:"cpu_user"`
	Wait      float64 `json:"cpu_wait"`
	System    float64 `json:"cpu_system"`
	Interrupt float64 `json:"cpu_interrupt"`
	Steal     float64 `json:"cpu_steal"`
	Used      float64 `json:"cpu_util"`
}

// Memory describes memory usage in bytes; Utilization is in percent and
// negative when it cannot be determined.
type Memory struct {
	Used        int64   `json:"memory_used"`
	Buffered    int64   `json:"memory_buffered"`
	Cached      int64   `json:"memory_cached"`
	Free        int64   `json:"memory_free"`
	Utilization float64 `json:"memory_util_percentage"`
}

// Interface describes the traffic rates of a network interface, per second.
type Interface struct {
	BytesOut   float64 `json:"if_octets_tx"`
	BytesIn    float64 `json:"if_octets_rx"`
	PacketsOut float64 `json:"if_packets_tx"`
	PacketsIn  float64 `json:"if_packets_rx"`
	ErrorsOut  float64 `json:"if_errors_tx"`
	ErrorsIn   float64 `json:"if_errors_rx"`
}

// Load describes the system load averages.
type Load struct {
	Shortterm float64 `json:"shortterm"`
	Midterm   float64 `json:"midterm"`
	Longterm  float64 `json:"longterm"`
}

// Disk describes a mounted file system and its usage.
type Disk struct {
	Device     string  `json:"partitionname"`
	FreePct    float64 `json:"freepct"`
	FsType     string  `json:"fstype"`
	MountPoint string  `json:"mountpt"`
	Options    string  `json:"mountopts"`
	Size       uint64  `json:"partitionsize"`
}

// Connection describes a TCP or UDP socket of a process. Sockets without a
// peer have an empty RemoteAddr and a zero RemotePort.
type Connection struct {
	LocalAddr  string `json:"localipaddr"`
	LocalPort  int    `json:"localport"`
	Name       string `json:"pname"`
	PID        int    `json:"pid"`
	RemoteAddr string `json:"remoteipaddr"`
	RemotePort int    `json:"remoteport"`
	Status     string `json:"connstatus"`
}

// Metric describes the resource usage of a single process. CPUPct is the
// share of a single CPU since the previous collection, MemPct the share of
// the resident set in total memory, both in percent. Read and Write count
// storage I/O bytes.
type Metric struct {
	CPUPct float64 `json:"cpupct"`
	MemPct float64 `json:"mempct"`
	Name   string  `json:"pname"`
	PID    int     `json:"pid"`
	Read   uint64  `json:"read"`
	RSS    uint64  `json:"rss"`
	Status string  `json:"status"`
	User   string  `json:"username"`
	VMS    uint64  `json:"vms"`
	Write  uint64  `json:"write"`
}

// DockerPS describes a container as listed by its container engine.
type DockerPS struct {
	Status  string   `json:"Status"`
	Created int64    `json:"Created"` // Unix seconds; zero if unknown
	Image   string   `json:"Image"`
	Ports   []string `json:"Ports"`
	Command []string `json:"Command"`
	Names   string   `json:"Names"`
	ID      string   `json:"Id"`
}

// DockerHistory is the build history of a container's image, most recent
// layer first.
type DockerHistory struct {
	History []ImageLayer `json:"history"`
}

// ImageLayer is a single entry of an image build history.
type ImageLayer struct {
	ID        string   `json:"Id"`
	Created   int64    `json:"Created"`
	CreatedBy string   `json:"CreatedBy"`
	Tags      []string `json:"Tags"`
	Size      int64    `json:"Size"`
	Comment   string   `json:"Comment"`
}
