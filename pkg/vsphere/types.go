package vsphere

import "errors"

// ErrVMNotFound marks lookups for a name with no matching virtual machine.
var ErrVMNotFound = errors.New("virtual machine not found")

// VMDetails is the migration-relevant description of one virtual machine.
// Field names and units follow the inventory contract the planning agents
// are prompted with: capacities in GiB, memory in MiB.
type VMDetails struct {
	Name            string     `json:"name"`
	OperatingSystem string     `json:"operating_system"`
	CPU             int        `json:"cpu"`
	MemoryMB        int        `json:"memory_mb"`
	Disks           []DiskInfo `json:"disks"`
	Networks        []string   `json:"networks"`
	PowerState      string     `json:"power_state"`
	ConnectionState string     `json:"connection_state"`
	OverallStatus   string     `json:"overall_status"`
}

// DiskInfo describes one virtual disk.
type DiskInfo struct {
	Label      string  `json:"label"`
	CapacityGB float64 `json:"capacity_gb"`
}

// DatastoreInfo describes one datastore's capacity.
type DatastoreInfo struct {
	Name          string `json:"name"`
	CapacityBytes int64  `json:"capacity_bytes"`
	FreeBytes     int64  `json:"free_bytes"`
}
