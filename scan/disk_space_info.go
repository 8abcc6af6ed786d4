package scan

// DiskSpace describes the capacity of a file system in bytes.
type DiskSpace struct {
	Total     uint64 `json:"total"`
	Free      uint64 `json:"free"`
	Available uint64 `json:"available"` // Free space usable by unprivileged users
	Used      uint64 `json:"used"`
}

// UsagePercent returns used space in percentage of the total capacity.
func (space DiskSpace) UsagePercent() float64 {
	if space.Total == 0 {
		return 0
	}
	return float64(space.Used) / float64(space.Total) * 100
}
