package platform

import (
	"syscall"

	"github.com/daydream/camera-core/internal/api"
)

// CameraInfo reports the fixed sensor capabilities and the live
// available space on the media root's filesystem for STATUS response
// aggregation. Disk usage is read directly via syscall.Statfs: no
// library in the corpus offers filesystem capacity, and it is a thin
// enough OS boundary call that wrapping it would add nothing.
type CameraInfo struct {
	mediaRoot    string
	capabilities api.Capabilities
}

// NewCameraInfo builds a CameraInfo reporting the given static
// capabilities and measuring free space under mediaRoot.
func NewCameraInfo(mediaRoot string, capabilities api.Capabilities) *CameraInfo {
	return &CameraInfo{mediaRoot: mediaRoot, capabilities: capabilities}
}

// Capabilities returns the camera's static capabilities.
func (c *CameraInfo) Capabilities() api.Capabilities {
	return c.capabilities
}

// Storage reports total and available bytes on the media root's
// filesystem. A failed stat reports zeroed totals rather than erroring,
// since STATUS responses must still succeed when storage can't be read.
func (c *CameraInfo) Storage() api.StorageStatus {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(c.mediaRoot, &stat); err != nil {
		return api.StorageStatus{}
	}
	blockSize := uint64(stat.Bsize)
	return api.StorageStatus{
		TotalBytes:     int64(stat.Blocks * blockSize),
		AvailableBytes: int64(stat.Bavail * blockSize),
	}
}
