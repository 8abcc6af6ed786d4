package gateway

import "github.com/dux-project/dux/common/api"

// Business errors of the gateway
var (
	ErrScanInProgress  = api.NewBusinessError(101, "Scan already in progress")
	ErrNoTree          = api.NewBusinessError(102, "No scan result available")
	ErrNodeNotFound    = api.NewBusinessError(103, "Node not found")
	ErrRootRemoval     = api.NewBusinessError(104, "Scan root cannot be removed")
	ErrProfileNotFound = api.NewBusinessError(105, "Connection profile not found")
	ErrScanRoot        = api.NewBusinessError(106, "Scan root inaccessible")
	ErrUnknownFormat   = api.NewBusinessError(107, "Unknown export format")
	ErrRemoteTree      = api.NewBusinessError(108, "Content of remote files unavailable")
)
