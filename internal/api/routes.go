package api

const (
	HealthCheckRoute = "/healthz"

	MenuRoute = "/v1/menu"

	ServicesRoute   = "/v1/services/{product}/{cluster}"
	TasksRoute      = "/v1/tasks/{product}/{cluster}"
	ContainersRoute = "/v1/containers/{product}/{cluster}"
	ConnectRoute    = "/v1/connect/{product}/{cluster}"

	AccessParent       = "/v1/access/"
	RequestAccessRoute = AccessParent + "request/{product}/{cluster}"
	PollAccessRoute    = AccessParent + "poll/{token}"
	ApproveAccessRoute = AccessParent + "approve/{token}"

	AuditRoute = "/v1/audit"
)

// Headers advertised on the menu route, used by the client for its identity
// echo and version check.
const (
	UserHeader    = "Ssh-Tool-User"
	VersionHeader = "Ssh-Tool-Version"
)
