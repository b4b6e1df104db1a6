package wifi

// Error is an asynchronous Wi-Fi failure surfaced to a request's listener.
type Error string

const (
	// ErrAuthentication is surfaced when the supplicant reports an
	// authentication failure against the target network.
	ErrAuthentication Error = "WIFI_AUTHENTICATION"
	// ErrTimeout is surfaced when request_network does not reach Connected
	// within the connect timeout.
	ErrTimeout Error = "WIFI_TIMEOUT"
	// ErrBusy is surfaced immediately when request_network is called while
	// the machine is not Idle.
	ErrBusy Error = "WIFI_BUSY"
)

func (e Error) Error() string { return string(e) }
