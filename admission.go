package apigate

// Admission defines what Invoke does when the current window is used up.
type Admission string

const (
	// AdmissionWait blocks until the next window reset or until the
	// caller's context is done. This is the default.
	AdmissionWait Admission = "wait"
	// AdmissionFailFast returns a *LimitExceededError immediately. The
	// caller can use its Wait method to opt into waiting.
	AdmissionFailFast Admission = "fail_fast"
)

func (a Admission) String() string {
	switch a {
	case AdmissionWait, "":
		return "Wait"
	case AdmissionFailFast:
		return "FailFast"
	default:
		return "Unknown"
	}
}
