// errors.go — Error taxonomy for the capture session.
// Only failing to acquire a session at all is fatal to a run. Everything else
// degrades the evidence bundle instead of aborting it.
package capture

import (
	"fmt"
	"time"
)

// NavigationError reports a navigation that did not reach quiet network within
// its hard timeout. Recoverable: capture proceeds against whatever state
// exists.
type NavigationError struct {
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s did not settle within %s: %v", e.URL, e.Timeout, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ChannelReadError reports a failed snapshot round trip against one in-page
// buffer channel. Logged and treated as an empty read for that round trip.
type ChannelReadError struct {
	Channel string
	Err     error
}

func (e *ChannelReadError) Error() string {
	return fmt.Sprintf("reading %s channel: %v", e.Channel, e.Err)
}

func (e *ChannelReadError) Unwrap() error { return e.Err }

// ArtifactWriteError reports a failed write of one artifact. Scoped to that
// artifact; sibling writes proceed.
type ArtifactWriteError struct {
	Artifact string
	Err      error
}

func (e *ArtifactWriteError) Error() string {
	return fmt.Sprintf("writing artifact %s: %v", e.Artifact, e.Err)
}

func (e *ArtifactWriteError) Unwrap() error { return e.Err }

// SessionTeardownError reports a failure while releasing the browser session.
// Logged; never masks the primary error that triggered teardown.
type SessionTeardownError struct {
	Err error
}

func (e *SessionTeardownError) Error() string {
	return fmt.Sprintf("session teardown: %v", e.Err)
}

func (e *SessionTeardownError) Unwrap() error { return e.Err }
