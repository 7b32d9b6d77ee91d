package governance

import "time"

// Clock returns the current time. Tests swap it for a manual clock.
type Clock func() time.Time
