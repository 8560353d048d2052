// Package mute holds the runtime switch that suppresses outbound alerts.
package mute

import "sync/atomic"

// Controller is shared between the command loop (writer) and the notifier
// (reader). The zero value is unmuted.
type Controller struct {
	muted atomic.Bool
}

// NewController returns an unmuted controller.
func NewController() *Controller {
	return &Controller{}
}

// SetMuted stores the flag. It is visible to every IsMuted call that starts
// after SetMuted returns.
func (c *Controller) SetMuted(muted bool) {
	c.muted.Store(muted)
}

// IsMuted reports the current flag.
func (c *Controller) IsMuted() bool {
	return c.muted.Load()
}
