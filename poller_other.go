//go:build !linux

package nex

import (
	"errors"
	"time"
)

// poller has no implementation outside Linux: epoll has no portable
// analogue in this module's dependency set. This stub stands in for
// poller_linux.go on other platforms; newPoller always fails, so
// NewEventLoop fails the same way rather than silently doing nothing. Other
// files of the package use Linux-only unix symbols without a build
// constraint, so the package as a whole still does not compile there.
type poller struct{}

var errPollerUnsupported = errors.New("nex: epoll poller is only available on linux")

func newPoller() (*poller, error) { return nil, errPollerUnsupported }

func (p *poller) close() error { return errPollerUnsupported }

func (p *poller) poll(timeout time.Duration, active []*Channel) ([]*Channel, error) {
	return active, errPollerUnsupported
}

func (p *poller) updateChannel(ch *Channel) error { return errPollerUnsupported }
func (p *poller) removeChannel(ch *Channel) error { return errPollerUnsupported }
