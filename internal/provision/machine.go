package provision

import (
	"time"

	"github.com/muurk/apportal/internal/logging"
	"github.com/muurk/apportal/internal/netprobe"
	"go.uber.org/zap"
)

// Status LED patterns per state.
const (
	apModeBlinkPeriod        = 300 * time.Millisecond
	apModeBlinkDuty          = 90
	notConfiguredBlinkPeriod = 300 * time.Millisecond
	notConfiguredBlinkDuty   = 50
	connectingBlinkPeriod    = 1000 * time.Millisecond
	connectingBlinkDuty      = 50
	onlineBlinkPeriod        = 8000 * time.Millisecond
	onlineBlinkDuty          = 2
)

// Tick runs one iteration of the state machine. The first call leaves
// Boot; after that handler registration is ignored.
func (c *Controller) Tick() {
	c.started = true
	c.blink.Tick(c.clock.Now())

	switch c.state {
	case Boot:
		next := ApMode
		if c.skipAP {
			if c.apPasswordRequired() {
				logging.Info("Skip AP startup requested but AP password missing or config button pressed")
			} else {
				logging.Info("Skipping AP startup")
				next = Connecting
			}
		}
		c.changeState(next)

	case NotConfigured, ApMode:
		c.checkPresence()
		c.checkAPTimeout()
		c.handleClient()

	case Connecting:
		if c.checkWifiConnection() {
			c.changeState(Online)
		}

	case Online:
		c.handleClient()
		if c.probe.StationLinkStatus() != netprobe.Connected {
			logging.Info("Network link lost, reconnecting")
			c.changeState(Connecting)
		}
	}
}

// Delay keeps the state machine running for d. It calls Tick and sleeps
// one millisecond until d has elapsed.
func (c *Controller) Delay(d time.Duration) {
	start := c.clock.Now()
	for c.clock.Now().Sub(start) < d {
		c.Tick()
		c.clock.Sleep(time.Millisecond)
	}
}

func (c *Controller) handleClient() {
	if c.portal != nil {
		c.portal.HandleClient()
	}
}

// apPasswordRequired reports whether the access point must run with the
// initial password.
func (c *Controller) apPasswordRequired() bool {
	return c.forceDefault || c.apPassword.Value() == ""
}

func (c *Controller) changeState(next State) {
	if next == ApMode && c.apPasswordRequired() {
		if c.forceDefault {
			logging.Debug("AP mode forced by config button")
		} else {
			logging.Debug("AP password not configured")
		}
		next = NotConfigured
	}

	prev := c.state
	c.state = next
	logging.LogStateChange(prev.String(), next.String())
	c.enterState(prev, next)

	if c.stateObserver != nil {
		c.stateObserver(prev, next)
	}
}

func (c *Controller) enterState(prev, next State) {
	now := c.clock.Now()

	switch next {
	case ApMode, NotConfigured:
		if next == ApMode {
			c.blink.SetStateDefault(apModeBlinkPeriod, apModeBlinkDuty)
		} else {
			c.blink.SetStateDefault(notConfiguredBlinkPeriod, notConfiguredBlinkDuty)
		}
		// Substituted credentials do not outlive the portal.
		c.altAuth = nil
		c.startAP(next)
		if c.updater != nil {
			c.updater.Setup(c.updatePath)
		}
		c.beginPortal()
		c.presence = PresenceNone
		c.apStart = now

	case Connecting:
		if prev.IsAccessPoint() {
			c.stopAP()
		}
		c.blink.SetStateDefault(connectingBlinkPeriod, connectingBlinkDuty)
		c.connStart = now
		auth := c.WifiAuthInfo()
		logging.Info("Connecting to network",
			zap.String("ssid", auth.SSID),
			zap.String("password", logging.HiddenValue),
		)
		c.wifiHandler(auth.SSID, auth.Password)

	case Online:
		c.blink.SetStateDefault(onlineBlinkPeriod, onlineBlinkDuty)
		if c.updater != nil {
			c.updater.UpdateCredentials(AdminUser, c.APPassword())
		}
		c.beginPortal()
		logging.Info("Online", zap.Stringer("ip", c.probe.StationIP()))
		if c.onConnect != nil {
			c.onConnect()
		}
	}
}

func (c *Controller) startAP(state State) {
	password := c.APPassword()
	if state == NotConfigured {
		password = c.cfg.InitialAPPassword
	}
	logging.Info("Starting access point",
		zap.String("name", c.ThingName()),
		zap.Bool("initial_password", state == NotConfigured),
	)
	if !c.apHandler(c.ThingName(), password) {
		logging.Warn("Access point did not start", zap.String("name", c.ThingName()))
	}

	if c.dns != nil {
		if err := c.dns.Start(c.probe.AccessPointIP()); err != nil {
			logging.Warn("Failed to start captive DNS", zap.Error(err))
		}
	}
}

func (c *Controller) stopAP() {
	if c.dns != nil {
		if err := c.dns.Stop(); err != nil {
			logging.Warn("Failed to stop captive DNS", zap.Error(err))
		}
	}
	c.probe.StopAccessPoint()
}

func (c *Controller) beginPortal() {
	if c.portal == nil {
		return
	}
	if err := c.portal.Begin(); err != nil {
		logging.Error("Failed to start portal", zap.Error(err))
	}
}

// checkPresence follows clients joining and leaving the access point. The
// first disconnect also releases a forced initial password.
func (c *Controller) checkPresence() {
	count := c.probe.AccessPointClientCount()
	switch {
	case c.presence == PresenceNone && count > 0:
		c.presence = PresencePresent
		logging.Info("Client joined access point", zap.Int("clients", count))
	case c.presence == PresencePresent && count == 0:
		c.presence = PresenceGone
		logging.Info("Clients left access point")
		if c.forceDefault {
			logging.Info("Releasing forced AP mode")
			c.forceDefault = false
		}
	}
}

// checkAPTimeout leaves the access point once a network and an AP password
// are configured and either the last client left or the timeout passed
// with nobody joined.
func (c *Controller) checkAPTimeout() {
	if c.wifiSSID.Value() == "" || c.apPassword.Value() == "" || c.forceDefault {
		return
	}
	elapsed := c.clock.Now().Sub(c.apStart)
	if c.presence == PresenceGone ||
		(elapsed >= c.apTimeout && c.presence != PresencePresent) {
		c.changeState(Connecting)
	}
}

// checkWifiConnection reports whether the link is up. When the connect
// timeout has passed it aborts the attempt and asks the failure handler
// for other credentials.
func (c *Controller) checkWifiConnection() bool {
	if c.probe.StationLinkStatus() == netprobe.Connected {
		return true
	}

	elapsed := c.clock.Now().Sub(c.connStart)
	if elapsed < c.wifiTimeout {
		return false
	}

	logging.Warn("Network connect timed out",
		zap.String("ssid", c.WifiAuthInfo().SSID),
		zap.Duration("timeout", c.wifiTimeout),
	)
	c.probe.AbortStationConnect()

	if alt := c.failureHandler(); alt != nil {
		creds := *alt
		c.altAuth = &creds
		logging.Info("Retrying with alternate credentials", zap.String("ssid", creds.SSID))
		c.changeState(Connecting)
	} else {
		c.changeState(ApMode)
	}
	return false
}
