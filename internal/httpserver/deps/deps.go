package deps

import (
	"time"

	"github.com/MrSnakeDoc/lemcache/internal/actions"
	"github.com/MrSnakeDoc/lemcache/internal/cache"
	"github.com/MrSnakeDoc/lemcache/internal/logger"
	"github.com/MrSnakeDoc/lemcache/internal/session"
	"github.com/MrSnakeDoc/lemcache/internal/settings"
)

type Deps struct {
	Logger             logger.Logger
	StartTime          time.Time
	Version            string
	Commit             string
	BuildDate          string
	GoVersion          string
	TimeNow            func() time.Time // for testing, defaults to time.Now
	AllowedHosts       []string         // Host headers allowed to access the server
	AllowedCIDRS       []string         // IPs allowed to access the API
	TrustProxy         bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RateLimitBurst     int              // requests allowed in a burst per client IP on routes reaching the instance
	RateLimitPerMinute int              // token refill per client IP per minute
	Cache              *cache.Store     // community cache store
	Actions            *actions.Service // sync actions and preference wrappers
	Session            *session.Manager // active account
	Settings           settings.Store   // durable preference backend (for health checks)
	TrendingTrigger    chan struct{}    // channel to trigger a manual trending refresh
}

// Now returns d.TimeNow() when set, time.Now() otherwise.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
