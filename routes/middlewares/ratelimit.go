package middlewares

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/joehsn/formify/httpx"
	"github.com/joehsn/formify/log"
)

const limiterIdle = 3 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit allows each client address r events per second with the given
// burst. Clients idle for a few minutes are forgotten.
func RateLimit(r float64, burst int) func(http.Handler) http.Handler {
	var (
		mu        sync.Mutex
		clients   = make(map[string]*client)
		lastSweep = time.Now()
	)

	allow := func(ip string) bool {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if now.Sub(lastSweep) > time.Minute {
			for k, c := range clients {
				if now.Sub(c.lastSeen) > limiterIdle {
					delete(clients, k)
				}
			}
			lastSweep = now
		}

		c, ok := clients[ip]
		if !ok {
			c = &client{limiter: rate.NewLimiter(rate.Limit(r), burst)}
			clients[ip] = c
		}
		c.lastSeen = now
		return c.limiter.Allow()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ip, _, err := net.SplitHostPort(req.RemoteAddr)
			if err != nil {
				ip = req.RemoteAddr
			}
			if !allow(ip) {
				w.Header().Set("Retry-After", "1")
				httpx.LogStatus(w, http.StatusTooManyRequests, log.DebugLevel, "rate_limit.exceeded")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
