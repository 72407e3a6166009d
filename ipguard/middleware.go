package ipguard

import (
	"net"
	"net/http"
	"strings"

	"github.com/djylb/nps-guard/lib/common"
	"github.com/djylb/nps-guard/lib/logs"
	"go.uber.org/zap"
)

func (g *Guard) parseClientIP(r *http.Request) string {
	if g.trustForwarded {
		for _, h := range []string{"X-Forwarded-For", "X-Real-IP"} {
			if v := r.Header.Get(h); v != "" {
				ip := strings.TrimSpace(strings.Split(v, ",")[0])
				if net.ParseIP(ip) != nil {
					return ip
				}
			}
		}
	}
	return common.GetIpByAddr(r.RemoteAddr)
}

// Middleware guards an HTTP endpoint with security group groupId.
func (g *Guard) Middleware(groupId int, next http.Handler, denyHandler http.Handler) http.Handler {
	if denyHandler == nil {
		denyHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := g.parseClientIP(r)
		if !g.Decide(groupId, ip) {
			rejectedConnsTotal.Inc()
			logs.ZapLogger.Warn("security group rejected request",
				zap.Int("group", groupId), zap.String("ip", ip), zap.String("path", r.URL.Path))
			denyHandler.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AllowConn is checked after Accept and before any handshake on raw TCP.
// Rejected connections are closed here.
func (g *Guard) AllowConn(groupId int, c net.Conn) bool {
	ip := common.GetIpByNetAddr(c.RemoteAddr())
	if g.Decide(groupId, ip) {
		return true
	}
	rejectedConnsTotal.Inc()
	logs.ZapLogger.Warn("security group rejected connection",
		zap.Int("group", groupId), zap.String("ip", ip), zap.String("local", c.LocalAddr().String()))
	_ = c.Close()
	return false
}
