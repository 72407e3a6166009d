package common

import (
	"net/http"
	_ "net/http/pprof"

	"github.com/djylb/nps-guard/lib/logs"
)

// InitPProfByAddr serves net/http/pprof on addr, an empty addr disables it
func InitPProfByAddr(addr string) {
	if len(addr) > 0 && addr != ":" {
		go func() {
			if err := http.ListenAndServe(addr, nil); err != nil {
				logs.Warn("pprof listen on %s error %v", addr, err)
			}
		}()
		logs.Info("PProf debug listen on %s", addr)
	}
}
