package conn

import (
	"errors"
	"net"
	"strings"

	"github.com/djylb/nps-guard/lib/logs"
)

func NewTcpListener(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// Accept serves l until it is closed, every connection in its own goroutine.
func Accept(l net.Listener, f func(c net.Conn)) {
	for {
		c, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
				break
			}
			logs.Warn("%v", err)
			continue
		}
		if c == nil {
			logs.Warn("nil connection")
			break
		}
		go f(c)
	}
}
