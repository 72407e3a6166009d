package proxy

import (
	"net"
	"sync"
	"time"

	"github.com/djylb/nps-guard/ipguard"
	"github.com/djylb/nps-guard/lib/file"
	"github.com/djylb/nps-guard/lib/goroutine"
	"github.com/djylb/nps-guard/lib/logs"
)

type Service interface {
	Start() error
	Close() error
}

// BaseServer struct
type BaseServer struct {
	Task        *file.Tunnel
	Guard       *ipguard.Guard
	DialTimeout time.Duration
	InletFlow   int64
	ExportFlow  int64
	sync.Mutex
}

const defaultDialTimeout = 10 * time.Second

// FlowAdd add the flow
func (s *BaseServer) FlowAdd(in, out int64) {
	s.Lock()
	defer s.Unlock()
	s.InletFlow += in
	s.ExportFlow += out
}

func (s *BaseServer) Flow() (in, out int64) {
	s.Lock()
	defer s.Unlock()
	return s.InletFlow, s.ExportFlow
}

// Admit asks the tunnel's security group whether c may proceed, c is closed when it may not.
func (s *BaseServer) Admit(c net.Conn) bool {
	if s.Guard == nil {
		return true
	}
	s.Task.RLock()
	groupId := s.Task.SecurityGroupId
	s.Task.RUnlock()
	return s.Guard.AllowConn(groupId, c)
}

// DealClient dials the tunnel target and relays c to it until either side closes.
func (s *BaseServer) DealClient(c net.Conn, connId string) error {
	s.Task.RLock()
	target := s.Task.Target
	s.Task.RUnlock()
	timeout := s.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	dst, err := net.DialTimeout("tcp", target, timeout)
	if err != nil {
		logs.Warn("conn %s: dial target %s error %v", connId, target, err)
		_ = c.Close()
		return err
	}
	wg := new(sync.WaitGroup)
	wg.Add(1)
	if err = goroutine.CopyConnsPool.Invoke(goroutine.NewConns(c, dst, wg, func(in, out int64) {
		s.FlowAdd(in, out)
		logs.Trace("conn %s closed, in %d bytes, out %d bytes", connId, in, out)
	})); err != nil {
		_ = c.Close()
		_ = dst.Close()
		return err
	}
	wg.Wait()
	return nil
}
