package proxy

import (
	"errors"
	"net"
	"strconv"
	"sync"

	"github.com/djylb/nps-guard/ipguard"
	"github.com/djylb/nps-guard/lib/common"
	"github.com/djylb/nps-guard/lib/conn"
	"github.com/djylb/nps-guard/lib/file"
	"github.com/djylb/nps-guard/lib/logs"
	"github.com/google/uuid"
)

type TunnelModeServer struct {
	BaseServer
	listener          net.Listener
	activeConnections sync.Map
	mu                sync.Mutex
}

// NewTunnelModeServer tcp tunnel guarded by the task's security group
func NewTunnelModeServer(task *file.Tunnel, guard *ipguard.Guard) *TunnelModeServer {
	s := new(TunnelModeServer)
	s.Task = task
	s.Guard = guard
	s.DialTimeout = defaultDialTimeout
	return s
}

func (s *TunnelModeServer) Listen() error {
	if s.Task.ServerIp == "" {
		s.Task.ServerIp = "0.0.0.0"
	}
	l, err := conn.NewTcpListener(common.BuildAddress(s.Task.ServerIp, strconv.Itoa(s.Task.Port)))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	return nil
}

func (s *TunnelModeServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *TunnelModeServer) Serve() error {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l == nil {
		return errors.New("tunnel is not listening")
	}
	conn.Accept(l, s.handle)
	return nil
}

func (s *TunnelModeServer) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

func (s *TunnelModeServer) handle(c net.Conn) {
	connId := uuid.NewString()
	s.activeConnections.Store(c, struct{}{})
	defer func() {
		s.activeConnections.Delete(c)
		_ = c.Close()
	}()
	if !s.Admit(c) {
		logs.Info("conn %s: tunnel %d port %d refused %v", connId, s.Task.Id, s.Task.Port, c.RemoteAddr())
		return
	}
	logs.Trace("conn %s: new tcp connection, tunnel %d port %d, remote address %v", connId, s.Task.Id, s.Task.Port, c.RemoteAddr())
	_ = s.DealClient(c, connId)
}

func (s *TunnelModeServer) Close() error {
	s.activeConnections.Range(func(key, value interface{}) bool {
		if c, ok := key.(net.Conn); ok {
			_ = c.Close()
			s.activeConnections.Delete(key)
		}
		return true
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}
