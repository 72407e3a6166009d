package server

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"github.com/beego/beego"
	"github.com/djylb/nps-guard/ipguard"
	"github.com/djylb/nps-guard/lib/common"
	"github.com/djylb/nps-guard/lib/conn"
	"github.com/djylb/nps-guard/lib/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"
)

var _ = unsafe.Sizeof(0)

//go:linkname initBeforeHTTPRun github.com/beego/beego.initBeforeHTTPRun
func initBeforeHTTPRun()

// WebServer serves the admin api and, when MetricsPath is set, the prometheus metrics
type WebServer struct {
	Ip          string
	Port        int
	MetricsPath string
	Gatherer    prometheus.Gatherer
	MaxConn     int // concurrent admin connections, 0 is unlimited
	// GroupId security group admitting admin clients, 0 leaves the api open
	GroupId  int
	Guard    *ipguard.Guard
	listener net.Listener
	mu       sync.Mutex
}

func NewWebServer(ip string, port int, metricsPath string, gatherer prometheus.Gatherer) *WebServer {
	return &WebServer{Ip: ip, Port: port, MetricsPath: metricsPath, Gatherer: gatherer}
}

func (s *WebServer) handler() http.Handler {
	var h http.Handler = beego.BeeApp.Handlers
	if s.MetricsPath != "" && s.Gatherer != nil {
		path := "/" + strings.TrimPrefix(s.MetricsPath, "/")
		mux := http.NewServeMux()
		mux.Handle(path, promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
		mux.Handle("/", beego.BeeApp.Handlers)
		h = mux
	}
	if s.Guard != nil && s.GroupId > 0 {
		h = s.Guard.Middleware(s.GroupId, h, nil)
	}
	return h
}

func (s *WebServer) Start() error {
	if s.Port == 0 {
		logs.Warn("web_port is not set, web management disabled")
		stop := make(chan struct{})
		<-stop
	}
	l, err := conn.NewTcpListener(common.BuildAddress(s.Ip, strconv.Itoa(s.Port)))
	if err != nil {
		logs.Error("web management listen error %v", err)
		return err
	}
	if s.MaxConn > 0 {
		l = netutil.LimitListener(l, s.MaxConn)
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	initBeforeHTTPRun()
	logs.Info("web management start, access port is %d", s.Port)
	return http.Serve(l, s.handler())
}

func (s *WebServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
