package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/beego/beego"
	"github.com/djylb/nps-guard/ipguard"
	"github.com/djylb/nps-guard/lib/common"
	"github.com/djylb/nps-guard/lib/file"
	"github.com/djylb/nps-guard/lib/install"
	"github.com/djylb/nps-guard/lib/logs"
	"github.com/djylb/nps-guard/lib/version"
	"github.com/djylb/nps-guard/server"
	"github.com/djylb/nps-guard/web/routers"
	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	ver      = flag.Bool("version", false, "Show Current Version")
	confPath = flag.String("conf_path", "", "Set Conf Path")
)

func main() {
	flag.Parse()
	if *ver {
		version.PrintVersion()
		return
	}
	common.ConfPath = *confPath
	// flag.Parse stops at the first service verb, pick conf_path up by hand
	for _, v := range os.Args[1:] {
		if strings.HasPrefix(v, "-conf_path=") {
			common.ConfPath = strings.TrimPrefix(v, "-conf_path=")
		}
	}

	if err := beego.LoadAppConfig("ini", filepath.Join(common.GetRunPath(), "conf", "nps.conf")); err != nil {
		log.Println("load config file error", err.Error())
		if err := beego.LoadAppConfig("ini", filepath.Join(common.GetAppPath(), "conf", "nps.conf")); err != nil {
			log.Fatalln("load config file error", err.Error())
		}
	}
	common.InitPProfByAddr(common.BuildAddress(beego.AppConfig.String("pprof_ip"), beego.AppConfig.String("pprof_port")))

	logType := beego.AppConfig.DefaultString("log", "stdout")
	logPath := beego.AppConfig.String("log_path")
	if logPath == "" || strings.EqualFold(logPath, "on") || strings.EqualFold(logPath, "true") {
		logPath = filepath.Join(common.GetLogPath(), "nps.log")
	} else if !strings.EqualFold(logPath, "off") && !strings.EqualFold(logPath, "false") {
		logPath = common.ResolvePath(logPath)
	}
	if len(os.Args) > 1 && os.Args[1] == "service" && !strings.EqualFold(logType, "off") && !strings.EqualFold(logType, "both") {
		logType = "file"
	}
	logs.Init(logs.Config{
		Type:       logType,
		Level:      beego.AppConfig.DefaultString("log_level", "info"),
		Path:       logPath,
		MaxSize:    beego.AppConfig.DefaultInt("log_max_size", 5),
		MaxBackups: beego.AppConfig.DefaultInt("log_max_files", 30),
		MaxAge:     beego.AppConfig.DefaultInt("log_max_days", 30),
		Compress:   beego.AppConfig.DefaultBool("log_compress", false),
		Color:      beego.AppConfig.DefaultBool("log_color", true),
	})

	svcConfig := &service.Config{
		Name:        "NpsGuard",
		DisplayName: "nps security group server",
		Description: "Tunnel server that admits client connections by security group rules.",
		Option:      make(service.KeyValue),
	}
	for _, v := range os.Args[1:] {
		switch v {
		case "install", "start", "stop", "uninstall", "restart":
			continue
		}
		svcConfig.Arguments = append(svcConfig.Arguments, v)
	}
	svcConfig.Arguments = append(svcConfig.Arguments, "service")
	if !common.IsWindows() {
		svcConfig.Dependencies = []string{
			"Requires=network.target",
			"After=network-online.target syslog.target"}
		svcConfig.Option["SystemdScript"] = install.SystemdScript
	}
	prg := &nps{exit: make(chan struct{})}
	s, err := service.New(prg, svcConfig)
	if err != nil {
		logs.Error("service function disabled %v", err)
		if _, err = run(); err != nil {
			logs.Fatal("start error %v", err)
		}
		select {}
	}

	if len(os.Args) > 1 && os.Args[1] != "service" {
		switch os.Args[1] {
		case "install":
			_ = service.Control(s, "stop")
			_ = service.Control(s, "uninstall")
			binPath, err := install.InstallNps("nps")
			if err != nil {
				logs.Error("install error %v", err)
				return
			}
			svcConfig.Executable = binPath
			if s, err = service.New(prg, svcConfig); err != nil {
				logs.Error("%v", err)
				return
			}
			fallthrough
		case "start", "restart", "stop", "uninstall":
			if err := service.Control(s, os.Args[1]); err != nil {
				logs.Error("Valid actions: %q error: %v", service.ControlAction, err)
			}
			return
		}
	}
	_ = s.Run()
}

type nps struct {
	exit chan struct{}
	mu   sync.Mutex
	web  *server.WebServer
}

func (p *nps) Start(s service.Service) error {
	_, _ = s.Status()
	go p.run()
	return nil
}

func (p *nps) Stop(s service.Service) error {
	_, _ = s.Status()
	close(p.exit)
	p.closeWeb()
	if service.Interactive() {
		os.Exit(0)
	}
	return nil
}

func (p *nps) setWeb(web *server.WebServer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.web = web
}

// closeWeb stops the admin listener if run got that far
func (p *nps) closeWeb() {
	p.mu.Lock()
	web := p.web
	p.web = nil
	p.mu.Unlock()
	if web != nil {
		_ = web.Close()
	}
}

func (p *nps) run() {
	defer func() {
		if err := recover(); err != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			logs.Warn("nps: panic serving %v: %s", err, buf)
		}
	}()
	web, err := run()
	if err != nil {
		logs.Error("start error %v", err)
		return
	}
	p.setWeb(web)
	<-p.exit
	p.closeWeb()
	logs.Warn("stop...")
}

func run() (*server.WebServer, error) {
	logs.Info("the config path is: %s, version %s", common.GetRunPath(), version.VERSION)
	db := file.GetDb()
	if db == nil {
		return nil, errors.New("security store unavailable")
	}
	guard := ipguard.New(ipguard.Options{
		CacheTTL:       time.Duration(beego.AppConfig.DefaultInt("guard_cache_ttl", 30)) * time.Second,
		CacheCap:       beego.AppConfig.DefaultInt("guard_cache_cap", 4096),
		TrustForwarded: beego.AppConfig.DefaultBool("trust_forwarded", false),
	})
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ipguard.Register(registry)

	server.InitFromDb(db, guard)
	routers.Init()
	web := server.NewWebServer(
		beego.AppConfig.String("web_ip"),
		beego.AppConfig.DefaultInt("web_port", 0),
		beego.AppConfig.DefaultString("metrics_path", "/metrics"),
		registry,
	)
	web.MaxConn = beego.AppConfig.DefaultInt("web_max_conn", 0)
	web.GroupId = beego.AppConfig.DefaultInt("web_security_group", 0)
	web.Guard = guard
	go func() {
		if err := web.Start(); err != nil {
			logs.Error("web management stopped %v", err)
		}
	}()
	return web, nil
}
