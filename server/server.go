package server

import (
	"errors"
	"sync"

	"github.com/djylb/nps-guard/ipguard"
	"github.com/djylb/nps-guard/lib/file"
	"github.com/djylb/nps-guard/lib/logs"
	"github.com/djylb/nps-guard/lib/version"
	"github.com/djylb/nps-guard/server/proxy"
)

var (
	Db      *file.DbUtils
	Guard   *ipguard.Guard
	RunList sync.Map //map[int]proxy.Service
)

// InitFromDb wires the store to the guard and starts every enabled tunnel.
func InitFromDb(db *file.DbUtils, guard *ipguard.Guard) {
	Db = db
	Guard = guard
	db.OnChange(guard.Update)
	db.JsonDb.Tunnels.Range(func(key, value interface{}) bool {
		if t := value.(*file.Tunnel); t.Status {
			if err := AddTask(t); err != nil {
				logs.Error("tunnel %d start error %v", t.Id, err)
			}
		}
		return true
	})
}

// AddTask start the tunnel listener, returns once the port is bound
func AddTask(t *file.Tunnel) error {
	if _, ok := RunList.Load(t.Id); ok {
		return errors.New("task is already running")
	}
	svr := proxy.NewTunnelModeServer(t, Guard)
	if err := svr.Listen(); err != nil {
		logs.Error("taskId %d start error port %d open failed %v", t.Id, t.Port, err)
		return errors.New("the port open error")
	}
	RunList.Store(t.Id, svr)
	t.Lock()
	t.RunStatus = true
	t.Unlock()
	logs.Info("tunnel task %s start port %d, security group %d", t.Remark, t.Port, t.SecurityGroupId)
	go func() {
		if err := svr.Serve(); err != nil {
			logs.Error("taskId %d serve error %v", t.Id, err)
		}
	}()
	return nil
}

// StopServer stop server
func StopServer(id int) error {
	t, err := Db.GetTunnel(id)
	if err != nil {
		return err
	}
	t.Lock()
	t.Status = false
	t.RunStatus = false
	t.Unlock()
	logs.Info("close port %d,remark %s,task id %d", t.Port, t.Remark, t.Id)
	if err = Db.JsonDb.StoreTunnelsToJsonFile(); err != nil {
		logs.Warn("store tunnels error %v", err)
	}
	return stopRunning(id)
}

func stopRunning(id int) error {
	v, ok := RunList.LoadAndDelete(id)
	if !ok {
		return errors.New("task is not running")
	}
	if svr, ok := v.(proxy.Service); ok {
		if err := svr.Close(); err != nil {
			return err
		}
		logs.Info("stop server id %d", id)
	}
	return nil
}

// StartTask start task
func StartTask(id int) error {
	t, err := Db.GetTunnel(id)
	if err != nil {
		return err
	}
	if err = AddTask(t); err != nil {
		return err
	}
	t.Lock()
	t.Status = true
	t.Unlock()
	return Db.JsonDb.StoreTunnelsToJsonFile()
}

// DelTask delete task
func DelTask(id int) error {
	if _, ok := RunList.Load(id); ok {
		if err := stopRunning(id); err != nil {
			return err
		}
	}
	return Db.DelTunnel(id)
}

func GetVersion() string {
	return version.VERSION
}

// GetTunnelFlow bytes relayed by a running tunnel since it started
func GetTunnelFlow(id int) (in, out int64) {
	if v, ok := RunList.Load(id); ok {
		if svr, ok := v.(*proxy.TunnelModeServer); ok {
			return svr.Flow()
		}
	}
	return 0, 0
}
