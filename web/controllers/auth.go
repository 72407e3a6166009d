package controllers

import (
	"time"

	"github.com/beego/beego"
	"github.com/djylb/nps-guard/lib/common"
	"github.com/djylb/nps-guard/server"
)

// AuthController is reachable without a signature so clients can align their clock.
type AuthController struct {
	beego.Controller
}

func (s *AuthController) GetTime() {
	m := make(map[string]interface{})
	m["time"] = time.Now().Unix()
	s.Data["json"] = m
	s.ServeJSON()
}

func (s *AuthController) Version() {
	s.Data["json"] = map[string]interface{}{"version": server.GetVersion(), "run_time": common.GetRunTime()}
	s.ServeJSON()
}
