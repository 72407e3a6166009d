package controllers

import (
	"github.com/djylb/nps-guard/lib/file"
	"github.com/djylb/nps-guard/lib/logs"
	"github.com/djylb/nps-guard/server"
)

type TunnelController struct {
	BaseController
}

type tunnelRow struct {
	*file.Tunnel
	InletFlow  int64
	ExportFlow int64
}

func (s *TunnelController) List() {
	start, length := s.GetAjaxParams()
	list, cnt := server.Db.GetTunnelList(start, length)
	rows := make([]tunnelRow, 0, len(list))
	for _, t := range list {
		in, out := server.GetTunnelFlow(t.Id)
		rows = append(rows, tunnelRow{Tunnel: t, InletFlow: in, ExportFlow: out})
	}
	s.AjaxTable(rows, cnt)
}

func (s *TunnelController) Add() {
	t := &file.Tunnel{
		Port:            s.GetIntNoErr("port"),
		ServerIp:        s.getEscapeString("server_ip"),
		Target:          s.getEscapeString("target"),
		SecurityGroupId: s.GetIntNoErr("group_id"),
		Remark:          s.getEscapeString("remark"),
		Status:          s.GetBoolNoErr("status", true),
	}
	if err := server.Db.NewTunnel(t); err != nil {
		s.AjaxErr(err.Error())
	}
	if t.Status {
		if err := server.AddTask(t); err != nil {
			logs.Warn("tunnel %d saved but not started: %v", t.Id, err)
			s.AjaxErr(err.Error())
		}
	}
	s.AjaxOkWithId("add success", t.Id)
}

func (s *TunnelController) Start() {
	if err := server.StartTask(s.GetIntNoErr("id")); err != nil {
		s.AjaxErr("start error")
	}
	s.AjaxOk("start success")
}

func (s *TunnelController) Stop() {
	if err := server.StopServer(s.GetIntNoErr("id")); err != nil {
		s.AjaxErr("stop error")
	}
	s.AjaxOk("stop success")
}

func (s *TunnelController) Del() {
	if err := server.DelTask(s.GetIntNoErr("id")); err != nil {
		s.AjaxErr("delete error")
	}
	s.AjaxOk("delete success")
}
