package controllers

import (
	"github.com/djylb/nps-guard/lib/file"
	"github.com/djylb/nps-guard/server"
)

type GroupController struct {
	BaseController
}

func (s *GroupController) List() {
	start, length := s.GetAjaxParams()
	list, cnt := server.Db.GetGroupList(start, length, s.getEscapeString("search"))
	s.AjaxTable(list, cnt)
}

func (s *GroupController) Add() {
	g := &file.Group{
		Name:        s.getEscapeString("name"),
		Description: s.getEscapeString("description"),
		UserId:      s.GetIntNoErr("user_id"),
		Status:      s.GetBoolNoErr("status", true),
	}
	if err := server.Db.NewGroup(g); err != nil {
		s.AjaxErr(err.Error())
	}
	s.AjaxOkWithId("add success", g.Id)
}

func (s *GroupController) Edit() {
	id := s.GetIntNoErr("id")
	g, err := server.Db.GetGroup(id)
	if err != nil {
		s.AjaxErr(err.Error())
	}
	g.RLock()
	name, description, status := g.Name, g.Description, g.Status
	g.RUnlock()
	if err = server.Db.UpdateGroup(id,
		s.getEscapeString("name", name),
		s.getEscapeString("description", description),
		s.GetBoolNoErr("status", status),
	); err != nil {
		s.AjaxErr(err.Error())
	}
	s.AjaxOk("modified success")
}

func (s *GroupController) Del() {
	if err := server.Db.DelGroup(s.GetIntNoErr("id")); err != nil {
		s.AjaxErr(err.Error())
	}
	s.AjaxOk("delete success")
}
