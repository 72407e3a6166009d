package controllers

import (
	"github.com/djylb/nps-guard/lib/file"
	"github.com/djylb/nps-guard/lib/security"
	"github.com/djylb/nps-guard/server"
)

type RuleController struct {
	BaseController
}

func (s *RuleController) List() {
	start, length := s.GetAjaxParams()
	list, cnt := server.Db.GetRuleList(s.GetIntNoErr("group_id"), start, length, s.getEscapeString("search"))
	s.AjaxTable(list, cnt)
}

// readRule fills r from the request, absent fields keep the values already in r
func (s *RuleController) readRule(r *file.Rule) {
	r.GroupId = s.GetIntNoErr("group_id", r.GroupId)
	r.Name = s.GetString("name", r.Name)
	r.Description = s.GetString("description", r.Description)
	r.Rule = s.GetString("rule", r.Rule)
	r.Priority = s.GetIntNoErr("priority", r.Priority)
	r.UserId = s.GetIntNoErr("user_id", r.UserId)
	r.Enable = security.EnableStatus(s.GetIntNoErr("enable", int(r.Enable)))
	if v := s.GetString("pass_type"); v != "" {
		p, err := security.ParsePassType(v)
		if err != nil {
			s.AjaxErr(err.Error())
		}
		r.PassType = p
	}
}

func (s *RuleController) Add() {
	r := &file.Rule{PassType: security.Allow, Enable: security.Enabled}
	s.readRule(r)
	if err := server.Db.NewRule(r); err != nil {
		s.AjaxErr(err.Error())
	}
	s.AjaxOkWithId("add success", r.Id)
}

func (s *RuleController) Edit() {
	old, err := server.Db.GetRule(s.GetIntNoErr("id"))
	if err != nil {
		s.AjaxErr(err.Error())
	}
	old.RLock()
	r := &file.Rule{
		Id:          old.Id,
		GroupId:     old.GroupId,
		Name:        old.Name,
		Description: old.Description,
		Rule:        old.Rule,
		PassType:    old.PassType,
		Priority:    old.Priority,
		UserId:      old.UserId,
		Enable:      old.Enable,
	}
	old.RUnlock()
	s.readRule(r)
	if err = server.Db.UpdateRule(r); err != nil {
		s.AjaxErr(err.Error())
	}
	s.AjaxOk("modified success")
}

func (s *RuleController) ChangeStatus() {
	enable := security.Disabled
	if s.GetBoolNoErr("status") {
		enable = security.Enabled
	}
	if err := server.Db.UpdateRuleEnable(s.GetIntNoErr("id"), enable); err != nil {
		s.AjaxErr(err.Error())
	}
	s.AjaxOk("modified success")
}

func (s *RuleController) Del() {
	if err := server.Db.DelRule(s.GetIntNoErr("id")); err != nil {
		s.AjaxErr(err.Error())
	}
	s.AjaxOk("delete success")
}

// Check resolves ip against a group with the live snapshot
func (s *RuleController) Check() {
	ip := s.GetString("ip")
	outcome, rule, err := server.Guard.Resolve(s.GetIntNoErr("group_id"), ip)
	data := map[string]interface{}{
		"allow":   outcome != security.Rejected,
		"outcome": outcome.String(),
		"rule_id": 0,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	if rule != nil {
		data["rule_id"] = rule.Id
		data["rule_name"] = rule.Name
	}
	s.AjaxData(data)
}
