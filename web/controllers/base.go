package controllers

import (
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beego/beego"
	"github.com/djylb/nps-guard/lib/common"
	"github.com/djylb/nps-guard/lib/crypt"
	"github.com/djylb/nps-guard/lib/logs"
)

type BaseController struct {
	beego.Controller
	controllerName string
	actionName     string
}

// Prepare web api verify
// param 1 is md5(authKey+Current timestamp)
// param 2 is timestamp (It's limited to 20 seconds.)
func (s *BaseController) Prepare() {
	controllerName, actionName := s.GetControllerAndAction()
	s.controllerName = strings.ToLower(strings.TrimSuffix(controllerName, "Controller"))
	s.actionName = strings.ToLower(actionName)

	md5Key := s.getEscapeString("auth_key")
	timestamp := s.GetIntNoErr("timestamp")
	configKey := beego.AppConfig.String("auth_key")
	if !crypt.CheckAuthKey(configKey, md5Key, int64(timestamp), time.Now().Unix(), 20) {
		logs.Warn("web api %s/%s unauthorized from %s", s.controllerName, s.actionName, s.Ctx.Input.IP())
		s.Ctx.Output.SetStatus(http.StatusForbidden)
		s.AjaxErr("unauthorized")
	}
}

// getEscapeString html-escaped form value, def is returned as is when the key is absent
func (s *BaseController) getEscapeString(key string, def ...string) string {
	if v := s.GetString(key); v != "" || len(def) == 0 {
		return html.EscapeString(v)
	}
	return def[0]
}

func (s *BaseController) GetIntNoErr(key string, def ...int) int {
	strv := s.Ctx.Input.Query(key)
	if len(strv) == 0 && len(def) > 0 {
		return def[0]
	}
	val, _ := strconv.Atoi(strv)
	return val
}

func (s *BaseController) GetBoolNoErr(key string, def ...bool) bool {
	strv := s.Ctx.Input.Query(key)
	if len(strv) == 0 && len(def) > 0 {
		return def[0]
	}
	return common.GetBoolByStr(strv)
}

func (s *BaseController) AjaxOk(str string) {
	s.Data["json"] = ajax(str, 1)
	s.ServeJSON()
	s.StopRun()
}

func (s *BaseController) AjaxOkWithId(str string, id int) {
	json := ajax(str, 1)
	json["id"] = id
	s.Data["json"] = json
	s.ServeJSON()
	s.StopRun()
}

func (s *BaseController) AjaxErr(str string) {
	s.Data["json"] = ajax(str, 0)
	s.ServeJSON()
	s.StopRun()
}

func (s *BaseController) AjaxData(data map[string]interface{}) {
	json := ajax("ok", 1)
	for k, v := range data {
		json[k] = v
	}
	s.Data["json"] = json
	s.ServeJSON()
	s.StopRun()
}

func ajax(str string, status int) map[string]interface{} {
	json := make(map[string]interface{})
	json["status"] = status
	json["msg"] = str
	return json
}

func (s *BaseController) AjaxTable(list interface{}, cnt int) {
	json := make(map[string]interface{})
	json["rows"] = list
	json["total"] = cnt
	s.Data["json"] = json
	s.ServeJSON()
	s.StopRun()
}

func (s *BaseController) GetAjaxParams() (start, limit int) {
	return s.GetIntNoErr("offset"), s.GetIntNoErr("limit")
}
