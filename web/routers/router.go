package routers

import (
	"net/http"

	"github.com/beego/beego"
	"github.com/djylb/nps-guard/web/controllers"
)

func Init() {
	// Handle 404
	beego.ErrorHandler("404", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusNotFound)
	})
	webBaseUrl := beego.AppConfig.String("web_base_url")
	if len(webBaseUrl) > 0 {
		ns := beego.NewNamespace(webBaseUrl,
			beego.NSAutoRouter(&controllers.AuthController{}),
			beego.NSAutoRouter(&controllers.GroupController{}),
			beego.NSAutoRouter(&controllers.RuleController{}),
			beego.NSAutoRouter(&controllers.TunnelController{}),
		)
		beego.AddNamespace(ns)
	} else {
		beego.AutoRouter(&controllers.AuthController{})
		beego.AutoRouter(&controllers.GroupController{})
		beego.AutoRouter(&controllers.RuleController{})
		beego.AutoRouter(&controllers.TunnelController{})
	}
}
