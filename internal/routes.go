package internal

import (
	"net/http"
	"publishd/internal/controllers"
	"publishd/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController, deployController *controllers.DeployController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/deploy/changes", http.HandlerFunc(deployController.EnqueueChange))
	routers.Get("/deploy/status", http.HandlerFunc(deployController.GetStatus))
	routers.Get("/deploy/queue", http.HandlerFunc(deployController.GetQueue))
	routers.Post("/archive/run", http.HandlerFunc(apiController.RunArchival))
	routers.Get("/archive/latest", http.HandlerFunc(apiController.GetLatest))
	routers.Get("/archive/versions", http.HandlerFunc(apiController.GetVersions))
	return routers
}
