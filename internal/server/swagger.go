package server

//go:generate swag init -g internal/server/server.go -o docs/swagger

// @title SiteLens API
// @version 0.1
// @description Interactive documentation for the SiteLens website intelligence API.
// @contact.name SiteLens Maintainers
// @contact.url https://github.com/raysh454/sitelens
// @BasePath /
