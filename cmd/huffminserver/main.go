package main

import (
	"log"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	echoware "github.com/labstack/echo/v4/middleware"

	"github.com/kelbwah/huffmin-archiver/internal/api"
)

func listenAddr() string {
	if port := os.Getenv("HUFFMINARCHIVER_PORT"); port != "" {
		return ":" + port
	}
	return ":6969"
}

func main() {
	e := echo.New()
	e.Use(echoware.Logger())
	e.Use(echoware.Recover())
	e.Use(echoware.CORSWithConfig(echoware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))

	e.POST("/archive", api.Archive)
	e.POST("/info", api.Info)
	e.POST("/check", api.Check)
	e.POST("/extract", api.ExtractOne)
	e.POST("/update", api.Update)

	if err := e.Start(listenAddr()); err != nil {
		log.Fatalf("Server error: %v\n", err)
	}
}
