package server

import (
	"fmt"
	"net/http"
	"showservice/internal/config"
	"showservice/internal/controller"
	"time"
)

type Server struct {
	sc     controller.ServerController
	ic     controller.ImportController
	oc     controller.OperationsController
	shc    controller.ShowController
	config config.Config
}

func New(config config.Config, sc controller.ServerController, ic controller.ImportController, oc controller.OperationsController, shc controller.ShowController) *http.Server {
	server := Server{
		sc:     sc,
		ic:     ic,
		oc:     oc,
		shc:    shc,
		config: config,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%v", config.Port),
		Handler:      server.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
