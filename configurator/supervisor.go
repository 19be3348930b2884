package main

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/thejerf/suture/v4"
)

func initSupervisor() *suture.Supervisor {
	return suture.New("configurator-main", suture.Spec{
		EventHook: func(e suture.Event) {
			log.WithFields(log.Fields(e.Map())).
				WithField("supervisor", "configurator-main").
				Warn(e.String())
		},
		Timeout: 5 * time.Second,
	})
}
