package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/microtemp-integration/cmd"
)

func main() {
	app := &cli.App{
		Name:   "microtemp-gateway",
		Usage:  "bridges microtemp cloud thermostats onto the home automation mqtt bus",
		Action: cmd.GatewayCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "microtemp-username",
				EnvVars: []string{"MICROTEMP_USERNAME"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "microtemp-password",
				EnvVars: []string{"MICROTEMP_PASSWORD"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "microtemp-base-url",
				EnvVars: []string{"MICROTEMP_BASE_URL"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-host",
				EnvVars: []string{"MQTT_HOST"},
				Value:   "",
			},
			&cli.IntFlag{
				Name:    "mqtt-port",
				EnvVars: []string{"MQTT_PORT"},
				Value:   0,
			},
			&cli.StringFlag{
				Name:    "mqtt-user",
				EnvVars: []string{"MQTT_USER"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-pass",
				EnvVars: []string{"MQTT_PASS"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "discovery-prefix",
				EnvVars: []string{"DISCOVERY_PREFIX"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "database-url",
				EnvVars: []string{"DATABASE_URL"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "migrations-folder",
				EnvVars: []string{"MIGRATIONS_FOLDER"},
				Value:   "",
			},
			&cli.DurationFlag{
				Name:    "reconcile-interval",
				EnvVars: []string{"RECONCILE_INTERVAL"},
				Value:   0,
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
