package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/studioclock/integration/cmd"
)

func main() {
	app := &cli.App{
		Name:   "studioclock-integration",
		Usage:  "broadcast device integration daemon for the studio clock",
		Action: cmd.IntegrationCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				EnvVars: []string{"CONFIG_PATH"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "http-addr",
				EnvVars: []string{"HTTP_ADDR"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "switcher-target",
				EnvVars: []string{"SWITCHER_TARGET"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "recorder-target",
				EnvVars: []string{"RECORDER_TARGET"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mixer-host",
				EnvVars: []string{"MIXER_HOST"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-broker",
				EnvVars: []string{"MQTT_BROKER"},
				Value:   "",
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
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
