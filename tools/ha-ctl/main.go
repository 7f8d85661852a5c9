package main

import (
	"os"
	"time"

	flags "github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

type options struct {
	LoggerOptions
	Timeout time.Duration `long:"timeout" default:"30m" description:"overall deadline for the command"`
}

var opts options

func newParser() (*flags.Parser, error) {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "HA cluster control"
	parser.LongDescription = "Power cycles nodes, restarts the storage cluster and runs s3bench against it, " +
		"using the e2e configuration selected by e2e_config_file and e2e_platform_config_file"
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		InitLogger(&opts.LoggerOptions)
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	commands := []struct {
		name, short, long string
		cmd               flags.Commander
	}{
		{"power-on", "Power on a node", "Powers on a node and waits until it answers", &powerOnCommand{}},
		{"power-off", "Power off a node", "Powers off a node, or shuts it down with --safe, and waits until it is gone", &powerOffCommand{}},
		{"status", "Report cluster status", "Reports node power state and the health of the cluster resource", &statusCommand{}},
		{"restart", "Restart the cluster", "Stops and starts the storage cluster with the deployment scripts", &restartCommand{}},
		{"s3bench", "Run s3bench passes", "Runs s3bench over the object size ladder and checks the logs for errors", &s3benchCommand{}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.cmd); err != nil {
			return nil, err
		}
	}
	return parser, nil
}

func main() {
	logf.SetLogger(zap.New(zap.UseDevMode(true), zap.WriteTo(os.Stdout)))

	parser, err := newParser()
	if err != nil {
		log.Fatal(err)
	}
	if _, err := parser.Parse(); err != nil {
		code := 1
		if fe, ok := err.(*flags.Error); ok {
			if fe.Type == flags.ErrHelp {
				code = 0
			}
		} else {
			log.Error(err)
		}
		os.Exit(code)
	}
}
