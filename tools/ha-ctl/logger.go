package main

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

type LoggerOptions struct {
	Level        string `long:"log-level" default:"info" choice:"debug" choice:"info" choice:"warning" choice:"error" description:"log level"`
	Encoding     string `long:"log-encoding" default:"text" choice:"text" choice:"json" description:"log encoding"`
	File         string `long:"log-file" description:"append logs to this file instead of stdout"`
	ReportCaller bool   `long:"log-caller" description:"include the calling function in log entries"`
}

// InitLogger configures the standard logrus logger
func InitLogger(cfg *LoggerOptions) {

	log.SetReportCaller(cfg.ReportCaller)
	switch cfg.Level {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	if cfg.Encoding == "json" {
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	}

	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			log.SetOutput(file)
		} else {
			log.Error("Failed to log to file, using stdout")
			log.SetOutput(os.Stdout)
		}
	} else {
		log.SetOutput(os.Stdout)
	}
}
