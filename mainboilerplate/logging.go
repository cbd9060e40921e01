package mainboilerplate

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// LogConfig configures handling of application log events.
type LogConfig struct {
	Level  string `long:"level" env:"LEVEL" default:"warn" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" choice:"fatal" description:"Logging level"`
	Format string `long:"format" env:"FORMAT" default:"text" choice:"json" choice:"text" choice:"color" description:"Logging output format"`
	Caller bool   `long:"caller" env:"CALLER" description:"Include the calling function and file of each log event"`
}

// InitLog configures the standard logger. Log events are written to stderr,
// leaving stdout to command output.
func InitLog(cfg LogConfig) {
	log.SetOutput(os.Stderr)

	switch cfg.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "color":
		log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetReportCaller(cfg.Caller)

	if lvl, err := log.ParseLevel(cfg.Level); err != nil {
		log.WithField("err", err).Fatal("unrecognized log level")
	} else {
		log.SetLevel(lvl)
	}
}
