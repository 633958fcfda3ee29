package logger

import "github.com/robfig/cron/v3"

type cronLogger struct {
	log Logger
}

// CronLogger adapts a Logger to the cron.Logger interface.
func CronLogger(log Logger) cron.Logger {
	return &cronLogger{log: log}
}

func (c *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(msg, keysAndValues...)
}

func (c *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error(msg, append(keysAndValues, "error", err)...)
}
