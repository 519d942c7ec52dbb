package kafka

import (
	"github.com/go-kratos/kratos/v2/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

var (
	_ kafkaGo.Logger = (*Logger)(nil)
	_ kafkaGo.Logger = (*ErrorLogger)(nil)
)

// Logger 把 kafka-go writer 的日志以 debug 级别写到 kratos logger
type Logger struct {
	logger *log.Helper
}

func (l *Logger) Printf(msg string, args ...interface{}) {
	l.logger.Debugf("[Kafka] "+msg, args...)
}

// ErrorLogger 把 kafka-go writer 的错误日志写到 kratos logger
type ErrorLogger struct {
	logger *log.Helper
}

func (l *ErrorLogger) Printf(msg string, args ...interface{}) {
	l.logger.Errorf("[Kafka] "+msg, args...)
}
