package logger

import (
	"go.uber.org/zap"
)

var Log *zap.SugaredLogger

func Init(debug bool) {
	var (
		l   *zap.Logger
		err error
	)
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = l.Sugar()
}

// Sync flushes any buffered log entries. Call before exiting.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
