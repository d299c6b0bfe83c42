package safe

import (
	"PPicture/logger"
	"PPicture/tools/errs"

	"go.uber.org/zap"
)

// Recover 用于 defer：吞掉 panic 并记录日志，onPanic 可选
func Recover(scope string, onPanic func(err error)) {
	if r := recover(); r != nil {
		err := errs.ErrPanic(r)
		logger.Error("panic recovered", zap.String("scope", scope), zap.Error(err), zap.Stack("stack"))
		if onPanic != nil {
			onPanic(err)
		}
	}
}

// Go starts a goroutine that recovers from panic,
// so that panics don't crash the entire program.
func Go(scope string, f func()) {
	go func() {
		defer Recover(scope, nil)
		f()
	}()
}

// Call runs f and turns a panic into an error.
func Call(scope string, f func() error) (err error) {
	defer Recover(scope, func(perr error) { err = perr })
	return f()
}
