//go:build !debugassert

package entity

import (
	"fmt"

	"go.uber.org/zap"
)

func assertf(log *zap.Logger, format string, args ...any) {
	log.Error("assertion failed", zap.String("detail", fmt.Sprintf(format, args...)))
}
