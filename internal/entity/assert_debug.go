//go:build debugassert

package entity

import (
	"fmt"

	"go.uber.org/zap"
)

func assertf(_ *zap.Logger, format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}
