package recorder

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/koscakluka/ema-live/internal/recorder"

var logger = otelslog.NewLogger(scopeName)
