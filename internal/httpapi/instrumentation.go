package httpapi

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/koscakluka/ema-live/internal/httpapi"

var logger = otelslog.NewLogger(scopeName)
