package config

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/koscakluka/ema-live/internal/config"

var logger = otelslog.NewLogger(scopeName)
