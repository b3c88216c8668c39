package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/sonalabs/sona-go/common"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJSONFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUIDFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func CallTimeout(cCtx *cli.Context) time.Duration {
	return time.Duration(cCtx.Int64(TimeoutMsFlag.Name)) * time.Millisecond
}

var BaseURLFlag = &cli.StringFlag{
	Name:    "base-url",
	Value:   "http://127.0.0.1:8080",
	Usage:   "Sona deployment base URL",
	EnvVars: []string{"SONA_BASE_URL"},
}

var APIKeyFlag = &cli.StringFlag{
	Name:    "api-key",
	Usage:   "credential sent as the x-api-key header",
	EnvVars: []string{"SONA_API_KEY"},
}

var WalletFlag = &cli.StringFlag{
	Name:    "wallet",
	Usage:   "wallet the operations act on behalf of",
	EnvVars: []string{"SONA_WALLET"},
}

var OriginFlag = &cli.StringFlag{
	Name:    "origin",
	Value:   "sona-call",
	Usage:   "origin identifier placed in sealed envelopes",
	EnvVars: []string{"SONA_ORIGIN"},
}

var TimeoutMsFlag = &cli.Int64Flag{
	Name:  "timeout-ms",
	Value: 30000,
	Usage: "per-request timeout in milliseconds",
}

var IncludeAttestationFlag = &cli.BoolFlag{
	Name:  "include-attestation",
	Value: false,
	Usage: "ask the enclave for full proof material on attested responses",
}

var LogJSONFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}

var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}

var LogUIDFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "sona-call",
	Usage: "add 'service' tag to logs",
}
