package main

import (
	logger "github.com/Easy-Infra-Ltd/easy-logger"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/cli"
)

func main() {
	log := logger.CreateLoggerFromEnv(nil, "blue").With("process", "easysvgguard")
	cli.Execute(log)
}
