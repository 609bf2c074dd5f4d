package main

import (
	"os"

	"github.com/kube-rca/alert-analyzer/internal/cli"
)

// @title alert-analyzer API
// @version 1.0
// @description Infrastructure alert classification, root-cause analysis and notification delivery.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
