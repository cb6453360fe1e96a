package main

import (
	"context"
	"flag"

	"k8s.io/klog/v2"

	"github.com/raids-lab/ptms/cmd/ptms/helper"
)

// @title						PTMS API
// @version						1.0.0
// @description					Practicum training management: applications, reviews, supervisor signatures and notifications.
// @securityDefinitions.apikey	Bearer
// @in							header
// @name						Authorization
// @description					访问 /api/auth/login 并获取 TOKEN 后，填入 'Bearer ${TOKEN}' 以访问受保护的接口
func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	// Initialize configuration
	configInit := helper.NewConfigInitializer()
	backendConfig := configInit.GetBackendConfig()

	// Load debug environment if needed
	if err := configInit.LoadDebugEnvironment(); err != nil {
		klog.Warningf("Failed to load env: %s", err)
	}

	ctx := context.Background()

	// Initialize database, storage, mail and services
	registerConfig, err := configInit.InitializeRegisterConfig(ctx)
	if err != nil {
		klog.Fatalf("Failed to register config: %s\n", err)
	}

	serverRunner := helper.NewServerRunner(backendConfig)

	// Start scheduled notification jobs
	serverRunner.StartCron(ctx, registerConfig)

	// Start HTTP server
	serverRunner.StartServer(registerConfig)
}
