package logging

// Services that derive sub-loggers, used as the value of the "module" key.
const (
	// COMPILATION_SERVICE identifies the compilation packages
	COMPILATION_SERVICE = "compilation"
	// DEPLOYMENT_SERVICE identifies the deployment package
	DEPLOYMENT_SERVICE = "deployment"
	// CHAIN_SERVICE identifies the simulated chain
	CHAIN_SERVICE = "chain"
	// BALANCES_SERVICE identifies the balance-slot prober
	BALANCES_SERVICE = "balances"
	// WALLET_SERVICE identifies the wallet package
	WALLET_SERVICE = "wallet"
	// WORKSPACE_SERVICE identifies the workspace package
	WORKSPACE_SERVICE = "workspace"
)
