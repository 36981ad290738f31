package model

// Admin audit action constants
const (
	AuditActionCircuitReset     = "CIRCUIT_RESET"
	AuditActionCircuitForceOpen = "CIRCUIT_FORCE_OPEN"
	AuditActionRetryTriggered   = "RETRY_TRIGGERED"
)
