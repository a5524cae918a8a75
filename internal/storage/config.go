package storage

import "os"

// DynamoMode represents the DynamoDB connection mode
type DynamoMode string

const (
	DynamoModeLocal DynamoMode = "local"
	DynamoModeAWS   DynamoMode = "aws"
	DynamoModeNone  DynamoMode = "none"
)

// DynamoConfig holds DynamoDB configuration
type DynamoConfig struct {
	Mode              DynamoMode
	Endpoint          string // for local mode
	Region            string
	DispositionsTable string
	ShiftsTable       string
}

// LoadDynamoConfig loads DynamoDB config from environment
func LoadDynamoConfig() DynamoConfig {
	mode := DynamoMode(getEnv("DYNAMO_MODE", "none"))
	if mode != DynamoModeLocal && mode != DynamoModeAWS {
		mode = DynamoModeNone
	}

	return DynamoConfig{
		Mode:              mode,
		Endpoint:          getEnv("DYNAMO_ENDPOINT", "http://localhost:8000"),
		Region:            getEnv("DYNAMO_REGION", "eu-central-1"),
		DispositionsTable: getEnv("DYNAMO_DISPOSITIONS_TABLE", "agentdesk-dispositions"),
		ShiftsTable:       getEnv("DYNAMO_SHIFTS_TABLE", "agentdesk-shifts"),
	}
}

// tableKeys lists each table with its partition and sort key
func (c DynamoConfig) tableKeys() []tableKey {
	return []tableKey{
		{c.DispositionsTable, "DateKey", "RecordID"},
		{c.ShiftsTable, "AgentID", "ShiftID"},
	}
}

type tableKey struct {
	name string
	pk   string
	sk   string
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
