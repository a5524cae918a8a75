package storage

import "testing"

func TestLoadDynamoConfig(t *testing.T) {
	t.Setenv("DYNAMO_MODE", "bogus")
	t.Setenv("DYNAMO_SHIFTS_TABLE", "shifts-test")

	cfg := LoadDynamoConfig()
	if cfg.Mode != DynamoModeNone {
		t.Errorf("expected unknown mode to fall back to none, got %s", cfg.Mode)
	}
	if cfg.ShiftsTable != "shifts-test" {
		t.Errorf("expected shifts-test, got %s", cfg.ShiftsTable)
	}
	if cfg.DispositionsTable != "agentdesk-dispositions" {
		t.Errorf("unexpected default table %s", cfg.DispositionsTable)
	}

	keys := cfg.tableKeys()
	if len(keys) != 2 || keys[0].pk != "DateKey" || keys[1].sk != "ShiftID" {
		t.Errorf("unexpected table keys %+v", keys)
	}
}
