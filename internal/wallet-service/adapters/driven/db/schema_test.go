package db

import (
	"strings"
	"testing"
)

func TestSchemaCoversLedgerTablesOnly(t *testing.T) {
	for _, table := range []string{"wallets", "wallet_transfers", "wallet_transactions"} {
		if !strings.Contains(Schema, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("schema does not create %s", table)
		}
	}
	if strings.Contains(Schema, "notifications") {
		t.Error("notifications belong to the realtime service schema")
	}
	if !strings.Contains(Schema, "NUMERIC(14, 2)") {
		t.Error("amount columns are not NUMERIC(14,2)")
	}
}
