package storage

import "testing"

func TestShardTable(t *testing.T) {
	tests := []struct {
		shardID int
		want    string
	}{
		{0, "sheet_records_0000"},
		{1, "sheet_records_0001"},
		{42, "sheet_records_0042"},
		{999, "sheet_records_0999"},
		{9999, "sheet_records_9999"},
	}

	for _, tt := range tests {
		got := ShardTable(tt.shardID)
		if got != tt.want {
			t.Errorf("ShardTable(%d) = %q, want %q", tt.shardID, got, tt.want)
		}
	}
}
