package reader

import (
	"testing"
	"time"
)

func TestAnchorDateFromPath(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		want   string
		wantOK bool
	}{
		{"stamped snapshot", "campaigns_2024-06-01T00-00-00.parquet", "2024-06-01", true},
		{"stamped with directory", "/data/snapshots/campaigns_2023-11-15T08-30-00.parquet", "2023-11-15", true},
		{"no stamp", "campaigns.parquet", "", false},
		{"date without time separator", "campaigns_2024-06-01.parquet", "", false},
		{"impossible date", "campaigns_2024-13-45T00-00-00.parquet", "", false},
		{"empty path", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AnchorDateFromPath(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("AnchorDateFromPath(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			want, err := time.Parse("2006-01-02", tt.want)
			if err != nil {
				t.Fatalf("bad want date: %v", err)
			}
			if !got.Equal(want) {
				t.Errorf("AnchorDateFromPath(%q) = %v, want %v", tt.path, got, want)
			}
		})
	}
}
