package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func row(id string) []string {
	return []string{"2024-05-08T13:04:05.000000+00:00", "2", "13", "1.5", "100.0", "0.0", id, "fn", "1", "100"}
}

func TestLocalLog_AppendWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "log.csv")
	log := NewLocalLog(path)

	for _, id := range []string{"a", "b", "c"} {
		if err := log.Append(row(id)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	snapshot, err := log.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := strings.Count(string(snapshot.Content), "Timestamp,DayOfWeek"); got != 1 {
		t.Errorf("Expected header exactly once, found %d", got)
	}
	if !strings.HasPrefix(string(snapshot.Content), strings.Join(Header, ",")+"\r\n") {
		t.Errorf("Header should be the first line")
	}
	if len(snapshot.Rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(snapshot.Rows))
	}
	for i, id := range []string{"a", "b", "c"} {
		if snapshot.Rows[i][6] != id {
			t.Errorf("Row %d request id = %s, want %s", i, snapshot.Rows[i][6], id)
		}
	}
}

func TestLocalLog_Watermark(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	log := NewLocalLog(path)

	if err := log.Append(row("a")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := log.MarkMerged(1); err != nil {
		t.Fatalf("MarkMerged failed: %v", err)
	}
	if err := log.Append(row("b")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	snapshot, err := log.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	pending := snapshot.Pending()
	if len(pending) != 1 || pending[0][6] != "b" {
		t.Errorf("Expected only row b pending, got %v", pending)
	}
}

func TestLocalLog_StaleWatermarkIsDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	if err := os.WriteFile(path+watermarkSuffix, []byte("5"), 0644); err != nil {
		t.Fatalf("seed watermark: %v", err)
	}

	log := NewLocalLog(path)
	if err := log.Append(row("a")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	snapshot, err := log.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if snapshot.Merged != 0 || len(snapshot.Pending()) != 1 {
		t.Errorf("New log should have everything pending, merged=%d", snapshot.Merged)
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name    string
		durable string
		want    string
	}{
		{
			name:    "appends after existing rows",
			durable: "h1,h2\r\nx,1\r\n",
			want:    "h1,h2\r\nx,1\r\nnew,2\r\n",
		},
		{
			name:    "adds missing line break",
			durable: "h1,h2\nx,1",
			want:    "h1,h2\nx,1\r\nnew,2\r\n",
		},
		{
			name:    "keeps unix line endings untouched",
			durable: "h1,h2\nx,1\n",
			want:    "h1,h2\nx,1\nnew,2\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Merge([]byte(tt.durable), [][]string{{"new", "2"}})
			if err != nil {
				t.Fatalf("Merge failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Merge = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("no pending rows", func(t *testing.T) {
		got, err := Merge([]byte("h\r\n"), nil)
		if err != nil || string(got) != "h\r\n" {
			t.Errorf("Merge = %q, %v; want unchanged content", got, err)
		}
	})
}
