package cache

import "testing"

func TestGeneratingKey(t *testing.T) {
	got := generatingKey("3f2a")
	want := "chapter:3f2a:generating"
	if got != want {
		t.Errorf("generatingKey: got %q, want %q", got, want)
	}
}

func TestDecodeSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    *Snapshot
		wantErr bool
	}{
		{
			name: "valid payload",
			data: `{"session_id":"s1","title":"第一章","content":"夜色渐深"}`,
			want: &Snapshot{SessionID: "s1", Title: "第一章", Content: "夜色渐深"},
		},
		{
			name: "empty content",
			data: `{"session_id":"s1","title":"t","content":""}`,
			want: &Snapshot{SessionID: "s1", Title: "t"},
		},
		{
			name:    "truncated JSON",
			data:    `{"session_id":"s1","ti`,
			wantErr: true,
		},
		{
			name:    "not JSON at all",
			data:    `plain text`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeSnapshot([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected decode error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeSnapshot: %v", err)
			}
			if *got != *tt.want {
				t.Errorf("decodeSnapshot: got %+v, want %+v", got, tt.want)
			}
		})
	}
}
