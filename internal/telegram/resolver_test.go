package telegram

import "testing"

func TestMergeRefs(t *testing.T) {
	resolved := &ChatRef{ChannelID: 100, AccessHash: 9, Username: "known", Title: "Known"}

	tests := []struct {
		name string
		peer *ChatRef
		want ChatRef
	}{
		{
			name: "message parent chat wins",
			peer: &ChatRef{ChannelID: 200, AccessHash: 9},
			want: ChatRef{ChannelID: 200, AccessHash: 9, Username: "known", Title: "Known"},
		},
		{
			name: "bare peer inherits hash and labels",
			peer: &ChatRef{ChannelID: 300},
			want: ChatRef{ChannelID: 300, AccessHash: 9, Username: "known", Title: "Known"},
		},
		{
			name: "peer labels survive when present",
			peer: &ChatRef{ChannelID: 400, AccessHash: 5, Username: "real", Title: "Real"},
			want: ChatRef{ChannelID: 400, AccessHash: 5, Username: "real", Title: "Real"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeRefs(resolved, tt.peer)
			if *got != tt.want {
				t.Errorf("mergeRefs() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
