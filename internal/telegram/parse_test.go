package telegram

import "testing"

func TestClassifyInput(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantValue string
		wantKind  InputKind
	}{
		{"username", "somechannel", "somechannel", InputUsername},
		{"username with at", "@somechannel", "somechannel", InputUsername},
		{"username link", "https://t.me/somechannel", "somechannel", InputUsername},
		{"invite plus", "https://t.me/+AbCdEf123", "AbCdEf123", InputInviteLink},
		{"invite joinchat", "t.me/joinchat/AbCdEf123", "AbCdEf123", InputInviteLink},
		{"bare numeric", "1234567890", "-1001234567890", InputNumericID},
		{"canonical numeric", "-1001234567890", "-1001234567890", InputNumericID},
		{"private message link", "https://t.me/c/1234567890/42", "https://t.me/c/1234567890/42", InputMessageLink},
		{"public message link", "https://t.me/somechannel/42", "https://t.me/somechannel/42", InputMessageLink},
		{"empty", "", "", InputInvalid},
		{"garbage", "!!!", "", InputInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, kind := ClassifyInput(tt.raw)
			if kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", kind, tt.wantKind)
			}
			if value != tt.wantValue {
				t.Errorf("value = %q, want %q", value, tt.wantValue)
			}
		})
	}
}

func TestNormalizeChannelID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1234567890", "-1001234567890"},
		{"-1001234567890", "-1001234567890"},
		{"-1234567890", "-1001234567890"},
	}

	for _, tt := range tests {
		if got := NormalizeChannelID(tt.in); got != tt.want {
			t.Errorf("NormalizeChannelID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseMessageLink(t *testing.T) {
	t.Run("private link", func(t *testing.T) {
		link := ParseMessageLink("https://t.me/c/1234567890/42")
		if link == nil {
			t.Fatal("expected a parsed link")
		}
		if link.ChannelID != -1001234567890 {
			t.Errorf("ChannelID = %d, want -1001234567890", link.ChannelID)
		}
		if link.StartID != 42 || link.EndID != 42 {
			t.Errorf("range = %d-%d, want 42-42", link.StartID, link.EndID)
		}
	})

	t.Run("private link with range", func(t *testing.T) {
		link := ParseMessageLink("https://t.me/c/1234567890/6-10")
		if link == nil {
			t.Fatal("expected a parsed link")
		}
		if link.StartID != 6 || link.EndID != 10 {
			t.Errorf("range = %d-%d, want 6-10", link.StartID, link.EndID)
		}
	})

	t.Run("public link", func(t *testing.T) {
		link := ParseMessageLink("https://t.me/somechannel/7")
		if link == nil {
			t.Fatal("expected a parsed link")
		}
		if link.Username != "somechannel" {
			t.Errorf("Username = %q, want somechannel", link.Username)
		}
		if link.StartID != 7 {
			t.Errorf("StartID = %d, want 7", link.StartID)
		}
	})

	t.Run("not a message link", func(t *testing.T) {
		if link := ParseMessageLink("https://t.me/somechannel"); link != nil {
			t.Errorf("expected nil, got %+v", link)
		}
	})
}

func TestParseMessageRange(t *testing.T) {
	tests := []struct {
		in        string
		wantStart int
		wantEnd   int
		wantOK    bool
	}{
		{"1-500", 1, 500, true},
		{"500-1", 1, 500, true}, // swapped bounds are tolerated
		{" 3 - 7 ", 3, 7, true},
		{"7", 0, 0, false},
		{"0-5", 0, 0, false},
		{"a-b", 0, 0, false},
	}

	for _, tt := range tests {
		start, end, ok := ParseMessageRange(tt.in)
		if ok != tt.wantOK || start != tt.wantStart || end != tt.wantEnd {
			t.Errorf("ParseMessageRange(%q) = (%d, %d, %v), want (%d, %d, %v)",
				tt.in, start, end, ok, tt.wantStart, tt.wantEnd, tt.wantOK)
		}
	}
}

func TestCanonicalBareRoundtrip(t *testing.T) {
	bare := int64(1234567890)
	canonical := canonicalFromBare(bare)
	if canonical != -1001234567890 {
		t.Fatalf("canonical = %d, want -1001234567890", canonical)
	}
	if got := bareFromCanonical(canonical); got != bare {
		t.Errorf("bare = %d, want %d", got, bare)
	}
}
