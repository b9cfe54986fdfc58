package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/gotd/td/tg"
)

// fakeInviteSearcher serves canned dialogs and exported invite links.
type fakeInviteSearcher struct {
	chats      []tg.ChatClass
	links      map[int64]string
	exportErrs map[int64]error
}

func (f *fakeInviteSearcher) MessagesGetDialogs(_ context.Context, _ *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error) {
	return &tg.MessagesDialogs{Chats: f.chats}, nil
}

func (f *fakeInviteSearcher) MessagesExportChatInvite(_ context.Context, req *tg.MessagesExportChatInviteRequest) (tg.ExportedChatInviteClass, error) {
	peer, ok := req.Peer.(*tg.InputPeerChannel)
	if !ok {
		return nil, errors.New("unexpected peer")
	}
	if err, ok := f.exportErrs[peer.ChannelID]; ok {
		return nil, err
	}
	return &tg.ChatInviteExported{Link: f.links[peer.ChannelID]}, nil
}

func TestFindByInviteHash(t *testing.T) {
	searcher := &fakeInviteSearcher{
		chats: []tg.ChatClass{
			&tg.Chat{ID: 7}, // basic groups cannot match, skipped
			&tg.Channel{ID: 100, AccessHash: 1, Title: "first"},
			&tg.Channel{ID: 200, AccessHash: 2, Title: "second", Username: "second"},
		},
		links: map[int64]string{
			100: "https://t.me/+aaaa",
			200: "https://t.me/+match123",
		},
	}

	ref, err := findByInviteHash(context.Background(), searcher, "match123")
	if err != nil {
		t.Fatalf("findByInviteHash() error = %v", err)
	}
	if ref.ChannelID != 200 || ref.AccessHash != 2 || ref.Title != "second" {
		t.Errorf("ref = %+v, want channel 200", ref)
	}
}

func TestFindByInviteHash_SkipsExportFailures(t *testing.T) {
	searcher := &fakeInviteSearcher{
		chats: []tg.ChatClass{
			&tg.Channel{ID: 100, AccessHash: 1},
			&tg.Channel{ID: 200, AccessHash: 2, Title: "mine"},
		},
		links:      map[int64]string{200: "https://t.me/joinchat/match123"},
		exportErrs: map[int64]error{100: errors.New("CHAT_ADMIN_REQUIRED")},
	}

	ref, err := findByInviteHash(context.Background(), searcher, "match123")
	if err != nil {
		t.Fatalf("findByInviteHash() error = %v", err)
	}
	if ref.ChannelID != 200 {
		t.Errorf("ChannelID = %d, want 200", ref.ChannelID)
	}
}

func TestFindByInviteHash_NoMatch(t *testing.T) {
	searcher := &fakeInviteSearcher{
		chats: []tg.ChatClass{&tg.Channel{ID: 100, AccessHash: 1}},
		links: map[int64]string{100: "https://t.me/+other"},
	}

	if _, err := findByInviteHash(context.Background(), searcher, "match123"); err == nil {
		t.Error("findByInviteHash() should fail when no dialog matches")
	}
}
