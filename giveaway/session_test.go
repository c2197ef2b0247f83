package giveaway

import (
	"context"
	"math/rand"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/irantownhall/townhallbot/giveaway/invitetracker"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	ChannelID string
	Data      *discordgo.MessageSend
}

// fakeSession keeps messages and reactions in memory
type fakeSession struct {
	mu sync.Mutex

	nextID    int64
	messages  map[string]*discordgo.Message
	reactions map[string][]*discordgo.User

	sent      []*sentMessage
	edits     []*discordgo.MessageEdit
	deleted   []string
	reactedBy []string

	sendErr error
	onSend  func(channelID string)
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		nextID:    1000,
		messages:  make(map[string]*discordgo.Message),
		reactions: make(map[string][]*discordgo.User),
	}
}

func restErr(status int, code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status, Status: strconv.Itoa(status) + " " + http.StatusText(status)},
		Message:  &discordgo.APIErrorMessage{Code: code},
	}
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.onSend != nil {
		f.onSend(channelID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return nil, f.sendErr
	}

	f.nextID++
	msg := &discordgo.Message{
		ID:        strconv.FormatInt(f.nextID, 10),
		ChannelID: channelID,
		Content:   data.Content,
		Embeds:    data.Embeds,
	}

	f.messages[msg.ID] = msg
	f.sent = append(f.sent, &sentMessage{ChannelID: channelID, Data: data})
	return msg, nil
}

func (f *fakeSession) ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg, ok := f.messages[m.ID]
	if !ok {
		return nil, restErr(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)
	}

	f.edits = append(f.edits, m)
	if m.Embeds != nil {
		msg.Embeds = *m.Embeds
	}
	return msg, nil
}

func (f *fakeSession) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.messages, messageID)
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeSession) ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg, ok := f.messages[messageID]
	if !ok {
		return nil, restErr(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)
	}

	return msg, nil
}

func (f *fakeSession) MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	f.reactedBy = append(f.reactedBy, emojiID)
	f.mu.Unlock()
	return nil
}

func (f *fakeSession) MessageReactions(channelID, messageID, emojiID string, limit int, beforeID, afterID string, options ...discordgo.RequestOption) ([]*discordgo.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	users := f.reactions[messageID]
	start := 0
	if afterID != "" {
		for i, v := range users {
			if v.ID == afterID {
				start = i + 1
				break
			}
		}
	}

	end := start + limit
	if end > len(users) {
		end = len(users)
	}

	return users[start:end], nil
}

func (f *fakeSession) react(messageID int64, users ...*discordgo.User) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strconv.FormatInt(messageID, 10)
	f.reactions[key] = append(f.reactions[key], users...)
}

func (f *fakeSession) sentMessages() []*sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*sentMessage(nil), f.sent...)
}

func (f *fakeSession) removeMessage(messageID int64) {
	f.mu.Lock()
	delete(f.messages, strconv.FormatInt(messageID, 10))
	f.mu.Unlock()
}

type fakeSnapshots struct {
	mu        sync.Mutex
	refreshed []string
}

func (f *fakeSnapshots) Sync(ctx context.Context, guildIDs []string) error {
	f.mu.Lock()
	f.refreshed = append(f.refreshed, guildIDs...)
	f.mu.Unlock()
	return nil
}

func testUser(id int64) *discordgo.User {
	return &discordgo.User{ID: strconv.FormatInt(id, 10), Username: "user" + strconv.FormatInt(id, 10)}
}

func testUsers(from, n int64) []*discordgo.User {
	users := make([]*discordgo.User, 0, n)
	for i := int64(0); i < n; i++ {
		users = append(users, testUser(from+i))
	}
	return users
}

type testEnv struct {
	m         *Manager
	session   *fakeSession
	credits   *invitetracker.Store
	snapshots *fakeSnapshots
	now       time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := InitDatabase(filepath.Join(t.TempDir(), "giveaway.db"))
	require.NoError(t, err)

	env := &testEnv{
		session:   newFakeSession(),
		credits:   invitetracker.NewStore(db),
		snapshots: &fakeSnapshots{},
		now:       time.Now(),
	}

	env.m = NewManager(ManagerConfig{
		Session:         env.session,
		DB:              db,
		Credits:         env.credits,
		Snapshots:       env.snapshots,
		MentionEveryone: true,
		Rand:            rand.New(rand.NewSource(1)),
		Now:             func() time.Time { return env.now },
	})

	t.Cleanup(func() {
		env.m.Stop()
		db.Close()
	})

	return env
}

func (env *testEnv) start(t *testing.T, req StartRequest) *Giveaway {
	t.Helper()

	if req.GuildID == 0 {
		req.GuildID = 1
	}
	if req.ChannelID == 0 {
		req.ChannelID = 10
	}
	if req.AuthorID == 0 {
		req.AuthorID = 99
	}

	g, err := env.m.Start(context.Background(), req)
	require.NoError(t, err)
	return g
}
