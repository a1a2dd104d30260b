package application

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/bnema/short5-cli/internal/domain"
	"github.com/bnema/short5-cli/internal/ports"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func mockAnyContext() interface{} {
	return mock.MatchedBy(func(context.Context) bool { return true })
}

// steppingClock advances by one millisecond on every read so consecutive
// votes get distinct timestamps.
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newSteppingClock() *steppingClock {
	return &steppingClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type authFlag struct {
	authenticated bool
}

func (a authFlag) IsAuthenticated() bool {
	return a.authenticated
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	return zap.New(core), logs
}

type fakeItemAPI struct {
	mu         sync.Mutex
	items      map[string]domain.Item
	failing    map[string]error
	delays     map[string]time.Duration
	fetched    []string
	feedPage   domain.ItemPage
	likedPage  domain.ItemPage
	feedCalls  []feedCall
	likedCalls []string
	shares     []shareCall
	shareErr   error
}

type feedCall struct {
	cursor    string
	visitorID string
}

type shareCall struct {
	itemID    string
	visitorID string
}

var _ ports.ItemAPI = (*fakeItemAPI)(nil)

func newFakeItemAPI(items ...domain.Item) *fakeItemAPI {
	api := &fakeItemAPI{
		items:   map[string]domain.Item{},
		failing: map[string]error{},
		delays:  map[string]time.Duration{},
	}
	for _, item := range items {
		api.items[item.ID] = item
	}

	return api
}

func (f *fakeItemAPI) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, itemID)
	delay := f.delays[itemID]
	failErr := f.failing[itemID]
	item, ok := f.items[itemID]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return domain.Item{}, ctx.Err()
		}
	}
	if failErr != nil {
		return domain.Item{}, failErr
	}
	if !ok {
		return domain.Item{}, errors.New("item not found")
	}

	return item, nil
}

func (f *fakeItemAPI) Feed(_ context.Context, cursor, visitorID string) (domain.ItemPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.feedCalls = append(f.feedCalls, feedCall{cursor: cursor, visitorID: visitorID})
	return f.feedPage, nil
}

func (f *fakeItemAPI) Liked(_ context.Context, cursor string) (domain.ItemPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.likedCalls = append(f.likedCalls, cursor)
	return f.likedPage, nil
}

func (f *fakeItemAPI) Share(_ context.Context, itemID, visitorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.shares = append(f.shares, shareCall{itemID: itemID, visitorID: visitorID})
	return f.shareErr
}

func (f *fakeItemAPI) fetchedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.fetched...)
}

type fakeAuthAPI struct {
	result       ports.AuthResult
	loginErr     error
	logoutErr    error
	me           domain.Identity
	meErr        error
	logoutTokens []string
	logins       int
	registers    int
}

var _ ports.AuthAPI = (*fakeAuthAPI)(nil)

func (f *fakeAuthAPI) Login(context.Context, string, string) (ports.AuthResult, error) {
	f.logins++
	return f.result, f.loginErr
}

func (f *fakeAuthAPI) Register(context.Context, string, string, string) (ports.AuthResult, error) {
	f.registers++
	return f.result, f.loginErr
}

func (f *fakeAuthAPI) Logout(_ context.Context, refreshToken string) error {
	f.logoutTokens = append(f.logoutTokens, refreshToken)
	return f.logoutErr
}

func (f *fakeAuthAPI) Me(context.Context) (domain.Identity, error) {
	return f.me, f.meErr
}

type fakeSyncer struct {
	result SyncResult
	err    error
	calls  int
}

func (f *fakeSyncer) Sync(context.Context) (SyncResult, error) {
	f.calls++
	return f.result, f.err
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
