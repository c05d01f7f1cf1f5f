package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"pv-reviews/internal/browser"
	"pv-reviews/internal/browser/browsertest"
	"pv-reviews/internal/config"
	"pv-reviews/internal/domain"
	"pv-reviews/internal/progress"
	"pv-reviews/internal/storage"
	"pv-reviews/internal/types"
)

const testListing = "L1"

// MockLLM mocks the llm.Client interface
type MockLLM struct {
	QueryFunc func(ctx context.Context, system, user string) (string, error)
	Calls     int
}

func (m *MockLLM) SimpleTextQuery(ctx context.Context, system, user string) (string, error) {
	m.Calls++
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, system, user)
	}
	return "```json\n{\"response_text\": \"Thank you for visiting!\", \"sentiment\": \"Positive\", \"issues\": \"None\"}\n```", nil
}

func (m *MockLLM) Name() string { return "mock" }

// MockNotifier records the summaries it was asked to send
type MockNotifier struct {
	Summaries []*domain.RunSummary
}

func (m *MockNotifier) SendDailySummary(ctx context.Context, summary *domain.RunSummary) bool {
	m.Summaries = append(m.Summaries, summary)
	return true
}

func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.Business.Name = "Paati Veedu"
	cfg.Business.ListingID = testListing
	cfg.Business.URL = "https://business.example/profile"
	cfg.Google.Email = "owner@example.com"
	cfg.Google.Password = "secret"
	cfg.Collection.MaxReviews = 100
	cfg.Collection.MaxPageAttempts = 2
	cfg.Generation.Limit = 10
	cfg.Posting.BatchSize = 25
	cfg.Prompts.Dir = t.TempDir()
	return cfg
}

// businessPage lays out login, the business page and an unreplied list with
// one card per id. Submitting a reply adds the business reply marker.
func businessPage(ids ...string) *browsertest.Page {
	page := browsertest.NewPage()
	page.Root.Add(config.SelectorEmail, browsertest.NewNode(""))
	page.Root.Add(config.SelectorPassword, browsertest.NewNode(""))
	page.Root.Add(config.SelectorLoginNext, browsertest.NewNode("Next"))
	page.Root.Add(config.SelectorReadReviews, browsertest.NewNode("Read reviews"))

	doc := page.Frame(fmt.Sprintf(config.SelectorReviewFrame, testListing))
	doc.Add(config.SelectorUnrepliedTab, browsertest.NewNode("Unreplied"))

	for _, id := range ids {
		card := browsertest.NewNode("")
		card.Add(config.SelectorCardIDHolder, browsertest.NewNode("").Attr(config.AttrReviewID, id).Attr(config.AttrListingID, testListing))
		card.Add(config.SelectorRating, browsertest.NewNode("").Attr("aria-label", "Rated 5 out of 5"))
		doc.Add(config.SelectorReviewCard, card)

		c := browsertest.NewNode("Review " + id)
		submit := browsertest.NewNode("Reply")
		submit.OnClick = func(*browsertest.Node) error {
			c.Text += "\nBusiness reply"
			return nil
		}
		c.Add(config.SelectorReplyButton, browsertest.NewNode("Reply"))
		c.Add(config.SelectorReplyTextarea, browsertest.NewNode(""))
		c.Add(config.SelectorReplySubmit, submit)
		doc.Add(fmt.Sprintf(config.SelectorReplyContainer, id), c)
	}
	return page
}

func fakeLauncher(page *browsertest.Page, sessions *[]*browsertest.Session) Launcher {
	return func(ctx context.Context) (browser.Session, error) {
		s := &browsertest.Session{FakePage: page}
		*sessions = append(*sessions, s)
		return s, nil
	}
}

func newTestStore(t *testing.T) *storage.SQLRepository {
	store, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "reviews.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunDaily(t *testing.T) {
	cfg := testConfig(t)
	cfg.Posting.Auto = true
	store := newTestStore(t)
	var sessions []*browsertest.Session
	llm := &MockLLM{}
	notifier := &MockNotifier{}
	prog := progress.NewFileStore(filepath.Join(t.TempDir(), "progress.json"))

	p := New(cfg, store, fakeLauncher(businessPage("R1", "R2"), &sessions), llm, prog, notifier)
	res := p.RunDaily(context.Background())

	if res.Err != nil {
		t.Fatalf("RunDaily failed: %v", res.Err)
	}
	if res.Collection.New != 2 {
		t.Errorf("expected 2 new reviews, got %+v", res.Collection)
	}
	if res.Generation.Generated != 2 || llm.Calls != 2 {
		t.Errorf("expected 2 generated replies, got %+v (calls %d)", res.Generation, llm.Calls)
	}
	if !res.Posted || res.Posting.Succeeded != 2 {
		t.Errorf("expected 2 posted replies, got %+v", res.Posting)
	}
	if len(sessions) != 2 || !sessions[0].Closed || !sessions[1].Closed {
		t.Errorf("expected two closed sessions, got %d", len(sessions))
	}

	pending, err := store.PendingResponses(context.Background(), 0)
	if err != nil {
		t.Fatalf("PendingResponses failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending replies, got %d", len(pending))
	}
	done, err := prog.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !done.Has("R1") || !done.Has("R2") {
		t.Errorf("expected progress for both reviews, got %v", done.Sorted())
	}

	if !res.Notified || len(notifier.Summaries) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.Summaries))
	}
	summary := notifier.Summaries[0]
	if summary.TotalReviews != 2 || summary.UnrepliedReviews != 0 {
		t.Errorf("unexpected summary %+v", summary)
	}
	for _, process := range []string{domain.ProcessCollection, domain.ProcessGeneration, domain.ProcessPosting} {
		run := summary.LatestRun(process)
		if run == nil || run.Status != domain.RunCompleted {
			t.Errorf("expected completed %s run, got %+v", process, run)
		}
	}
}

func TestRunDaily_NotifiesAfterFailures(t *testing.T) {
	cfg := testConfig(t)
	store := newTestStore(t)
	notifier := &MockNotifier{}
	launch := func(ctx context.Context) (browser.Session, error) {
		return nil, errors.New("chromium missing")
	}
	llm := &MockLLM{QueryFunc: func(ctx context.Context, system, user string) (string, error) {
		return "", errors.New("should not be called")
	}}

	res := New(cfg, store, launch, llm, nil, notifier).RunDaily(context.Background())

	var fatal *types.FatalError
	if !errors.As(res.Err, &fatal) || fatal.Stage != "browser" {
		t.Fatalf("expected fatal browser error, got %v", res.Err)
	}
	if res.Posted {
		t.Error("posting must not run when auto posting is off")
	}
	if llm.Calls != 0 {
		t.Error("expected no generation without reviews")
	}
	if !res.Notified || len(notifier.Summaries) != 1 {
		t.Error("expected notification after failed collection")
	}
}

func TestCollect_AuthFailureIsFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Google.Password = ""
	store := newTestStore(t)
	var sessions []*browsertest.Session

	_, err := New(cfg, store, fakeLauncher(businessPage("R1"), &sessions), nil, nil, nil).Collect(context.Background())

	var fatal *types.FatalError
	if !errors.As(err, &fatal) || fatal.Stage != "auth" {
		t.Fatalf("expected fatal auth error, got %v", err)
	}
	summary, err := store.RunSummary(context.Background(), SummaryDays)
	if err != nil {
		t.Fatalf("RunSummary failed: %v", err)
	}
	run := summary.LatestRun(domain.ProcessCollection)
	if run == nil || run.Status != domain.RunFailed || !strings.Contains(run.ErrorMessage, "auth") {
		t.Errorf("expected failed collection run log, got %+v", run)
	}
}

func TestCollect_BrowserBusy(t *testing.T) {
	cfg := testConfig(t)
	var sessions []*browsertest.Session
	p := New(cfg, newTestStore(t), fakeLauncher(businessPage(), &sessions), nil, nil, nil)

	p.locks.Lock(browserKey)
	defer p.locks.Unlock(browserKey)

	if _, err := p.Collect(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if len(sessions) != 0 {
		t.Error("expected no browser launched")
	}
}

func TestGenerate_RequiresLLM(t *testing.T) {
	p := New(testConfig(t), newTestStore(t), nil, nil, nil, nil)
	if _, err := p.Generate(context.Background(), 5); err == nil {
		t.Fatal("expected error without llm client")
	}
}

func TestPost_NothingPending(t *testing.T) {
	var sessions []*browsertest.Session
	prog := progress.NewFileStore(filepath.Join(t.TempDir(), "progress.json"))
	p := New(testConfig(t), newTestStore(t), fakeLauncher(businessPage(), &sessions), nil, prog, nil)

	res, err := p.Post(context.Background(), 0)
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if res.Total != 0 || len(sessions) != 0 {
		t.Errorf("expected no browser work, got %+v and %d sessions", res, len(sessions))
	}
}
