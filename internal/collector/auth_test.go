package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"pv-reviews/internal/browser/browsertest"
	"pv-reviews/internal/config"
)

func loginPage() (*browsertest.Page, *browsertest.Node, *browsertest.Node) {
	page := browsertest.NewPage()
	email := browsertest.NewNode("")
	password := browsertest.NewNode("")
	page.Root.Add(config.SelectorEmail, email)
	page.Root.Add(config.SelectorPassword, password)
	page.Root.Add(config.SelectorLoginNext, browsertest.NewNode("Next"))
	return page, email, password
}

func TestAuthenticator_Login(t *testing.T) {
	page, email, password := loginPage()
	popup := browsertest.NewNode("Not now")
	page.Root.Add(config.PopupDismissSelectors[1], popup)

	a := NewAuthenticator(Credentials{Email: "owner@example.com", Password: "secret"}, time.Second, 0)
	if err := a.Login(context.Background(), page); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if email.Value != "owner@example.com" || password.Value != "secret" {
		t.Errorf("unexpected filled values %q %q", email.Value, password.Value)
	}
	if page.Visited[0] != config.LoginURL {
		t.Errorf("unexpected first page %v", page.Visited)
	}
	if popup.Clicks != 1 {
		t.Errorf("expected popup dismissed once, got %d", popup.Clicks)
	}
}

func TestAuthenticator_Login_Failures(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		setup func(p *browsertest.Page)
	}{
		{"missing credentials", Credentials{Email: "a@b.c"}, func(p *browsertest.Page) {}},
		{"password field never shows", Credentials{"a@b.c", "x"}, func(p *browsertest.Page) {
			p.Root.Children(config.SelectorPassword)[0].Hidden = true
		}},
		{"no redirect", Credentials{"a@b.c", "x"}, func(p *browsertest.Page) {
			p.WaitURLErr = errors.New("timeout")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, _, _ := loginPage()
			tt.setup(page)
			a := NewAuthenticator(tt.creds, time.Second, 0)
			if err := a.Login(context.Background(), page); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestAuthenticator_DismissPopups_NoneShowing(t *testing.T) {
	page, _, _ := loginPage()
	a := NewAuthenticator(Credentials{}, time.Second, 0)
	if sel := a.DismissPopups(page); sel != "" {
		t.Errorf("expected no dismissal, got %q", sel)
	}
}
