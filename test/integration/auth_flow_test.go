// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/internal/auth/postgres"
	"github.com/holomush/authd/internal/web"
)

// browser is an HTTP client that keeps cookies and does not follow redirects.
type browser struct {
	base   string
	client *http.Client
}

func newBrowser(base string) *browser {
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &browser{
		base: base,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) do(method, path string, form url.Values) (*http.Response, map[string]string) {
	req, err := http.NewRequestWithContext(env.ctx, method, b.base+path, strings.NewReader(form.Encode()))
	Expect(err).NotTo(HaveOccurred())
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := b.client.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = resp.Body.Close() }()

	var body map[string]string
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
	}
	return resp, body
}

func (b *browser) sessionCookie() string {
	u, err := url.Parse(b.base)
	Expect(err).NotTo(HaveOccurred())
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == web.SessionCookie {
			return c.Value
		}
	}
	return ""
}

var _ = Describe("Auth flow over HTTP", func() {
	var (
		server *httptest.Server
		alice  *browser
	)

	BeforeEach(func() {
		env.truncateUsers()

		hasher, err := auth.NewBcryptHasher(4)
		Expect(err).NotTo(HaveOccurred())
		svc, err := auth.NewService(postgres.NewUserStore(env.pool), hasher, auth.WithLogger(env.logger))
		Expect(err).NotTo(HaveOccurred())
		handler, err := web.NewHandler(svc, env.logger)
		Expect(err).NotTo(HaveOccurred())

		server = httptest.NewServer(web.NewRouter(handler))
		alice = newBrowser(server.URL)
	})

	AfterEach(func() {
		server.Close()
	})

	register := func(b *browser, email, password string) *http.Response {
		resp, _ := b.do(http.MethodPost, "/users", url.Values{"email": {email}, "password": {password}})
		return resp
	}

	login := func(b *browser, email, password string) *http.Response {
		resp, _ := b.do(http.MethodPost, "/sessions", url.Values{"email": {email}, "password": {password}})
		return resp
	}

	Describe("registration", func() {
		It("creates a user once per email", func() {
			resp, body := alice.do(http.MethodPost, "/users", url.Values{
				"email":    {"alice@example.com"},
				"password": {"hunter2"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(HaveKeyWithValue("email", "alice@example.com"))
			Expect(body).To(HaveKeyWithValue("message", "user created"))

			resp, body = alice.do(http.MethodPost, "/users", url.Values{
				"email":    {"alice@example.com"},
				"password": {"other"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(body).To(HaveKeyWithValue("message", "email already registered"))
		})

		It("stores a hash rather than the password", func() {
			Expect(register(alice, "alice@example.com", "hunter2").StatusCode).To(Equal(http.StatusOK))

			var stored string
			err := env.pool.QueryRow(env.ctx,
				"SELECT hashed_password FROM users WHERE email = $1", "alice@example.com").Scan(&stored)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).NotTo(ContainSubstring("hunter2"))
			Expect(stored).To(HavePrefix("$2"))
		})
	})

	Describe("sessions", func() {
		BeforeEach(func() {
			Expect(register(alice, "alice@example.com", "hunter2").StatusCode).To(Equal(http.StatusOK))
		})

		It("rejects a wrong password without setting a cookie", func() {
			Expect(login(alice, "alice@example.com", "wrong").StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(alice.sessionCookie()).To(BeEmpty())
		})

		It("rejects an unknown email", func() {
			Expect(login(alice, "bob@example.com", "hunter2").StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("logs in, shows the profile and logs out", func() {
			Expect(login(alice, "alice@example.com", "hunter2").StatusCode).To(Equal(http.StatusOK))
			Expect(alice.sessionCookie()).NotTo(BeEmpty())

			resp, body := alice.do(http.MethodGet, "/profile", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(HaveKeyWithValue("email", "alice@example.com"))

			resp, _ = alice.do(http.MethodDelete, "/sessions", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusFound))
			Expect(resp.Header.Get("Location")).To(Equal("/"))

			// The browser still sends the old cookie; the server no longer honours it.
			resp, _ = alice.do(http.MethodGet, "/profile", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		})

		It("invalidates the previous session on a new login", func() {
			other := newBrowser(server.URL)
			Expect(login(alice, "alice@example.com", "hunter2").StatusCode).To(Equal(http.StatusOK))
			Expect(login(other, "alice@example.com", "hunter2").StatusCode).To(Equal(http.StatusOK))
			Expect(other.sessionCookie()).NotTo(Equal(alice.sessionCookie()))

			resp, _ := alice.do(http.MethodGet, "/profile", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
			resp, _ = other.do(http.MethodGet, "/profile", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("forbids profile and logout without a session", func() {
			resp, _ := alice.do(http.MethodGet, "/profile", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
			resp, _ = alice.do(http.MethodDelete, "/sessions", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		})
	})

	Describe("password reset", func() {
		BeforeEach(func() {
			Expect(register(alice, "alice@example.com", "hunter2").StatusCode).To(Equal(http.StatusOK))
		})

		It("issues a single-use token that changes the password", func() {
			resp, body := alice.do(http.MethodPost, "/reset_password", url.Values{"email": {"alice@example.com"}})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			token := body["reset_token"]
			Expect(token).NotTo(BeEmpty())

			update := url.Values{
				"email":        {"alice@example.com"},
				"reset_token":  {token},
				"new_password": {"correct horse"},
			}
			resp, body = alice.do(http.MethodPut, "/reset_password", update)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(HaveKeyWithValue("message", "Password updated"))

			resp, _ = alice.do(http.MethodPut, "/reset_password", update)
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))

			Expect(login(alice, "alice@example.com", "hunter2").StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(login(alice, "alice@example.com", "correct horse").StatusCode).To(Equal(http.StatusOK))
		})

		It("refuses a token for an unknown email", func() {
			resp, _ := alice.do(http.MethodPost, "/reset_password", url.Values{"email": {"bob@example.com"}})
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		})

		It("refuses an invented token", func() {
			resp, _ := alice.do(http.MethodPut, "/reset_password", url.Values{
				"email":        {"alice@example.com"},
				"reset_token":  {"00000000-0000-0000-0000-000000000000"},
				"new_password": {"nope"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		})
	})
})
